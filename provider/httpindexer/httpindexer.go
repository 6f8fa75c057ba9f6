// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package httpindexer is a thin HTTP façade implementing
// provider.Provider against a Blockfrost-shaped REST indexer. It is an
// example provider, not a hardened production client: error handling
// covers the network and status-code path but does not retry, rate
// limit, or page large result sets.
package httpindexer

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"time"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/blinklabs-io/txforge/ledger"
	"github.com/blinklabs-io/txforge/provider"
	"github.com/blinklabs-io/txforge/tx"
)

// HTTPIndexer is a provider.Provider backed by HTTP calls to baseURL.
type HTTPIndexer struct {
	baseURL string
	apiKey  string
	client  *http.Client
	// pollInterval controls ConfirmTransaction's poll cadence.
	pollInterval time.Duration
}

var _ provider.Provider = (*HTTPIndexer)(nil)

// New returns an HTTPIndexer targeting baseURL, authenticating with
// apiKey (sent as the "project_id" header, matching Blockfrost's
// convention) if non-empty.
func New(baseURL, apiKey string) *HTTPIndexer {
	return &HTTPIndexer{
		baseURL:      baseURL,
		apiKey:       apiKey,
		client:       http.DefaultClient,
		pollInterval: 2 * time.Second,
	}
}

func (h *HTTPIndexer) newRequest(ctx context.Context, method, path string, body []byte, contentType string) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if h.apiKey != "" {
		req.Header.Set("project_id", h.apiKey)
	}
	return req, nil
}

func (h *HTTPIndexer) doJSON(ctx context.Context, method, path string, body []byte, out any) error {
	req, err := h.newRequest(ctx, method, path, body, "application/json")
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %s: %w", path, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected response: %s: %d: %s", path, resp.StatusCode, respBody)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding response: %s: %w", path, err)
	}
	return nil
}

type wireProtocolParameters struct {
	MinFeeA             uint64             `json:"min_fee_a"`
	MinFeeB             uint64             `json:"min_fee_b"`
	CoinsPerUTxOByte    uint64             `json:"coins_per_utxo_byte"`
	MaxTxSize           uint64             `json:"max_tx_size"`
	MaxValSize          uint64             `json:"max_val_size"`
	PoolDeposit         uint64             `json:"pool_deposit,string"`
	KeyDeposit          uint64             `json:"key_deposit,string"`
	CollateralPercent   uint64             `json:"collateral_percent"`
	MaxCollateralInputs int                `json:"max_collateral_inputs"`
	PriceMem            string             `json:"price_mem"`
	PriceStep           string             `json:"price_step"`
	CostModels          map[string][]int64 `json:"cost_models"`
}

// GetParameters fetches /epochs/latest/parameters and maps the result
// into ledger.ProtocolParameters.
func (h *HTTPIndexer) GetParameters(ctx context.Context) (ledger.ProtocolParameters, error) {
	var wire wireProtocolParameters
	if err := h.doJSON(ctx, http.MethodGet, "/epochs/latest/parameters", nil, &wire); err != nil {
		return ledger.ProtocolParameters{}, fmt.Errorf("provider: GetParameters: %w", err)
	}
	costModels := make(map[ledger.PlutusLanguage]ledger.CostModel, len(wire.CostModels))
	for k, v := range wire.CostModels {
		lang, ok := plutusLanguageFromName(k)
		if !ok {
			continue
		}
		costModels[lang] = ledger.CostModel(v)
	}
	memNum, memDen, err := parseRational(wire.PriceMem)
	if err != nil {
		return ledger.ProtocolParameters{}, fmt.Errorf("provider: GetParameters: price_mem: %w", err)
	}
	stepNum, stepDen, err := parseRational(wire.PriceStep)
	if err != nil {
		return ledger.ProtocolParameters{}, fmt.Errorf("provider: GetParameters: price_step: %w", err)
	}
	return ledger.ProtocolParameters{
		MinFeeA:              wire.MinFeeA,
		MinFeeB:              wire.MinFeeB,
		CoinsPerUTxOByte:     wire.CoinsPerUTxOByte,
		MaxTxSize:            wire.MaxTxSize,
		MaxValueSize:         wire.MaxValSize,
		PoolDeposit:          ledger.Coin(wire.PoolDeposit),
		KeyDeposit:           ledger.Coin(wire.KeyDeposit),
		CollateralPercentage: wire.CollateralPercent,
		MaxCollateralInputs:  wire.MaxCollateralInputs,
		ExecutionPrices: ledger.ExUnitPrices{
			MemNumerator:    memNum,
			MemDenominator:  memDen,
			StepNumerator:   stepNum,
			StepDenominator: stepDen,
		},
		CostModels: costModels,
	}, nil
}

// parseRational converts a decimal string such as "0.0577" (the form
// Blockfrost-shaped indexers report price_mem/price_step in) into an
// integer numerator/denominator pair.
func parseRational(s string) (num, den int64, err error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return 0, 0, fmt.Errorf("malformed rational %q", s)
	}
	return r.Num().Int64(), r.Denom().Int64(), nil
}

func plutusLanguageFromName(name string) (ledger.PlutusLanguage, bool) {
	switch name {
	case "PlutusV1":
		return ledger.PlutusV1, true
	case "PlutusV2":
		return ledger.PlutusV2, true
	case "PlutusV3":
		return ledger.PlutusV3, true
	default:
		return 0, false
	}
}

type wireAmount struct {
	Unit     string `json:"unit"`
	Quantity string `json:"quantity"`
}

type wireUTxO struct {
	TxHash  string       `json:"tx_hash"`
	TxIndex uint32       `json:"tx_index"`
	Amount  []wireAmount `json:"amount"`
	Address string       `json:"address"`
	DataHash *string     `json:"data_hash"`
	InlineDatum *string  `json:"inline_datum"`
}

// toUTxO maps a wire UTxO into ledger.UTxO, following the same
// decode-and-validate shape as apollo's BlockFrostChainContext.toUtxo
// (other_examples/2c3bd0c2_..._backend-blockfrost-blockfrost.go.go:486-603)
// against the identical Blockfrost-shaped wire format: hex-decode each hash,
// check it against gouroboros' own digest sizes rather than a bare literal,
// and cross-validate the address through gouroboros' own parser before
// trusting our own bech32 decode of it.
func (w wireUTxO) toUTxO() (ledger.UTxO, error) {
	var txid [32]byte
	raw, err := hex.DecodeString(w.TxHash)
	if err != nil || len(raw) != lcommon.Blake2b256Size {
		return ledger.UTxO{}, fmt.Errorf("malformed tx hash %q", w.TxHash)
	}
	copy(txid[:], raw)

	if _, err := lcommon.NewAddress(w.Address); err != nil {
		return ledger.UTxO{}, fmt.Errorf("malformed address %q: %w", w.Address, err)
	}
	addr, err := ledger.AddressFromBech32(w.Address)
	if err != nil {
		return ledger.UTxO{}, fmt.Errorf("malformed address %q: %w", w.Address, err)
	}

	value := ledger.Value{Assets: ledger.MultiAsset{}}
	for _, amt := range w.Amount {
		qty, ok := new(big.Int).SetString(amt.Quantity, 10)
		if !ok {
			return ledger.UTxO{}, fmt.Errorf("malformed quantity %q", amt.Quantity)
		}
		if amt.Unit == "lovelace" {
			value.Coin = ledger.Coin(qty.Uint64())
			continue
		}
		if len(amt.Unit) < 56 {
			return ledger.UTxO{}, fmt.Errorf("malformed asset unit %q", amt.Unit)
		}
		policyHex, nameHex := amt.Unit[:56], amt.Unit[56:]
		policyRaw, err := hex.DecodeString(policyHex)
		if err != nil || len(policyRaw) != lcommon.Blake2b224Size {
			return ledger.UTxO{}, fmt.Errorf("malformed policy id %q", policyHex)
		}
		var policy ledger.PolicyID
		copy(policy[:], policyRaw)
		name, err := hex.DecodeString(nameHex)
		if err != nil {
			return ledger.UTxO{}, fmt.Errorf("malformed asset name %q", nameHex)
		}
		value.Assets.Add(policy, ledger.AssetName(name), qty)
	}

	output := ledger.TransactionOutput{Address: addr, Value: value}
	if w.DataHash != nil {
		hashRaw, err := hex.DecodeString(*w.DataHash)
		if err == nil && len(hashRaw) == lcommon.Blake2b256Size {
			var dh [32]byte
			copy(dh[:], hashRaw)
			output.Datum = &ledger.Datum{Hash: &dh}
		}
	}

	return ledger.UTxO{
		Input:  ledger.TransactionInput{TxId: txid, Index: uint16(w.TxIndex)},
		Output: output,
	}, nil
}

// GetUnspentOutputs fetches /addresses/{address}/utxos.
func (h *HTTPIndexer) GetUnspentOutputs(ctx context.Context, addr ledger.Address) (ledger.UTxOList, error) {
	bech32, err := addr.Bech32()
	if err != nil {
		return nil, fmt.Errorf("provider: GetUnspentOutputs: %w", err)
	}
	var wire []wireUTxO
	if err := h.doJSON(ctx, http.MethodGet, "/addresses/"+bech32+"/utxos", nil, &wire); err != nil {
		return nil, fmt.Errorf("provider: GetUnspentOutputs: %w", err)
	}
	out := make(ledger.UTxOList, 0, len(wire))
	for _, w := range wire {
		u, err := w.toUTxO()
		if err != nil {
			return nil, fmt.Errorf("provider: GetUnspentOutputs: %w", err)
		}
		out = append(out, u)
	}
	return out, nil
}

// ResolveUnspentOutputs looks up each input individually via
// /txs/{hash}/utxos, since the indexer has no bulk-resolve endpoint.
func (h *HTTPIndexer) ResolveUnspentOutputs(ctx context.Context, inputs []ledger.TransactionInput) (ledger.UTxOList, error) {
	out := make(ledger.UTxOList, 0, len(inputs))
	for _, in := range inputs {
		var wire struct {
			Outputs []wireUTxO `json:"outputs"`
		}
		path := "/txs/" + hex.EncodeToString(in.TxId[:]) + "/utxos"
		if err := h.doJSON(ctx, http.MethodGet, path, nil, &wire); err != nil {
			return nil, fmt.Errorf("provider: ResolveUnspentOutputs: %w", err)
		}
		if int(in.Index) >= len(wire.Outputs) {
			return nil, fmt.Errorf("provider: ResolveUnspentOutputs: input index %d out of range for %s", in.Index, in)
		}
		u, err := wire.Outputs[in.Index].toUTxO()
		if err != nil {
			return nil, fmt.Errorf("provider: ResolveUnspentOutputs: %w", err)
		}
		u.Input = in
		out = append(out, u)
	}
	return out, nil
}

// GetRewardsAvailable fetches /accounts/{stake_address}.
func (h *HTTPIndexer) GetRewardsAvailable(ctx context.Context, rewardAddr ledger.Address) (ledger.Coin, error) {
	bech32, err := rewardAddr.Bech32()
	if err != nil {
		return 0, fmt.Errorf("provider: GetRewardsAvailable: %w", err)
	}
	var wire struct {
		WithdrawableAmount string `json:"withdrawable_amount"`
	}
	if err := h.doJSON(ctx, http.MethodGet, "/accounts/"+bech32, nil, &wire); err != nil {
		return 0, fmt.Errorf("provider: GetRewardsAvailable: %w", err)
	}
	amount, err := strconv.ParseUint(wire.WithdrawableAmount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("provider: GetRewardsAvailable: malformed amount %q", wire.WithdrawableAmount)
	}
	return ledger.Coin(amount), nil
}

// GetDatum fetches /scripts/datum/{hash}/cbor.
func (h *HTTPIndexer) GetDatum(ctx context.Context, hash [32]byte) (ledger.PlutusData, error) {
	var wire struct {
		CBOR string `json:"cbor"`
	}
	path := "/scripts/datum/" + hex.EncodeToString(hash[:]) + "/cbor"
	if err := h.doJSON(ctx, http.MethodGet, path, nil, &wire); err != nil {
		return ledger.PlutusData{}, fmt.Errorf("provider: GetDatum: %w", err)
	}
	raw, err := hex.DecodeString(wire.CBOR)
	if err != nil {
		return ledger.PlutusData{}, fmt.Errorf("provider: GetDatum: malformed cbor hex: %w", err)
	}
	var datum ledger.PlutusData
	if err := datum.UnmarshalCBOR(raw); err != nil {
		return ledger.PlutusData{}, fmt.Errorf("provider: GetDatum: %w", err)
	}
	return datum, nil
}

// SubmitTransaction POSTs the transaction's raw CBOR to /tx/submit,
// mirroring the teacher's api-submission content type and status-code
// handling.
func (h *HTTPIndexer) SubmitTransaction(ctx context.Context, txn *tx.Transaction) ([32]byte, error) {
	raw, err := txn.MarshalCBOR()
	if err != nil {
		return [32]byte{}, fmt.Errorf("provider: SubmitTransaction: %w", err)
	}
	req, err := h.newRequest(ctx, http.MethodPost, "/tx/submit", raw, "application/cbor")
	if err != nil {
		return [32]byte{}, fmt.Errorf("provider: SubmitTransaction: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return [32]byte{}, fmt.Errorf("provider: SubmitTransaction: sending request: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusAccepted && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		return [32]byte{}, fmt.Errorf("provider: SubmitTransaction: unexpected response: %d: %s", resp.StatusCode, body)
	}
	return txn.Id()
}

// ConfirmTransaction polls /txs/{hash} until it resolves, ctx's
// deadline elapses, or ctx is cancelled.
func (h *HTTPIndexer) ConfirmTransaction(ctx context.Context, txId [32]byte) (bool, error) {
	hashHex := hex.EncodeToString(txId[:])
	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()
	for {
		var wire struct {
			Hash string `json:"hash"`
		}
		err := h.doJSON(ctx, http.MethodGet, "/txs/"+hashHex, nil, &wire)
		if err == nil && wire.Hash == hashHex {
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, nil
		case <-ticker.C:
		}
	}
}

// EvaluateTransaction POSTs to /utils/txs/evaluate and maps the
// response back into per-redeemer execution units.
func (h *HTTPIndexer) EvaluateTransaction(ctx context.Context, txn *tx.Transaction, additionalUtxos ledger.UTxOList) (map[tx.RedeemerKey]ledger.ExUnits, error) {
	raw, err := txn.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("provider: EvaluateTransaction: %w", err)
	}
	var wire struct {
		Result []struct {
			RedeemerTag   string `json:"redeemer_tag"`
			RedeemerIndex uint64 `json:"redeemer_index"`
			ExUnitsMem    uint64 `json:"ex_units_mem"`
			ExUnitsSteps  uint64 `json:"ex_units_steps"`
		} `json:"result"`
	}
	if err := h.doJSON(ctx, http.MethodPost, "/utils/txs/evaluate", raw, &wire); err != nil {
		return nil, fmt.Errorf("provider: EvaluateTransaction: %w", err)
	}
	out := make(map[tx.RedeemerKey]ledger.ExUnits, len(wire.Result))
	for _, r := range wire.Result {
		redeemerTag, ok := redeemerTagFromName(r.RedeemerTag)
		if !ok {
			continue
		}
		out[tx.RedeemerKey{Tag: redeemerTag, Index: r.RedeemerIndex}] = ledger.ExUnits{
			Mem:   r.ExUnitsMem,
			Steps: r.ExUnitsSteps,
		}
	}
	return out, nil
}

func redeemerTagFromName(name string) (tx.RedeemerTag, bool) {
	switch name {
	case "spend":
		return tx.RedeemerSpend, true
	case "mint":
		return tx.RedeemerMint, true
	case "cert":
		return tx.RedeemerCert, true
	case "reward":
		return tx.RedeemerReward, true
	case "voting":
		return tx.RedeemerVoting, true
	case "proposing":
		return tx.RedeemerProposing, true
	default:
		return 0, false
	}
}
