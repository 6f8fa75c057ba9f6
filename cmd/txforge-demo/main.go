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

// Command txforge-demo is a worked example wiring every layer of the
// library together: config and logging, an HTTP indexer provider, a
// badger-backed local store for the signing key and a UTxO cache, and
// the transaction builder itself. It sends a caller-supplied amount of
// lovelace from the configured wallet to a caller-supplied address.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/blinklabs-io/txforge/crypto"
	"github.com/blinklabs-io/txforge/internal/config"
	"github.com/blinklabs-io/txforge/internal/logging"
	"github.com/blinklabs-io/txforge/internal/store"
	"github.com/blinklabs-io/txforge/internal/version"
	"github.com/blinklabs-io/txforge/keyhandler"
	"github.com/blinklabs-io/txforge/ledger"
	"github.com/blinklabs-io/txforge/provider/httpindexer"
	"github.com/blinklabs-io/txforge/txbuilder"
	_ "go.uber.org/automaxprocs"
)

const programName = "txforge-demo"

var cmdlineFlags struct {
	configFile  string
	version     bool
	destination string
	lovelace    uint64
}

func main() {
	flag.StringVar(&cmdlineFlags.configFile, "config", "", "path to config file to load")
	flag.BoolVar(&cmdlineFlags.version, "version", false, "show version")
	flag.StringVar(&cmdlineFlags.destination, "to", "", "bech32 destination address")
	flag.Uint64Var(&cmdlineFlags.lovelace, "lovelace", 0, "amount of lovelace to send")
	flag.Parse()

	if cmdlineFlags.version {
		fmt.Printf("%s %s\n", programName, version.GetVersionString())
		os.Exit(0)
	}

	cfg, err := config.Load(cmdlineFlags.configFile)
	if err != nil {
		fmt.Printf("Failed to load config: %s\n", err)
		os.Exit(1)
	}

	logging.Configure()
	logger := logging.GetLogger()
	defer func() {
		if err := logger.Sync(); err != nil {
			return
		}
	}()

	if cfg.Debug.ListenPort > 0 {
		logger.Infof("starting debug listener on %s:%d", cfg.Debug.ListenAddress, cfg.Debug.ListenPort)
		go func() {
			addr := fmt.Sprintf("%s:%d", cfg.Debug.ListenAddress, cfg.Debug.ListenPort)
			if err := http.ListenAndServe(addr, nil); err != nil {
				logger.Fatalf("failed to start debug listener: %s", err)
			}
		}()
	}

	if cmdlineFlags.destination == "" || cmdlineFlags.lovelace == 0 {
		fmt.Println("ERROR: you must specify -to and -lovelace")
		os.Exit(1)
	}
	destination, err := ledger.AddressFromBech32(cmdlineFlags.destination)
	if err != nil {
		logger.Fatalf("parsing destination address: %s", err)
	}

	localStore, err := store.Open(cfg.Storage.Directory)
	if err != nil {
		logger.Fatalf("opening local store: %s", err)
	}
	defer localStore.Close()

	handler, err := loadOrCreateHandler(localStore, cfg)
	if err != nil {
		logger.Fatalf("loading signing key: %s", err)
	}

	net := ledger.NetworkMainnet
	if cfg.Network != "mainnet" {
		net = ledger.NetworkTestnet
	}
	paymentPath, paymentCred, err := derivePaymentCredential(handler, net)
	if err != nil {
		logger.Fatalf("deriving payment key: %s", err)
	}
	changeAddress := ledger.NewEnterpriseAddress(net, paymentCred)

	idx := httpindexer.New(cfg.Provider.BaseURL, cfg.Provider.APIKey)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	params, err := idx.GetParameters(ctx)
	if err != nil {
		logger.Fatalf("fetching protocol parameters: %s", err)
	}

	utxos, err := idx.GetUnspentOutputs(ctx, changeAddress)
	if err != nil {
		logger.Fatalf("fetching utxos for %s: %s", changeAddress.String(), err)
	}
	if err := localStore.CacheUTxOs(changeAddress.String(), utxos); err != nil {
		logger.Warnf("caching utxos: %s", err)
	}

	b := txbuilder.New(idx, params)
	b.SetChangeAddress(changeAddress)
	b.SetUTxOs(utxos)
	b.AddRequiredSigner(paymentCred.Hash)
	b.SendLovelace(destination, ledger.Coin(cmdlineFlags.lovelace))

	txn, err := b.Build(ctx)
	if err != nil {
		logger.Fatalf("building transaction: %s", err)
	}

	witnesses, err := handler.SignTransaction(txn, [][]uint32{paymentPath})
	if err != nil {
		logger.Fatalf("signing transaction: %s", err)
	}
	txn.WitnessSet.ApplyVKeyWitnesses(witnesses)

	txId, err := idx.SubmitTransaction(ctx, txn)
	if err != nil {
		logger.Fatalf("submitting transaction: %s", err)
	}
	logger.Infof("submitted transaction %x", txId)

	confirmed, err := idx.ConfirmTransaction(ctx, txId)
	if err != nil {
		logger.Fatalf("confirming transaction: %s", err)
	}
	if confirmed {
		fmt.Printf("Transaction %x confirmed\n", txId)
	} else {
		fmt.Printf("Transaction %x submitted, not yet confirmed\n", txId)
	}
}

// loadOrCreateHandler returns the previously sealed signing key from
// the local store, or seals and persists a new one from the
// configured mnemonic if none has been saved yet.
func loadOrCreateHandler(s *store.Store, cfg *config.Config) (*keyhandler.SoftwareHandler, error) {
	passphrase := passphraseFromEnv()

	sealed, err := s.LoadSealedBlob()
	if err != nil {
		return nil, fmt.Errorf("loading sealed key: %w", err)
	}
	if sealed != nil {
		return keyhandler.Deserialize(sealed, passphrase)
	}

	if cfg.Wallet.Mnemonic == "" {
		return nil, fmt.Errorf("no sealed key on disk and no wallet.mnemonic configured")
	}
	h, err := keyhandler.NewSoftwareHandlerFromMnemonic(cfg.Wallet.Mnemonic, "", passphrase)
	if err != nil {
		return nil, fmt.Errorf("sealing wallet mnemonic: %w", err)
	}
	newSealed, err := h.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serializing sealed key: %w", err)
	}
	if err := s.SaveSealedBlob(newSealed); err != nil {
		return nil, fmt.Errorf("persisting sealed key: %w", err)
	}
	return h, nil
}

// passphraseFromEnv reads the sealing passphrase from TXFORGE_PASSPHRASE.
// An empty environment variable still produces a usable (if weak)
// passphrase rather than failing; this is a demo, not a vault.
func passphraseFromEnv() keyhandler.PassphraseFunc {
	value := os.Getenv("TXFORGE_PASSPHRASE")
	return func(buf []byte) int {
		return copy(buf, value)
	}
}

// derivePaymentCredential walks the CIP-1852 external payment path
// (role 0, index 0) under account 0 and returns both the derivation
// path (for SignTransaction) and the resulting key-hash credential.
func derivePaymentCredential(h keyhandler.Handler, net ledger.Network) ([]uint32, ledger.Credential, error) {
	acctPub, err := h.GetExtendedAccountPublicKey(0)
	if err != nil {
		return nil, ledger.Credential{}, err
	}
	paymentPub, err := acctPub.DerivePath([]uint32{0, 0})
	if err != nil {
		return nil, ledger.Credential{}, err
	}
	point := paymentPub.PointBytes()
	hash := crypto.Blake2b224(point[:])
	path := append(crypto.AccountPath(0), 0, 0)
	return path, ledger.NewKeyHashCredential(hash), nil
}
