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

// Command mk-script-address prints the enterprise address a compiled
// Plutus script hashes to on a named network, for wiring a script into
// txbuilder.Builder.AddScript / LockLovelace without a running node.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/blinklabs-io/txforge/ledger"
)

var cmdlineFlags struct {
	network       string
	scriptData    string
	scriptPath    string
	plutusVersion int
}

var networks = map[string]ledger.Network{
	"mainnet": ledger.NetworkMainnet,
	"preprod": ledger.NetworkTestnet,
	"preview": ledger.NetworkTestnet,
}

func main() {
	flag.StringVar(&cmdlineFlags.scriptData, "script-data", "", "hex-encoded script data")
	flag.StringVar(&cmdlineFlags.scriptPath, "script-path", "", "path to script file to load")
	flag.StringVar(&cmdlineFlags.network, "network", "mainnet", "named network to generate script address for")
	flag.IntVar(&cmdlineFlags.plutusVersion, "plutus-version", 2, "plutus version of script (1, 2, or 3)")
	flag.Parse()

	if cmdlineFlags.scriptPath == "" && cmdlineFlags.scriptData == "" {
		fmt.Println("ERROR: you must specify -script-data or -script-path")
		os.Exit(1)
	}

	net, ok := networks[cmdlineFlags.network]
	if !ok {
		fmt.Printf("ERROR: unknown named network: %s\n", cmdlineFlags.network)
		os.Exit(1)
	}

	var language ledger.PlutusLanguage
	switch cmdlineFlags.plutusVersion {
	case 1:
		language = ledger.PlutusV1
	case 2:
		language = ledger.PlutusV2
	case 3:
		language = ledger.PlutusV3
	default:
		fmt.Printf("ERROR: unknown plutus version: %d\n", cmdlineFlags.plutusVersion)
		os.Exit(1)
	}

	var scriptData []byte
	var err error
	if cmdlineFlags.scriptData != "" {
		scriptData, err = hex.DecodeString(cmdlineFlags.scriptData)
	} else {
		scriptData, err = os.ReadFile(cmdlineFlags.scriptPath)
	}
	if err != nil {
		fmt.Printf("ERROR: failed to read script: %s\n", err)
		os.Exit(1)
	}

	script := ledger.NewPlutusScript(language, scriptData)
	scriptHash := script.Hash()
	address := ledger.NewEnterpriseAddress(net, ledger.NewScriptHashCredential(scriptHash))

	fmt.Printf("Script hash:    %x\n", scriptHash)
	fmt.Printf("Script address: %s\n", address.String())
}
