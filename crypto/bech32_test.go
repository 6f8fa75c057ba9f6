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

package crypto

import (
	"bytes"
	"testing"
)

func TestBech32RoundTrip(t *testing.T) {
	raw := make([]byte, 29)
	for i := range raw {
		raw[i] = byte(i * 7)
	}
	encoded, err := EncodeBech32(HRPAddrMainnet, raw)
	if err != nil {
		t.Fatal(err)
	}
	hrp, decoded, err := DecodeBech32(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if hrp != HRPAddrMainnet {
		t.Errorf("expected hrp %q, got %q", HRPAddrMainnet, hrp)
	}
	if !bytes.Equal(decoded, raw) {
		t.Errorf("round trip mismatch: got % x want % x", decoded, raw)
	}
}

func TestBase58RoundTrip(t *testing.T) {
	raw := []byte{0x00, 0x01, 0x02, 0xff, 0xfe, 0x10, 0x20}
	encoded := EncodeBase58(raw)
	decoded, err := DecodeBase58(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decoded, raw) {
		t.Errorf("round trip mismatch: got % x want % x", decoded, raw)
	}
}
