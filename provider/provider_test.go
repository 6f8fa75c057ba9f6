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

package provider

import (
	"errors"
	"testing"
)

func TestErrorUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := wrapErr("GetParameters", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped error to unwrap to the original cause")
	}
	if got := err.Error(); got == "" {
		t.Fatal("expected non-empty error message")
	}
}

func TestWrapErrPassesThroughNil(t *testing.T) {
	if wrapErr("op", nil) != nil {
		t.Fatal("expected wrapErr(_, nil) to return nil")
	}
}
