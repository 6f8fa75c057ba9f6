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

// Package version holds the demo binary's build-time version string.
package version

// Version is set at build time via:
// go build -ldflags "-X github.com/blinklabs-io/txforge/internal/version.Version=v1.2.3"
var Version = "dev"

// GetVersionString returns the configured version, or "dev" if the
// binary was built without the ldflags override above.
func GetVersionString() string {
	return Version
}
