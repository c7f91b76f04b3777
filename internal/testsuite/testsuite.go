// Copyright 2024 Ross Light
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package testsuite provides CommonMark conformance cases
// shared by the tests of the parser, renderer, and formatter.
package testsuite

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Case is a single conformance case.
type Case struct {
	Markdown string `yaml:"markdown"`
	HTML     string `yaml:"html"`
	Example  int    `yaml:"example"`
	Section  string `yaml:"section"`
}

//go:embed commonmark.yaml
var commonmarkData []byte

// Load returns the CommonMark conformance cases.
func Load() ([]Case, error) {
	var cases []Case
	if err := yaml.Unmarshal(commonmarkData, &cases); err != nil {
		return nil, fmt.Errorf("load conformance cases: %w", err)
	}
	return cases, nil
}
