/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaBytes []byte

// ErrInvalid marks a configuration that does not satisfy the schema.
var ErrInvalid = errors.New("invalid configuration")

var schemaLoader = gojsonschema.NewBytesLoader(schemaBytes)

// Validate checks cfg against the embedded JSON schema (ranges, enums, presets).
func Validate(cfg AppConfig) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(cfg))
	if err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}
