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
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalid wraps every schema violation reported by Validate.
var ErrInvalid = errors.New("invalid configuration")

const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["config_version", "viewer", "history", "logging"],
  "properties": {
    "config_version": {"type": "integer", "minimum": 1},
    "viewer": {
      "type": "object",
      "properties": {
        "step_factor":       {"type": "number", "exclusiveMinimum": 1, "maximum": 4},
        "step_limit":        {"type": "number", "exclusiveMinimum": 1},
        "band_min_ratio":    {"type": "number", "exclusiveMinimum": 0, "maximum": 1},
        "band_max_ratio":    {"type": "number", "minimum": 1},
        "label_duration_ms": {"type": "integer", "minimum": 0},
        "default_tool":      {"enum": ["pan", "zoom_in", "zoom_out"]}
      }
    },
    "history": {
      "type": "object",
      "properties": {
        "max_per_image": {"type": "integer", "minimum": 0},
        "max_entries":   {"type": "integer", "minimum": 0},
        "coalesce_ms":   {"type": "integer", "minimum": 0},
        "keep_views":    {"type": "integer", "minimum": 0}
      }
    },
    "logging": {
      "type": "object",
      "properties": {
        "level":  {"enum": ["debug", "info", "warn", "warning", "error"]},
        "format": {"enum": ["console", "json"]}
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(schemaJSON)

// Validate checks cfg against the embedded JSON schema.
func Validate(cfg AppConfig) error {
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(cfg))
	if err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}
