/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package viewer

import (
	"time"

	"picviewer/internal/config"
	"picviewer/internal/history"
)

// FromAppConfig maps the user configuration onto a ControllerConfig with a fresh history.
// Store and Events are left for the caller to set.
func FromAppConfig(app config.AppConfig) ControllerConfig {
	vc, hc := app.Viewer, app.History
	tool, err := ParseTool(vc.DefaultTool)
	if err != nil {
		tool = ToolPan
	}
	return ControllerConfig{
		Options: Options{
			StepFactor:   vc.StepFactor,
			StepLimit:    vc.StepLimit,
			BandMinRatio: vc.BandMinRatio,
			BandMaxRatio: vc.BandMaxRatio,
		},
		LabelDuration:   vc.LabelDuration(),
		Tool:            tool,
		RestoreLastView: vc.RestoreLastView,
		History: history.NewManager(history.Config{
			MaxPerKey:   hc.MaxPerImage,
			MaxEntries:  hc.MaxEntries,
			MinInterval: time.Duration(hc.CoalesceMs) * time.Millisecond,
		}),
	}
}
