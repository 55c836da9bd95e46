/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package config loads the per-user viewer configuration.
// The YAML file holds user preferences; PV_* environment variables are read-only
// overrides applied on top. The history database password never touches the file:
// it lives in the OS keyring and is merged into the DSN at runtime.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ViewerConfig tunes the transform engine and the gesture controller.
type ViewerConfig struct {
	StepFactor      float64 `yaml:"step_factor" json:"step_factor"`
	StepLimit       float64 `yaml:"step_limit" json:"step_limit"`
	BandMinRatio    float64 `yaml:"band_min_ratio" json:"band_min_ratio"`
	BandMaxRatio    float64 `yaml:"band_max_ratio" json:"band_max_ratio"`
	LabelDurationMs int     `yaml:"label_duration_ms" json:"label_duration_ms"`
	DefaultTool     string  `yaml:"default_tool" json:"default_tool"` // "pan" | "zoom_in" | "zoom_out"
	RestoreLastView bool    `yaml:"restore_last_view" json:"restore_last_view"`
}

// LabelDuration returns how long the zoom percentage stays on screen.
func (v ViewerConfig) LabelDuration() time.Duration {
	return time.Duration(v.LabelDurationMs) * time.Millisecond
}

// HistoryConfig controls back/forward stacks and the last-view store.
type HistoryConfig struct {
	// DSN is a SQLite file path or a postgres:// URL. Empty means history.sqlite
	// next to the config file.
	DSN         string `yaml:"dsn" json:"dsn"`
	MaxPerImage int    `yaml:"max_per_image" json:"max_per_image"`
	// MaxEntries caps the in-memory back/forward entries over all images.
	MaxEntries  int    `yaml:"max_entries" json:"max_entries"`
	CoalesceMs  int    `yaml:"coalesce_ms" json:"coalesce_ms"`
	// KeepViews is how many stored last views survive pruning at start-up.
	KeepViews   int    `yaml:"keep_views" json:"keep_views"`
}

type GeneralConfig struct {
	TelemetryOptIn bool `yaml:"telemetry_opt_in" json:"telemetry_opt_in"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Source bool   `yaml:"source" json:"source"`
	File   string `yaml:"file" json:"file"`
}

// AppConfig is the user-editable configuration.
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version" json:"config_version"`
	General       GeneralConfig `yaml:"general" json:"general"`
	Viewer        ViewerConfig  `yaml:"viewer" json:"viewer"`
	History       HistoryConfig `yaml:"history" json:"history"`
	Logging       LoggingConfig `yaml:"logging" json:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false},
		Viewer: ViewerConfig{
			StepFactor:      1.2,
			StepLimit:       5,
			BandMinRatio:    0.1,
			BandMaxRatio:    10,
			LabelDurationMs: 3000,
			DefaultTool:     "pan",
		},
		History: HistoryConfig{MaxPerImage: 50, MaxEntries: 1000, CoalesceMs: 250, KeepViews: 500},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath      = "PV_CONFIG"
	EnvHistoryDSN      = "PV_HISTORY_DSN"
	EnvTelemetryOptIn  = "PV_TELEMETRY_OPT_IN"
	EnvDefaultTool     = "PV_DEFAULT_TOOL"
	EnvRestoreLastView = "PV_RESTORE_LAST_VIEW"
	EnvLogLevel        = "PV_LOG_LEVEL"
	EnvLogFormat       = "PV_LOG_FORMAT"
	EnvLogSource       = "PV_LOG_SOURCE"
	EnvLogFile         = "PV_LOG_FILE"
)

// ConfigPath returns the per-user config file path, or PV_CONFIG when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "PicViewer")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "PicViewer")
	default:
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "picviewer")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "picviewer")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the config file (if present) over the defaults, applies environment
// overrides and validates the result. It also returns the history database password
// from the keyring (empty when none is stored).
// On a parse or validation error the defaults with env overrides are returned
// together with the error, so callers can warn and keep going.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		applyEnvOverrides(&cfg)
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			cfg = Defaults()
			applyEnvOverrides(&cfg)
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	} else if !errors.Is(err, os.ErrNotExist) {
		applyEnvOverrides(&cfg)
		return cfg, "", fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	if err := Validate(cfg); err != nil {
		def := Defaults()
		applyEnvOverrides(&def)
		return def, "", fmt.Errorf("%s: %w", path, err)
	}
	secret, _ := secretStore.Get(keyringService, keyringDBPassword)
	return cfg, secret, nil
}

// Save validates cfg, writes it as YAML and stores a non-empty password in the keyring.
func Save(cfg AppConfig, dbPassword string) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if dbPassword != "" {
		if err := secretStore.Set(keyringService, keyringDBPassword, dbPassword); err != nil {
			return fmt.Errorf("store password: %w", err)
		}
	}
	return nil
}

// ResolveHistoryDSN returns the DSN the history store should open. An empty DSN maps
// to history.sqlite beside the config file; a postgres URL without a password gets
// password injected.
func ResolveHistoryDSN(h HistoryConfig, password string) (string, error) {
	dsn := strings.TrimSpace(h.DSN)
	if dsn == "" {
		path, err := ConfigPath()
		if err != nil {
			return "", err
		}
		return filepath.Join(filepath.Dir(path), "history.sqlite"), nil
	}
	if password == "" || !(strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")) {
		return dsn, nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse history dsn: %w", err)
	}
	if u.User != nil {
		if _, set := u.User.Password(); set {
			return dsn, nil
		}
		u.User = url.UserPassword(u.User.Username(), password)
	}
	return u.String(), nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn

	v := src.Viewer
	if v.StepFactor != 0 {
		dst.Viewer.StepFactor = v.StepFactor
	}
	if v.StepLimit != 0 {
		dst.Viewer.StepLimit = v.StepLimit
	}
	if v.BandMinRatio != 0 {
		dst.Viewer.BandMinRatio = v.BandMinRatio
	}
	if v.BandMaxRatio != 0 {
		dst.Viewer.BandMaxRatio = v.BandMaxRatio
	}
	if v.LabelDurationMs != 0 {
		dst.Viewer.LabelDurationMs = v.LabelDurationMs
	}
	if t := strings.TrimSpace(v.DefaultTool); t != "" {
		dst.Viewer.DefaultTool = strings.ToLower(t)
	}
	dst.Viewer.RestoreLastView = v.RestoreLastView

	h := src.History
	if strings.TrimSpace(h.DSN) != "" {
		dst.History.DSN = strings.TrimSpace(h.DSN)
	}
	if h.MaxPerImage != 0 {
		dst.History.MaxPerImage = h.MaxPerImage
	}
	if h.MaxEntries != 0 {
		dst.History.MaxEntries = h.MaxEntries
	}
	if h.CoalesceMs != 0 {
		dst.History.CoalesceMs = h.CoalesceMs
	}
	if h.KeepViews != 0 {
		dst.History.KeepViews = h.KeepViews
	}

	if s := strings.TrimSpace(src.Logging.Level); s != "" {
		dst.Logging.Level = strings.ToLower(s)
	}
	if s := strings.TrimSpace(src.Logging.Format); s != "" {
		dst.Logging.Format = strings.ToLower(s)
	}
	dst.Logging.Source = src.Logging.Source
	if s := strings.TrimSpace(src.Logging.File); s != "" {
		dst.Logging.File = s
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvHistoryDSN)); v != "" {
		cfg.History.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvDefaultTool)); v != "" {
		cfg.Viewer.DefaultTool = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvRestoreLastView)); v != "" {
		cfg.Viewer.RestoreLastView = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func truthy(v string) bool {
	b, err := strconv.ParseBool(v)
	if err == nil {
		return b
	}
	lv := strings.ToLower(v)
	return lv == "on" || lv == "yes"
}

// EnvOverrideFor returns the env var name if the dotted key is currently overridden.
func EnvOverrideFor(key string) (string, bool) {
	names := map[string]string{
		"history.dsn":              EnvHistoryDSN,
		"general.telemetry_opt_in": EnvTelemetryOptIn,
		"viewer.default_tool":      EnvDefaultTool,
		"viewer.restore_last_view": EnvRestoreLastView,
		"logging.level":            EnvLogLevel,
		"logging.format":           EnvLogFormat,
		"logging.source":           EnvLogSource,
		"logging.file":             EnvLogFile,
	}
	if env, ok := names[key]; ok && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}
