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
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"imagefusion/internal/domain"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// The json tags mirror the yaml names; they are what the schema validator sees.

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in" json:"telemetry_opt_in"`
	Theme          string `yaml:"theme" json:"theme"` // "system" | "light" | "dark"
	UndoDepth      int    `yaml:"undo_depth" json:"undo_depth"`
}

// PageDefaults seed the page settings of a new composition.
type PageDefaults struct {
	PageSize       string  `yaml:"page_size" json:"page_size"`
	Orientation    string  `yaml:"orientation" json:"orientation"`
	Layout         string  `yaml:"layout" json:"layout"`
	MarginMM       float64 `yaml:"margin_mm" json:"margin_mm"`
	SpacingMM      float64 `yaml:"spacing_mm" json:"spacing_mm"`
	CustomWidthMM  float64 `yaml:"custom_width_mm" json:"custom_width_mm"`
	CustomHeightMM float64 `yaml:"custom_height_mm" json:"custom_height_mm"`
	DPI            int     `yaml:"dpi" json:"dpi"`
}

type ExportConfig struct {
	OutDir      string   `yaml:"out_dir" json:"out_dir"`
	JPEGQuality float64  `yaml:"jpeg_quality" json:"jpeg_quality"`
	Formats     []string `yaml:"formats" json:"formats"`
	Preset      string   `yaml:"preset" json:"preset"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Source bool   `yaml:"source" json:"source"`
	File   string `yaml:"file" json:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version" json:"config_version"`
	General       GeneralConfig `yaml:"general" json:"general"`
	Page          PageDefaults  `yaml:"page" json:"page"`
	Export        ExportConfig  `yaml:"export" json:"export"`
	Logging       LoggingConfig `yaml:"logging" json:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	p := domain.DefaultPageConfig()
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system", UndoDepth: 100},
		Page: PageDefaults{
			PageSize:       string(p.Size),
			Orientation:    string(p.Orientation),
			Layout:         string(p.Layout),
			MarginMM:       p.MarginMM,
			SpacingMM:      p.SpacingMM,
			CustomWidthMM:  p.CustomWidthMM,
			CustomHeightMM: p.CustomHeightMM,
			DPI:            p.DPI,
		},
		Export:  ExportConfig{OutDir: "", JPEGQuality: 0.92, Formats: []string{"jpg"}},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath     = "IMF_CONFIG"
	EnvTelemetryOptIn = "IMF_TELEMETRY_OPT_IN"
	EnvPageSize       = "IMF_PAGE_SIZE"
	EnvDPI            = "IMF_DPI"
	EnvOutDir         = "IMF_OUT_DIR"
	EnvJPEGQuality    = "IMF_JPEG_QUALITY"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "IMF_LOG_LEVEL"
	EnvLogFormat = "IMF_LOG_FORMAT"
	EnvLogSource = "IMF_LOG_SOURCE"
	EnvLogFile   = "IMF_LOG_FILE"
)

// ConfigPath returns the per-user config file path. IMF_CONFIG takes precedence.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "ImageFusion")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "ImageFusion")
	default: // linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "imagefusion")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "imagefusion")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, merges environment
// overrides and validates the result.
func Load() (AppConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		return Defaults(), err
	}
	return LoadFrom(path)
}

// LoadFrom is Load for an explicit path. A missing file is not an error.
func LoadFrom(path string) (AppConfig, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		fileCfg := Defaults()
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the user config YAML to ConfigPath.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

// SaveTo validates cfg and writes it to path.
func SaveTo(path string, cfg AppConfig) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// PageConfig converts the page defaults into the editor's page settings.
func (c AppConfig) PageConfig() domain.PageConfig {
	p := domain.DefaultPageConfig()
	if s, ok := domain.ParsePageSize(c.Page.PageSize); ok {
		p.Size = s
	}
	if strings.EqualFold(c.Page.Orientation, string(domain.Landscape)) {
		p.Orientation = domain.Landscape
	}
	if l, ok := domain.ParseLayout(c.Page.Layout); ok {
		p.Layout = l
	}
	p.MarginMM = c.Page.MarginMM
	p.SpacingMM = c.Page.SpacingMM
	p.CustomWidthMM = c.Page.CustomWidthMM
	p.CustomHeightMM = c.Page.CustomHeightMM
	if c.Page.DPI > 0 {
		p.DPI = c.Page.DPI
	}
	return p
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = strings.ToLower(strings.TrimSpace(src.General.Theme))
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if src.General.UndoDepth != 0 {
		dst.General.UndoDepth = src.General.UndoDepth
	}
	// page: src starts from Defaults, so explicit zeros in the file survive
	dst.Page = src.Page
	dst.Page.PageSize = strings.ToUpper(strings.TrimSpace(src.Page.PageSize))
	dst.Page.Orientation = strings.ToUpper(strings.TrimSpace(src.Page.Orientation))
	dst.Page.Layout = strings.ToUpper(strings.TrimSpace(src.Page.Layout))
	// export
	dst.Export.OutDir = strings.TrimSpace(src.Export.OutDir)
	if src.Export.JPEGQuality != 0 {
		dst.Export.JPEGQuality = src.Export.JPEGQuality
	}
	if len(src.Export.Formats) > 0 {
		dst.Export.Formats = make([]string, 0, len(src.Export.Formats))
		for _, f := range src.Export.Formats {
			dst.Export.Formats = append(dst.Export.Formats, strings.ToLower(strings.TrimSpace(f)))
		}
	}
	dst.Export.Preset = strings.ToLower(strings.TrimSpace(src.Export.Preset))
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvPageSize)); v != "" {
		cfg.Page.PageSize = strings.ToUpper(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvDPI)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Page.DPI = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvOutDir)); v != "" {
		cfg.Export.OutDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvJPEGQuality)); v != "" {
		if q, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Export.JPEGQuality = q
		}
	}
	// logging overrides
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

var envKeys = map[string]string{
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"page.page_size":           EnvPageSize,
	"page.dpi":                 EnvDPI,
	"export.out_dir":           EnvOutDir,
	"export.jpeg_quality":      EnvJPEGQuality,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envKeys[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// EnvKeys lists the config keys that can be overridden from the environment, sorted.
func EnvKeys() []string {
	keys := make([]string, 0, len(envKeys))
	for k := range envKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
