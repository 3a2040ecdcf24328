package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/conductor-ai/conductor/internal/logging"
)

var envPattern = regexp.MustCompile(`\{env:([^}]+)\}`)

// Load reads the provider file at path. JSON and JSONC are the primary
// formats; files ending in .yaml/.yml are parsed as YAML. If the file does
// not exist, a documented default set is written there and returned.
//
// Records that fail schema or semantic validation are skipped and reported
// in the returned error slice; valid records still load.
func Load(path string) ([]ProviderConfig, []error) {
	log := logging.For("config")

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		defaults := Defaults()
		if werr := writeDefaults(path, defaults); werr != nil {
			return nil, []error{fmt.Errorf("writing default config: %w", werr)}
		}
		log.Info().Str("path", path).Int("providers", len(defaults)).Msg("created default provider configuration")
		return defaults, nil
	}
	if err != nil {
		return nil, []error{fmt.Errorf("reading config: %w", err)}
	}

	data = interpolateEnv(data)

	var raw []json.RawMessage
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err = yamlRecords(data)
	default:
		raw, err = jsonRecords(data)
	}
	if err != nil {
		return nil, []error{&ConfigError{Reason: err.Error()}}
	}

	var (
		configs []ProviderConfig
		errs    []error
		seen    = make(map[string]bool)
	)
	for i, rec := range raw {
		cfg, err := parseRecord(rec)
		if err != nil {
			errs = append(errs, err)
			log.Warn().Int("index", i).Err(err).Msg("skipping invalid provider record")
			continue
		}
		if seen[cfg.Name] {
			errs = append(errs, &ConfigError{Name: cfg.Name, Reason: "duplicate provider name"})
			continue
		}
		seen[cfg.Name] = true
		configs = append(configs, cfg)
	}

	log.Info().Str("path", path).Int("providers", len(configs)).Msg("loaded provider configurations")
	return configs, errs
}

// parseRecord validates one raw record against the schema, decodes it, and
// applies semantic validation and defaults.
func parseRecord(rec json.RawMessage) (ProviderConfig, error) {
	if err := validateSchema(rec); err != nil {
		return ProviderConfig{}, err
	}
	var cfg ProviderConfig
	if err := json.Unmarshal(rec, &cfg); err != nil {
		return ProviderConfig{}, &ConfigError{Reason: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return ProviderConfig{}, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// jsonRecords splits a JSON/JSONC array into raw records.
func jsonRecords(data []byte) ([]json.RawMessage, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return nil, fmt.Errorf("provider file must be an array of records: %v", err)
	}
	return raw, nil
}

// yamlRecords converts a YAML sequence into raw JSON records so that one
// schema and decode path serves both formats.
func yamlRecords(data []byte) ([]json.RawMessage, error) {
	var seq []map[string]any
	if err := yaml.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("provider file must be a sequence of records: %v", err)
	}
	raw := make([]json.RawMessage, 0, len(seq))
	for _, m := range seq {
		b, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		raw = append(raw, b)
	}
	return raw, nil
}

// interpolateEnv resolves {env:VAR} placeholders.
func interpolateEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// writeDefaults persists the default provider set as indented JSON.
func writeDefaults(path string, configs []ProviderConfig) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(configs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
