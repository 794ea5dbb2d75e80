// Package config loads the bot configuration from config.json (or YAML) with
// environment overrides, and holds the current value for the rest of the process.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the runtime configuration of the bot.
type Config struct {
	Token   string `json:"token"    yaml:"token"    env:"PREREQBOT_TOKEN"    validate:"required"`
	Prefix  string `json:"prefix"   yaml:"prefix"   env:"PREREQBOT_PREFIX"   validate:"required"`
	AuditDB string `json:"audit_db" yaml:"audit_db" env:"PREREQBOT_AUDIT_DB"`
}

// Reason says why a configuration could not be loaded.
type Reason string

const (
	ReasonUnreadable   Reason = "unreadable"
	ReasonMalformed    Reason = "malformed"
	ReasonMissingField Reason = "missing field"
)

// ErrLoad matches every *LoadError via errors.Is.
var ErrLoad = errors.New("config load failed")

// LoadError reports a failed load or reload.
type LoadError struct {
	Path   string
	Reason Reason
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load config %s: %s: %v", e.Path, e.Reason, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrLoad }

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
}

// Read decodes, overrides and validates the configuration at path.
// It has no side effects; Store.Load and Store.Reload are built on it.
func Read(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &LoadError{Path: path, Reason: ReasonUnreadable, Err: err}
	}

	cfg, err := decode(path, data)
	if err != nil {
		return Config{}, &LoadError{Path: path, Reason: ReasonMalformed, Err: err}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, &LoadError{Path: path, Reason: ReasonMalformed, Err: fmt.Errorf("parse env: %w", err)}
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, &LoadError{Path: path, Reason: ReasonMissingField, Err: missingFields(err)}
	}
	return cfg, nil
}

func decode(path string, data []byte) (Config, error) {
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		// config.json is written by hand and may carry a UTF-8 BOM.
		data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode json: %w", err)
		}
	}
	return cfg, nil
}

func missingFields(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		names = append(names, fe.Field())
	}
	return fmt.Errorf("required: %s", strings.Join(names, ", "))
}
