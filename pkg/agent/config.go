package agent

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DefaultAlpha is the learning rate of the tuple-network player
const DefaultAlpha = 0.02

// Config holds the options an agent accepts.
//
// It is parsed once from a whitespace separated list of key=value tokens,
// e.g. "name=td alpha=0.01 load=weights.bin save=weights.bin seed=7".
// A key given without a value is a boolean flag set to true.
type Config struct {
	Name    string  // display name, defaults per kind
	Role    string  // "player" or "environment", defaults per kind
	Alpha   float32 // learning rate
	Init    bool    // start from freshly zeroed tables
	Load    string  // weights file read at construction
	Save    string  // weights file written by Close
	Seed    int64   // shuffle seed, only meaningful when HasSeed
	HasSeed bool
}

// DefaultConfig returns the configuration used when no arguments are given
func DefaultConfig() Config {
	return Config{Alpha: DefaultAlpha}
}

// ParseConfig parses agent arguments on top of DefaultConfig
func ParseConfig(args string) (Config, error) {
	cfg := DefaultConfig()
	for _, token := range strings.Fields(args) {
		key, value, hasValue := strings.Cut(token, "=")
		switch key {
		case "name":
			cfg.Name = value
		case "role":
			cfg.Role = value
		case "alpha":
			a, err := strconv.ParseFloat(value, 32)
			if err != nil {
				return cfg, errors.Wrapf(err, "failed to parse configuration alpha=%q to float", value)
			}
			if a < 0 {
				return cfg, errors.Errorf("alpha must not be negative, got %g", a)
			}
			cfg.Alpha = float32(a)
		case "init":
			b, err := parseFlag(value, hasValue)
			if err != nil {
				return cfg, errors.WithMessagef(err, "configuration init=%q", value)
			}
			cfg.Init = b
		case "load":
			if value == "" {
				return cfg, errors.New("load needs a path")
			}
			cfg.Load = value
		case "save":
			if value == "" {
				return cfg, errors.New("save needs a path")
			}
			cfg.Save = value
		case "seed":
			s, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return cfg, errors.Wrapf(err, "failed to parse configuration seed=%q to int", value)
			}
			cfg.Seed, cfg.HasSeed = s, true
		default:
			return cfg, errors.Errorf("unknown agent option %q", key)
		}
	}
	return cfg, nil
}

// MustParseConfig is like ParseConfig but panics on error
func MustParseConfig(args string) Config {
	cfg, err := ParseConfig(args)
	if err != nil {
		panic(err)
	}
	return cfg
}

func parseFlag(value string, hasValue bool) (bool, error) {
	if !hasValue || value == "" {
		return true, nil
	}
	switch strings.ToLower(value) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, errors.New("failed to parse bool")
}
