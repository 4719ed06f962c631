// Package pubconfig loads publisher.config.json: the server-root manifest
// listing projects, their packages, and their connections (spec §3, §4.1).
//
// Loading is a JSON-parse followed by a tree walk that substitutes ${VAR}
// tokens in string values with environment variables, failing fatally on
// any referenced-but-unset variable. The substitution walker is grounded on
// the teacher's own env-aware config loading, generalized to operate over
// an arbitrary parsed JSON tree rather than a fixed struct, the way
// SnapdragonPartners-maestro's config loader substitutes into loaded
// config values with os.Getenv.
package pubconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/ekaya-inc/ekaya-engine/pkg/connections"
)

// tokenPattern matches the exact substitution syntax spec'd in §4.1: a
// leading underscore-or-uppercase-letter, then uppercase letters, digits,
// or underscores. Whitespace or lowercase inside the braces is not a match
// and is left literal.
var tokenPattern = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)

// ConfigError reports a config-loading failure, per spec §4.1 including the
// exact unset-env-var message callers match against.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// PackageConfig names a package within a project and where to fetch it from
// (spec §3, §4.2).
type PackageConfig struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// ProjectConfig is one entry in PublisherConfig.Projects.
type ProjectConfig struct {
	Name        string                   `json:"name"`
	Packages    []PackageConfig          `json:"packages"`
	Connections []connections.Definition `json:"connections,omitempty"`
}

// PublisherConfig is the parsed, substituted contents of publisher.config.json.
type PublisherConfig struct {
	FrozenConfig bool            `json:"frozenConfig"`
	Projects     []ProjectConfig `json:"projects"`
}

// fileName is the manifest's fixed name at the server root (spec §3).
const fileName = "publisher.config.json"

// Load reads and substitutes publisher.config.json under serverRoot. A
// missing file is not an error: it yields the default
// {frozenConfig:false, projects:[]}.
func Load(serverRoot string) (*PublisherConfig, error) {
	path := serverRoot + string(os.PathSeparator) + fileName
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &PublisherConfig{FrozenConfig: false, Projects: []ProjectConfig{}}, nil
		}
		return nil, &ConfigError{Message: fmt.Sprintf("reading %s: %v", fileName, err)}
	}

	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, &ConfigError{Message: fmt.Sprintf("parsing %s: %v", fileName, err)}
	}

	substituted, err := substitute(tree)
	if err != nil {
		return nil, err
	}

	resolved, err := json.Marshal(substituted)
	if err != nil {
		return nil, &ConfigError{Message: fmt.Sprintf("re-encoding %s: %v", fileName, err)}
	}

	var cfg PublisherConfig
	if err := json.Unmarshal(resolved, &cfg); err != nil {
		return nil, &ConfigError{Message: fmt.Sprintf("decoding %s: %v", fileName, err)}
	}
	for i := range cfg.Projects {
		for j := range cfg.Projects[i].Connections {
			if verr := cfg.Projects[i].Connections[j].Validate(); verr != nil {
				return nil, &ConfigError{Message: verr.Error()}
			}
		}
	}
	return &cfg, nil
}

// substitute walks a parsed JSON tree (map[string]any / []any / scalars) and
// replaces ${VAR} tokens in every string *value*. Object keys are never
// touched, matching spec §4.1.
func substitute(node any) (any, error) {
	switch v := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			resolved, err := substitute(val)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			resolved, err := substitute(val)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	case string:
		return substituteString(v)
	default:
		// numbers, bools, null pass through unchanged
		return v, nil
	}
}

func substituteString(s string) (string, error) {
	var failure error
	result := tokenPattern.ReplaceAllStringFunc(s, func(match string) string {
		if failure != nil {
			return match
		}
		name := tokenPattern.FindStringSubmatch(match)[1]
		val, ok := os.LookupEnv(name)
		if !ok {
			failure = &ConfigError{Message: fmt.Sprintf("Environment variable '${%s}' is not set in configuration file", name)}
			return match
		}
		return val
	})
	if failure != nil {
		return "", failure
	}
	return result, nil
}

// FrozenConfig reports whether the publisher config at serverRoot marks the
// catalog as read-only. All mutating operations must reject with
// apperrors.Frozen when this is true (spec §4.1, §6).
func FrozenConfig(serverRoot string) (bool, error) {
	cfg, err := Load(serverRoot)
	if err != nil {
		return false, err
	}
	return cfg.FrozenConfig, nil
}
