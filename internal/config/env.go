package config

import (
	"os"
	"regexp"
	"strings"
)

// envVarPattern matches ${VAR} or ${VAR:default}, the teacher's
// substitution syntax (config/env.go).
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// SubstituteEnvVars replaces ${VAR} / ${VAR:default} with the named
// environment variable's value, or the default if unset.
func SubstituteEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		varName, defaultValue := parts[1], ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}
		if v := os.Getenv(varName); v != "" {
			return v
		}
		return defaultValue
	})
}

// SubstituteEnvVarsInConfig recursively substitutes every string field
// that may carry a ${VAR} reference.
func SubstituteEnvVarsInConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Durable.DSN = SubstituteEnvVars(cfg.Durable.DSN)
	cfg.Volatile.Addr = SubstituteEnvVars(cfg.Volatile.Addr)
	cfg.Volatile.Password = SubstituteEnvVars(cfg.Volatile.Password)
	cfg.Adapters.ObjectStoreBaseURL = SubstituteEnvVars(cfg.Adapters.ObjectStoreBaseURL)
	cfg.Adapters.PushVendorKey = SubstituteEnvVars(cfg.Adapters.PushVendorKey)
	cfg.Adapters.TURNRealmSecret = SubstituteEnvVars(cfg.Adapters.TURNRealmSecret)
}

// applyEnvironmentOverrides lets a handful of WHISPER2_* variables win
// over the file even after substitution, for container deployments that
// inject secrets directly rather than via ${VAR} references.
func applyEnvironmentOverrides(cfg *Config) {
	if dsn := os.Getenv("WHISPER2_DURABLE_DSN"); dsn != "" {
		cfg.Durable.DSN = dsn
	}
	if addr := os.Getenv("WHISPER2_VOLATILE_ADDR"); addr != "" {
		cfg.Volatile.Addr = addr
	}
	if level := os.Getenv("WHISPER2_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if os.Getenv("WHISPER2_METRICS_ENABLED") == "true" {
		cfg.Metrics.Enabled = true
	}
	if os.Getenv("WHISPER2_METRICS_ENABLED") == "false" {
		cfg.Metrics.Enabled = false
	}
}

// GetEnvironment returns WHISPER2_ENV, falling back to ENVIRONMENT, then
// "development".
func GetEnvironment() string {
	env := os.Getenv("WHISPER2_ENV")
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" {
		env = "development"
	}
	return strings.ToLower(env)
}

func IsProduction() bool { return GetEnvironment() == "production" }
