package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the PSOCK_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// EnvOverlay holds the raw environment view; cmd applies it before
// flag parsing so that flags take precedence.
type EnvOverlay struct {
	FromDev    string
	ToDev      string
	FromParams string
	ToParams   string
	Exchange   string
	TraceInfo  bool
	TraceRaw   bool
	TraceCanon bool
	Verbose    int
}

// LoadFromEnv reads every PSOCK_* variable into an overlay.  Only
// non-empty values are meaningful; cmd skips the rest.
func LoadFromEnv() EnvOverlay {
	return EnvOverlay{
		FromDev:    os.Getenv("PSOCK_FROM_DEV"),
		ToDev:      os.Getenv("PSOCK_TO_DEV"),
		FromParams: os.Getenv("PSOCK_FROM_PARAMS"),
		ToParams:   os.Getenv("PSOCK_TO_PARAMS"),
		Exchange:   os.Getenv("PSOCK_EXCHANGE_MODE"),
		TraceInfo:  envBool("PSOCK_TRACE_INFO"),
		TraceRaw:   envBool("PSOCK_TRACE_RAW"),
		TraceCanon: envBool("PSOCK_TRACE_CANON"),
		Verbose:    envInt("PSOCK_VERBOSE"),
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}
