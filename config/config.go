// Package config defines the runtime configuration for polysock and
// provides helpers for parsing endpoint parameter maps.
package config

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"

	perrors "polysock/internal/errors"
)

// EndpointKind selects one of the supported endpoint variants.
type EndpointKind string

const (
	KindStdio     EndpointKind = "stdio"
	KindUDP       EndpointKind = "udp"
	KindTCPClient EndpointKind = "tcp-client"
	KindTCPServer EndpointKind = "tcp-server"
	KindTestGen   EndpointKind = "test-gen"
)

// Kinds lists every supported endpoint kind in display order.
func Kinds() []EndpointKind {
	return []EndpointKind{KindStdio, KindUDP, KindTCPClient, KindTCPServer, KindTestGen}
}

// Valid reports whether k names a supported endpoint kind.
func (k EndpointKind) Valid() bool {
	switch k {
	case KindStdio, KindUDP, KindTCPClient, KindTCPServer, KindTestGen:
		return true
	}
	return false
}

// ── Parameters ───────────────────────────────────────────────────────

// Recognized parameter keys.  Validation happens lazily at endpoint
// open time against the requirements of the selected kind.
const (
	KeyIPLocal   = "ip_local"
	KeyIPDst     = "ip_dst"
	KeyPortLocal = "port_local"
	KeyPortDst   = "port_dst"
)

// Params is the key/value parameter mapping of one endpoint.  Values
// are kept as strings; typed accessors validate on demand.
type Params map[string]string

// ParseParams decodes a JSON object into a Params map.  Numeric and
// boolean values are coerced to their string form so that
// {"port_dst": 5150} and {"port_dst": "5150"} are equivalent.
func ParseParams(s string) (Params, error) {
	if s == "" {
		return Params{}, nil
	}
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("parameters must be a JSON object: %w", err)
	}
	p := make(Params, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			p[k] = val
		case float64:
			// JSON numbers arrive as float64; ports and sizes are
			// integral, so render without an exponent.
			p[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			p[k] = strconv.FormatBool(val)
		default:
			return nil, fmt.Errorf("parameter %q: unsupported value type %T", k, v)
		}
	}
	return p, nil
}

// Int returns the named parameter parsed as a non-negative integer.
// A missing key returns (0, false, nil).
func (p Params) Int(key string) (int, bool, error) {
	v, ok := p[key]
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, true, perrors.Config(key, v, "not a number")
	}
	if n < 0 {
		return 0, true, perrors.Config(key, v, "must not be negative")
	}
	return n, true, nil
}

// Port returns the named parameter parsed as a port number.  A missing
// key returns (0, false, nil); a present but invalid value is a
// ConfigError.
func (p Params) Port(key string) (int, bool, error) {
	v, ok := p[key]
	if !ok {
		return 0, false, nil
	}
	port, err := strconv.Atoi(v)
	if err != nil {
		return 0, true, perrors.Config(key, v, "not a number")
	}
	if port < 0 || port > 65535 {
		return 0, true, perrors.Config(key, v, "port out of range 0-65535")
	}
	return port, true, nil
}

// RequirePort is Port for parameters the endpoint cannot do without.
func (p Params) RequirePort(key, hint string) (int, error) {
	port, ok, err := p.Port(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, perrors.Missing(key, hint)
	}
	return port, nil
}

// IP returns the named parameter validated as an IP address.  A missing
// key returns ("", false, nil).
func (p Params) IP(key string) (string, bool, error) {
	v, ok := p[key]
	if !ok {
		return "", false, nil
	}
	if net.ParseIP(v) == nil {
		return "", true, perrors.Config(key, v, "not a valid IP address")
	}
	return v, true, nil
}

// RequireIP is IP for parameters the endpoint cannot do without.
func (p Params) RequireIP(key, hint string) (string, error) {
	ip, ok, err := p.IP(key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", perrors.Missing(key, hint)
	}
	return ip, nil
}

// LocalIP returns ip_local or the wildcard default.
func (p Params) LocalIP() (string, error) {
	ip, ok, err := p.IP(KeyIPLocal)
	if err != nil {
		return "", err
	}
	if !ok {
		return DefaultLocalIP, nil
	}
	return ip, nil
}

// ── Endpoint specification ───────────────────────────────────────────

// EndpointSpec is the resolved configuration of one side of the pump:
// a kind tag plus its parameter mapping.  Pure data; parameter
// validation against the kind happens at open time.
type EndpointSpec struct {
	Kind   EndpointKind
	Params Params
}

// ── Direction & tracing ──────────────────────────────────────────────

// Direction selects how many transfer loops the pump runs.
type Direction int

const (
	Unidirectional Direction = iota
	Bidirectional
)

func (d Direction) String() string {
	if d == Bidirectional {
		return "bidir"
	}
	return "unidir"
}

// ParseDirection accepts the CLI spellings "unidir" and "bidir".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "unidir", "":
		return Unidirectional, nil
	case "bidir":
		return Bidirectional, nil
	}
	return Unidirectional, fmt.Errorf("invalid exchange mode %q (want unidir or bidir)", s)
}

// FacetSet selects which trace decorators wrap one side of the pump.
type FacetSet struct {
	Info      bool
	Raw       bool
	Canonical bool
}

// Empty reports whether no facet is enabled.
func (f FacetSet) Empty() bool { return !f.Info && !f.Raw && !f.Canonical }

// DecoratorConfig carries the per-side facet selection.  An "off"
// override for a side is expressed by an empty set, applied by the CLI
// layer regardless of individually requested facets.
type DecoratorConfig struct {
	From FacetSet
	To   FacetSet
}

// ── Top-level configuration ──────────────────────────────────────────

// Config holds everything one pump run needs.
type Config struct {
	From      EndpointSpec
	To        EndpointSpec
	Direction Direction
	Trace     DecoratorConfig

	Verbose int
}

// Validate checks that the configuration is internally consistent.
// Parameter contents are validated later, at endpoint open time.
func (c *Config) Validate() error {
	if c.From.Kind == "" {
		return perrors.Missing("from-dev", "e.g. --from-dev stdio")
	}
	if !c.From.Kind.Valid() {
		return perrors.Config("from-dev", string(c.From.Kind), "unknown endpoint kind")
	}
	if c.To.Kind == "" {
		return perrors.Missing("to-dev", "e.g. --to-dev udp")
	}
	if !c.To.Kind.Valid() {
		return perrors.Config("to-dev", string(c.To.Kind), "unknown endpoint kind")
	}
	return nil
}
