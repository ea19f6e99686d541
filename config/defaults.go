package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags and environment variable loading.

const (
	// DefaultLocalIP is the bind address used when ip_local is not given.
	DefaultLocalIP = "0.0.0.0"

	// DefaultConnTimeout is the TCP connection timeout for tcp-client.
	DefaultConnTimeout = 30 * time.Second

	// MaxDatagramSize bounds one UDP read; a datagram larger than the
	// 16-bit UDP length field cannot exist.
	MaxDatagramSize = 64 * 1024

	// FanInBacklog is the number of fan-in frames a tcp-server buffers
	// between its client readers and the pump before readers block.
	FanInBacklog = 64
)
