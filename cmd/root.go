// Package cmd wires up the CLI flags and dispatches to the pump core.
package cmd

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"polysock/config"
	"polysock/pump"
	"polysock/sock"
	"polysock/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X polysock/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs one pump configuration.
func Execute(ctx context.Context, args []string) error {
	env := config.LoadFromEnv()

	fs := flag.NewFlagSet("polysock", flag.ContinueOnError)

	// ── endpoints ────────────────────────────────────────────────
	fromDev := fs.StringP("from-dev", "f", env.FromDev, "The first endpoint to bind")
	toDev := fs.StringP("to-dev", "t", env.ToDev, "The second endpoint to bind")
	fromParams := fs.String("from-params", env.FromParams, "First endpoint parameters (JSON object)")
	toParams := fs.String("to-params", env.ToParams, "Second endpoint parameters (JSON object)")
	exchange := fs.StringP("exchange-mode", "e", env.Exchange, "Exchange mode: unidir or bidir")

	// ── tracing ──────────────────────────────────────────────────
	traceInfo := fs.Bool("trace-info", env.TraceInfo, "Endpoint info tracing")
	traceRaw := fs.Bool("trace-raw", env.TraceRaw, "Data tracing in raw (decimal array) format")
	traceCanon := fs.Bool("trace-canon", env.TraceCanon, "Data tracing in canonical (hex dump) format")
	traceFromOff := fs.Bool("trace-from-off", false, "Disable all tracing for the from endpoint")
	traceToOff := fs.Bool("trace-to-off", false, "Disable all tracing for the to endpoint")

	// ── output ───────────────────────────────────────────────────
	verbose := fs.CountP("verbose", "v", "Increase verbosity (repeatable)")
	listDevs := fs.Bool("list-devs", false, "List endpoint kinds with parameter examples")
	showVersion := fs.Bool("version", false, "Print version and exit")
	showHelp := fs.BoolP("help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showHelp || len(args) == 0 {
		printUsage(fs)
		return nil
	}
	if *showVersion {
		fmt.Printf("polysock %s\n", version)
		return nil
	}
	if *listDevs {
		printDevs()
		return nil
	}

	// ── build configuration ──────────────────────────────────────
	cfg := &config.Config{
		From: config.EndpointSpec{Kind: config.EndpointKind(*fromDev)},
		To:   config.EndpointSpec{Kind: config.EndpointKind(*toDev)},
	}

	var err error
	if cfg.From.Params, err = config.ParseParams(*fromParams); err != nil {
		return fmt.Errorf("from-params: %w", err)
	}
	if cfg.To.Params, err = config.ParseParams(*toParams); err != nil {
		return fmt.Errorf("to-params: %w", err)
	}
	if cfg.Direction, err = config.ParseDirection(*exchange); err != nil {
		return err
	}

	facets := config.FacetSet{Info: *traceInfo, Raw: *traceRaw, Canonical: *traceCanon}
	cfg.Trace = config.DecoratorConfig{From: facets, To: facets}
	// The off switches are an explicit override, stronger than any
	// individually requested facet.
	if *traceFromOff {
		cfg.Trace.From = config.FacetSet{}
	}
	if *traceToOff {
		cfg.Trace.To = config.FacetSet{}
	}

	cfg.Verbose = *verbose
	if cfg.Verbose == 0 {
		cfg.Verbose = env.Verbose
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── run ──────────────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	return pump.New(cfg, logger).Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

func printDevs() {
	fmt.Println("Supported endpoint kinds:")
	for _, kind := range config.Kinds() {
		fmt.Printf("  %-11s %s\n", kind, sock.ParamsExample(kind))
	}
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `PolySock – socket multiplexing bridge v%s

Connects two endpoints (stdio, udp, tcp-client, tcp-server, test-gen)
and pumps data between them, optionally in both directions, with
composable trace decorators.

Usage:
  polysock -f <dev> -t <dev> [--from-params JSON] [--to-params JSON] [options]

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  polysock -f stdio -t udp --to-params '{"ip_dst": "127.0.0.1", "port_dst": 5150}'
  polysock -f udp --from-params '{"port_local": 5150}' -t tcp-server --to-params '{"port_local": 1234}'
  polysock -f tcp-client --from-params '{"ip_dst": "10.0.0.2", "port_dst": 9000}' -t stdio -e bidir --trace-canon
  polysock -f test-gen --from-params '{"pat": "text", "data": "ping", "cycle": 500000}' -t udp --to-params '{"ip_dst": "127.0.0.1", "port_dst": 5150}'
`)
}
