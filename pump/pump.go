// Package pump orchestrates a run: it opens both configured
// endpoints, wraps them in their trace decorator chains, drives one or
// two transfer loops, and owns shutdown propagation so that every
// termination path (EOF, error, interrupt) leaves both endpoints
// closed.
package pump

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"polysock/config"
	perrors "polysock/internal/errors"
	"polysock/internal/metrics"
	"polysock/sock"
	"polysock/util"
)

// State is the pump lifecycle phase.
type State int32

const (
	Idle State = iota
	Opening
	Running
	Draining
	Closed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Opening:
		return "opening"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Closed:
		return "closed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Pump moves frames between the two configured endpoints.
type Pump struct {
	cfg     *config.Config
	logger  *util.Logger
	metrics *metrics.Collector
	trace   io.Writer

	state atomic.Int32
}

// New returns a pump for cfg.  Trace lines go to stdout unless
// redirected with SetTraceOutput.
func New(cfg *config.Config, logger *util.Logger) *Pump {
	return &Pump{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
		trace:   os.Stdout,
	}
}

// SetTraceOutput redirects the decorator trace stream.
func (p *Pump) SetTraceOutput(w io.Writer) { p.trace = w }

// Metrics exposes the run's counters.
func (p *Pump) Metrics() *metrics.Collector { return p.metrics }

// State returns the current lifecycle phase.
func (p *Pump) State() State { return State(p.state.Load()) }

func (p *Pump) setState(s State) { p.state.Store(int32(s)) }

// Run executes one complete pump lifecycle and blocks until both
// endpoints are closed.  The returned error classifies the failure
// for exit-code mapping; a graceful EOF on either side is success.
func (p *Pump) Run(ctx context.Context) error {
	if err := p.cfg.Validate(); err != nil {
		p.setState(Failed)
		return err
	}

	p.setState(Opening)
	opts := sock.Options{
		Labels:  sock.NewLabels(),
		Logger:  p.logger,
		Metrics: p.metrics,
	}

	// Open order is fixed: from, then to.  Any failure here reaches
	// Failed with neither endpoint left open.
	from, err := p.buildEndpoint(ctx, p.cfg.From, p.cfg.Trace.From, opts)
	if err != nil {
		p.setState(Failed)
		return err
	}
	to, err := p.buildEndpoint(ctx, p.cfg.To, p.cfg.Trace.To, opts)
	if err != nil {
		from.Close()
		p.setState(Failed)
		return err
	}

	p.setState(Running)
	p.logger.Verbose("pump running: %s -> %s (%s)", from.Describe(), to.Describe(), p.cfg.Direction)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Closing is the shutdown signal: it unblocks every pending read
	// on both sides.  Exactly once, reverse-open order.
	var closeOnce sync.Once
	shutdown := func() {
		p.setState(Draining)
		to.Close()
		from.Close()
	}
	go func() {
		<-runCtx.Done()
		closeOnce.Do(shutdown)
	}()

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		errCh <- p.loop(from, to, false)
		cancel()
	}()

	if p.cfg.Direction == config.Bidirectional {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- p.loop(to, from, true)
			cancel()
		}()
	}

	wg.Wait()
	closeOnce.Do(shutdown)
	close(errCh)
	p.setState(Closed)

	if p.logger.Level() >= util.LogVerbose {
		p.logger.Verbose("run finished:\n%s", p.metrics.JSON())
	}

	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

// buildEndpoint constructs, decorates, and opens one side.
func (p *Pump) buildEndpoint(ctx context.Context, spec config.EndpointSpec, facets config.FacetSet, opts sock.Options) (sock.Endpoint, error) {
	ep, err := sock.New(spec, opts)
	if err != nil {
		return nil, err
	}
	ep = sock.Decorate(ep, facets, p.trace)
	if err := ep.Open(ctx); err != nil {
		return nil, err
	}
	return ep, nil
}

// loop moves frames src → dst until the source ends (EOF or teardown)
// or an operation fails.  Disconnect-class errors end the loop
// gracefully; anything else is returned for classification.
func (p *Pump) loop(src, dst sock.Endpoint, backward bool) error {
	for {
		f, err := src.Read()
		if err != nil {
			if perrors.IsDisconnect(err) {
				p.logger.Verbose("transfer loop done: source reached end of stream")
				return nil
			}
			p.metrics.RecordError(err.Error())
			return asNetworkError("read", err)
		}

		if err := dst.Write(f); err != nil {
			if perrors.IsDisconnect(err) {
				p.logger.Verbose("transfer loop done: destination closed")
				return nil
			}
			p.metrics.RecordError(err.Error())
			return asNetworkError("write", err)
		}
		p.metrics.FrameForwarded(len(f.Data), backward)
	}
}

// asNetworkError guarantees mid-run failures classify as I/O errors
// even when an endpoint returned a bare error.
func asNetworkError(op string, err error) error {
	var ne *perrors.NetworkError
	if perrors.As(err, &ne) {
		return err
	}
	return perrors.Wrap(op, "", err)
}
