package sock

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"

	"polysock/config"
	perrors "polysock/internal/errors"
	"polysock/util"
)

// stdioEndpoint bridges the process's standard streams.  Reads happen
// on a dedicated goroutine feeding a channel, so Read stays
// cancellable by Close even though a blocked os.Stdin read cannot be
// interrupted portably.
type stdioEndpoint struct {
	label  string
	logger *util.Logger

	in     io.Reader
	out    io.Writer
	prompt bool // print the input prompt before each blocking read

	items chan stdioItem
	done  chan struct{}
	once  sync.Once
}

type stdioItem struct {
	frame Frame
	err   error
}

func newStdio(_ config.Params, opts Options) *stdioEndpoint {
	return &stdioEndpoint{
		label:  opts.Labels.assign(config.KindStdio),
		logger: opts.Logger,
		in:     os.Stdin,
		out:    os.Stdout,
		prompt: term.IsTerminal(int(os.Stdin.Fd())),
		items:  make(chan stdioItem, 1),
		done:   make(chan struct{}),
	}
}

func (s *stdioEndpoint) Open(_ context.Context) error {
	s.logger.Verbose("%s: attached to standard streams (prompt=%v)", s.label, s.prompt)
	go s.readLoop()
	return nil
}

func (s *stdioEndpoint) readLoop() {
	for {
		if s.prompt {
			fmt.Fprint(s.out, "stdio# ")
		}
		buf := util.GetBuf()
		n, err := s.in.Read(*buf)

		var item stdioItem
		if n > 0 {
			// A line typed at a terminal arrives with its trailing
			// newline; the frame keeps it.
			item.frame = Frame{Data: append([]byte(nil), (*buf)[:n]...)}
		}
		item.err = err
		util.PutBuf(buf)

		select {
		case s.items <- item:
		case <-s.done:
			return
		}
		if err != nil {
			return
		}
	}
}

func (s *stdioEndpoint) Read() (Frame, error) {
	select {
	case item := <-s.items:
		if item.err != nil && item.frame.Empty() {
			return Frame{}, item.err
		}
		// Deliver the bytes first; the EOF surfaces on the next call.
		if item.err != nil {
			go func() {
				select {
				case s.items <- stdioItem{err: item.err}:
				case <-s.done:
				}
			}()
		}
		return item.frame, nil
	case <-s.done:
		return Frame{}, perrors.ErrClosed
	}
}

func (s *stdioEndpoint) Write(f Frame) error {
	if f.Empty() {
		return nil
	}
	if _, err := s.out.Write(f.Data); err != nil {
		return fmt.Errorf("write %s: %w", s.label, err)
	}
	return nil
}

func (s *stdioEndpoint) Describe() string { return s.label }

// Close stops delivering frames.  It never closes the process's
// standard streams; a reader goroutine blocked inside os.Stdin simply
// stays parked until the process exits.
func (s *stdioEndpoint) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}
