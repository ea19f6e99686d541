package sock

import (
	"context"
	"encoding/hex"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"polysock/config"
	perrors "polysock/internal/errors"
	"polysock/util"
)

// testGenEndpoint produces synthetic traffic patterns for exercising
// the other endpoints without an external traffic source.  Each Read
// yields one pattern iteration; writes are discarded.
//
// Parameters: pat (static|seq|inc|blocks|text|hex|file), data, size,
// block_size, path, cycle (microseconds between iterations), iter_num
// (optional limit; reaching it ends the stream with EOF).
type testGenEndpoint struct {
	label  string
	logger *util.Logger
	params config.Params

	pattern func(iter int) []byte
	cycle   time.Duration
	maxIter int // 0 = unlimited
	iter    int

	done chan struct{}
	once sync.Once
}

func newTestGen(params config.Params, opts Options) *testGenEndpoint {
	return &testGenEndpoint{
		label:  opts.Labels.assign(config.KindTestGen),
		logger: opts.Logger,
		params: params,
		done:   make(chan struct{}),
	}
}

func (g *testGenEndpoint) Open(_ context.Context) error {
	pat, ok := g.params["pat"]
	if !ok {
		return perrors.Missing("pat", "one of static, seq, inc, blocks, text, hex, file")
	}

	cycle, _, err := g.params.Int("cycle")
	if err != nil {
		return err
	}
	g.cycle = time.Duration(cycle) * time.Microsecond

	g.maxIter, _, err = g.params.Int("iter_num")
	if err != nil {
		return err
	}

	g.pattern, err = g.buildPattern(pat)
	return err
}

func (g *testGenEndpoint) buildPattern(pat string) (func(int) []byte, error) {
	switch pat {
	case "static":
		b, err := g.paramByte("data")
		if err != nil {
			return nil, err
		}
		size, err := g.paramSize()
		if err != nil {
			return nil, err
		}
		frame := make([]byte, size)
		for i := range frame {
			frame[i] = b
		}
		return func(int) []byte { return frame }, nil

	case "seq":
		size, err := g.paramSize()
		if err != nil {
			return nil, err
		}
		return func(iter int) []byte {
			frame := make([]byte, size)
			for i := range frame {
				frame[i] = byte(iter*size + i)
			}
			return frame
		}, nil

	case "inc":
		start, err := g.paramByte("data")
		if err != nil {
			return nil, err
		}
		size, err := g.paramSize()
		if err != nil {
			return nil, err
		}
		return func(iter int) []byte {
			frame := make([]byte, size)
			fill := start + byte(iter)
			for i := range frame {
				frame[i] = fill
			}
			return frame
		}, nil

	case "blocks":
		blocks, err := g.paramHex("data")
		if err != nil {
			return nil, err
		}
		bs, ok, err := g.params.Int("block_size")
		if err != nil {
			return nil, err
		}
		if !ok || bs == 0 {
			return nil, perrors.Missing("block_size", "length of one repeated block")
		}
		frame := make([]byte, 0, len(blocks)*bs)
		for _, b := range blocks {
			for i := 0; i < bs; i++ {
				frame = append(frame, b)
			}
		}
		return func(int) []byte { return frame }, nil

	case "text":
		data, ok := g.params["data"]
		if !ok {
			return nil, perrors.Missing("data", "text to produce")
		}
		frame := []byte(data)
		return func(int) []byte { return frame }, nil

	case "hex":
		frame, err := g.paramHex("data")
		if err != nil {
			return nil, err
		}
		return func(int) []byte { return frame }, nil

	case "file":
		path, ok := g.params["path"]
		if !ok {
			return nil, perrors.Missing("path", "file with the test pattern")
		}
		frame, err := os.ReadFile(path)
		if err != nil {
			return nil, perrors.Config("path", path, err.Error())
		}
		return func(int) []byte { return frame }, nil
	}
	return nil, perrors.Config("pat", pat, "unknown pattern type")
}

func (g *testGenEndpoint) paramByte(key string) (byte, error) {
	v, ok := g.params[key]
	if !ok {
		return 0, perrors.Missing(key, `a byte value such as "0xf0"`)
	}
	n, err := strconv.ParseUint(v, 0, 8)
	if err != nil {
		return 0, perrors.Config(key, v, "not a byte value")
	}
	return byte(n), nil
}

func (g *testGenEndpoint) paramSize() (int, error) {
	size, ok, err := g.params.Int("size")
	if err != nil {
		return 0, err
	}
	if !ok || size == 0 {
		return 0, perrors.Missing("size", "length of one iteration pattern")
	}
	return size, nil
}

func (g *testGenEndpoint) paramHex(key string) ([]byte, error) {
	v, ok := g.params[key]
	if !ok {
		return nil, perrors.Missing(key, `a hex string such as "55ff67aaaa"`)
	}
	data, err := hex.DecodeString(v)
	if err != nil {
		return nil, perrors.Config(key, v, "not a hex string")
	}
	return data, nil
}

func (g *testGenEndpoint) Read() (Frame, error) {
	if g.pattern == nil {
		return Frame{}, perrors.ErrNotOpen
	}
	if g.maxIter > 0 && g.iter >= g.maxIter {
		g.logger.Info("%s: iteration limit reached (%d iterations)", g.label, g.maxIter)
		return Frame{}, io.EOF
	}
	if g.cycle > 0 {
		select {
		case <-time.After(g.cycle):
		case <-g.done:
			return Frame{}, perrors.ErrClosed
		}
	} else {
		select {
		case <-g.done:
			return Frame{}, perrors.ErrClosed
		default:
		}
	}
	data := g.pattern(g.iter)
	g.iter++
	return Frame{Data: append([]byte(nil), data...)}, nil
}

func (g *testGenEndpoint) Write(f Frame) error {
	g.logger.Debug("%s: discarding %d written bytes (generator is read-only)", g.label, len(f.Data))
	return nil
}

func (g *testGenEndpoint) Describe() string { return g.label }

func (g *testGenEndpoint) Close() error {
	g.once.Do(func() { close(g.done) })
	return nil
}
