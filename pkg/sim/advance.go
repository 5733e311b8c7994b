package sim

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Advancer blocks until the next round should be played.
type Advancer interface {
	Advance(ctx context.Context) error
}

// AdvanceFunc adapts a function to the Advancer interface.
type AdvanceFunc func(ctx context.Context) error

func (f AdvanceFunc) Advance(ctx context.Context) error {
	return f(ctx)
}

// Immediate never waits.
var Immediate Advancer = AdvanceFunc(func(ctx context.Context) error {
	return ctx.Err()
})

// LineAdvancer advances once per input line. The line's content is ignored.
// Once the input is exhausted it stops waiting, so piped input runs the
// simulation to the end.
type LineAdvancer struct {
	reader *bufio.Reader
	eof    bool
}

func NewLineAdvancer(r io.Reader) *LineAdvancer {
	return &LineAdvancer{reader: bufio.NewReader(r)}
}

func (a *LineAdvancer) Advance(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.eof {
		return nil
	}
	// Lines of any length count once; long lines arrive in fragments.
	for {
		_, isPrefix, err := a.reader.ReadLine()
		if errors.Is(err, io.EOF) {
			a.eof = true
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		if !isPrefix {
			return nil
		}
	}
}

// TickAdvancer advances on a fixed interval.
type TickAdvancer struct {
	ticker *time.Ticker
}

func NewTickAdvancer(interval time.Duration) *TickAdvancer {
	return &TickAdvancer{ticker: time.NewTicker(interval)}
}

func (a *TickAdvancer) Advance(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-a.ticker.C:
		return nil
	}
}

// Stop releases the ticker.
func (a *TickAdvancer) Stop() {
	a.ticker.Stop()
}

// ChanAdvancer advances whenever a value arrives on its channel. Closing
// the channel makes it stop waiting.
type ChanAdvancer <-chan struct{}

func (a ChanAdvancer) Advance(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-a:
		return nil
	}
}
