package narrative

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/muesli/reflow/wordwrap"
)

// Kind classifies a narrative line.
type Kind string

const (
	KindTitle   Kind = "title"
	KindAction  Kind = "action"
	KindFallen  Kind = "fallen"
	KindSummary Kind = "summary"
)

// Line is one unit of narrative output.
type Line struct {
	Kind         Kind   `json:"kind"`
	SimulationID string `json:"simulation_id,omitempty"`
	Day          int    `json:"day"`
	Round        string `json:"round,omitempty"`
	Frame        int    `json:"frame"`              // image sequence number for action lines
	Text         string `json:"text"`
	Tributes     []int  `json:"tributes,omitempty"` // roster indices in draw order
}

// Narrator receives narrative lines. Failures are reported but never stop
// the simulation.
type Narrator interface {
	Narrate(ctx context.Context, line Line) error
}

// NarratorFunc adapts a function to the Narrator interface.
type NarratorFunc func(ctx context.Context, line Line) error

func (f NarratorFunc) Narrate(ctx context.Context, line Line) error {
	return f(ctx, line)
}

// WriterNarrator prints lines to a writer, word wrapped.
type WriterNarrator struct {
	w     io.Writer
	width int
}

// NewWriterNarrator creates a narrator that wraps text at width columns.
// A width <= 0 disables wrapping.
func NewWriterNarrator(w io.Writer, width int) *WriterNarrator {
	return &WriterNarrator{w: w, width: width}
}

func (n *WriterNarrator) Narrate(_ context.Context, line Line) error {
	text := line.Text
	if n.width > 0 {
		text = wordwrap.String(text, n.width)
	}
	if line.Kind == KindTitle {
		text = "\n" + text
	}
	if _, err := fmt.Fprintln(n.w, text); err != nil {
		return fmt.Errorf("failed to write narrative line: %w", err)
	}
	return nil
}

// Buffer collects lines in memory.
type Buffer struct {
	mu    sync.Mutex
	lines []Line
}

func (b *Buffer) Narrate(_ context.Context, line Line) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
	return nil
}

// Lines returns a copy of the collected lines.
func (b *Buffer) Lines() []Line {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Line, len(b.lines))
	copy(out, b.lines)
	return out
}

// Reset discards collected lines.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = nil
}

// Multi fans a line out to every narrator. All narrators are called even
// when some fail; their errors are joined.
type Multi []Narrator

func (m Multi) Narrate(ctx context.Context, line Line) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Narrate(ctx, line); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
