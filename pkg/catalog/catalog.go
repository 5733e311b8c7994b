// Package catalog holds the narrative event catalog: per round category, a
// title template and pools of fatal and non-fatal actions.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwebster45206/tribute-engine/pkg/dice"
	"gopkg.in/yaml.v3"
)

// ErrNotActionable is returned when looking up a round type that is never
// resolved from the catalog.
var ErrNotActionable = errors.New("round type has no catalog entry")

// Action is one catalog-defined outcome. Placeholder indices in Killed and
// Killer refer to positions in the action's draw list, not roster indices.
type Action struct {
	Msg      string `json:"msg" yaml:"msg"`
	Tributes int    `json:"tributes" yaml:"tributes"`
	Killed   []int  `json:"killed,omitempty" yaml:"killed,omitempty"`
	Killer   []*int `json:"killer,omitempty" yaml:"killer,omitempty"` // null entries credit nobody
}

// IsFatal reports whether the action kills anyone.
func (a Action) IsFatal() bool {
	return len(a.Killed) > 0
}

// Killers returns the defined killer placeholder indices.
func (a Action) Killers() []int {
	var out []int
	for _, k := range a.Killer {
		if k != nil {
			out = append(out, *k)
		}
	}
	return out
}

// Event is the definition used for one round.
type Event struct {
	Title    string   `json:"title" yaml:"title"`
	Fatal    []Action `json:"fatal" yaml:"fatal"`
	Nonfatal []Action `json:"nonfatal" yaml:"nonfatal"`
}

// Catalog maps every actionable round category to its definition. Arena is a
// pool; one entry is chosen per arena round.
type Catalog struct {
	Bloodbath *Event  `json:"bloodbath" yaml:"bloodbath"`
	Feast     *Event  `json:"feast,omitempty" yaml:"feast,omitempty"`
	Day       *Event  `json:"day,omitempty" yaml:"day,omitempty"`
	Night     *Event  `json:"night,omitempty" yaml:"night,omitempty"`
	Arena     []Event `json:"arena,omitempty" yaml:"arena,omitempty"`
}

// Format is the document encoding of a catalog file.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return FormatJSON, fmt.Errorf("unsupported catalog extension: %s", filepath.Ext(path))
	}
}

// Load reads, decodes and validates a catalog file.
func Load(path string) (*Catalog, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}
	c, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse strictly decodes and validates a catalog document. Unknown fields
// and malformed documents are errors.
func Parse(data []byte, format Format) (*Catalog, error) {
	var c Catalog
	switch format {
	case FormatJSON:
		if !json.Valid(data) {
			return nil, errors.New("invalid JSON")
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("failed strict JSON unmarshaling: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("failed strict YAML unmarshaling: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown catalog format %d", format)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Entry returns the single definition for a non-arena category, or nil.
func (c *Catalog) Entry(rt RoundType) *Event {
	switch rt {
	case Bloodbath:
		return c.Bloodbath
	case Feast:
		return c.Feast
	case Day:
		return c.Day
	case Night:
		return c.Night
	default:
		return nil
	}
}

// Lookup returns the event for a round. Arena rounds pick uniformly from the
// pool. A category with no definition falls back to the bloodbath entry and
// reports fellBack so the caller can log it.
func (c *Catalog) Lookup(rt RoundType, src dice.Source) (ev *Event, fellBack bool, err error) {
	if !rt.Actionable() {
		return nil, false, fmt.Errorf("%w: %s", ErrNotActionable, rt)
	}

	switch rt {
	case Arena:
		if len(c.Arena) > 0 {
			return &c.Arena[src.IntN(len(c.Arena))], false, nil
		}
	default:
		if ev := c.Entry(rt); ev != nil {
			return ev, false, nil
		}
	}

	if c.Bloodbath == nil {
		return nil, true, fmt.Errorf("no entry for %s and no bloodbath fallback", rt)
	}
	return c.Bloodbath, true, nil
}
