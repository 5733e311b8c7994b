package catalog

import (
	"errors"
	"fmt"
)

// Validate checks the catalog for problems that would make resolution
// impossible or ambiguous. All problems are reported together.
func (c *Catalog) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Bloodbath == nil {
		add("bloodbath: required as the fallback entry")
	}

	named := []struct {
		key string
		ev  *Event
	}{
		{"bloodbath", c.Bloodbath},
		{"feast", c.Feast},
		{"day", c.Day},
		{"night", c.Night},
	}
	for _, n := range named {
		if n.ev != nil {
			errs = append(errs, validateEvent(n.key, n.ev)...)
		}
	}
	for i := range c.Arena {
		errs = append(errs, validateEvent(fmt.Sprintf("arena[%d]", i), &c.Arena[i])...)
	}

	return errors.Join(errs...)
}

func validateEvent(key string, ev *Event) []error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: %s", key, fmt.Sprintf(format, args...)))
	}

	if ev.Title == "" {
		add("title is empty")
	}
	if len(ev.Nonfatal) == 0 {
		add("at least one nonfatal action is required")
	}

	// A single-tribute nonfatal action guarantees every round can drain.
	drains := false
	for i, a := range ev.Nonfatal {
		label := fmt.Sprintf("nonfatal[%d]", i)
		for _, err := range validateAction(a) {
			add("%s: %v", label, err)
		}
		if a.IsFatal() {
			add("%s: nonfatal action kills placeholders %v", label, a.Killed)
		}
		if a.Tributes == 1 {
			drains = true
		}
	}
	if len(ev.Nonfatal) > 0 && !drains {
		add("no single-tribute nonfatal action; rounds with one tribute left could not finish")
	}

	for i, a := range ev.Fatal {
		label := fmt.Sprintf("fatal[%d]", i)
		for _, err := range validateAction(a) {
			add("%s: %v", label, err)
		}
		if !a.IsFatal() {
			add("%s: fatal action kills nobody", label)
		}
	}
	return errs
}

func validateAction(a Action) []error {
	var errs []error
	if a.Msg == "" {
		errs = append(errs, errors.New("msg is empty"))
	}
	if a.Tributes < 1 {
		errs = append(errs, fmt.Errorf("tributes must be >= 1, got %d", a.Tributes))
		return errs
	}

	seen := make(map[int]bool, len(a.Killed))
	for _, k := range a.Killed {
		if k < 0 || k >= a.Tributes {
			errs = append(errs, fmt.Errorf("killed index %d out of range [0,%d)", k, a.Tributes))
		}
		if seen[k] {
			errs = append(errs, fmt.Errorf("killed index %d listed twice", k))
		}
		seen[k] = true
	}
	for _, k := range a.Killers() {
		if k < 0 || k >= a.Tributes {
			errs = append(errs, fmt.Errorf("killer index %d out of range [0,%d)", k, a.Tributes))
		}
	}
	return errs
}
