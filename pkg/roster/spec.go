package roster

import (
	"errors"
	"fmt"
	"strings"
)

// TributeSpec is a tribute as written in a roster file.
type TributeSpec struct {
	Name   string `json:"name"`
	Gender string `json:"gender"`
	Avatar string `json:"avatar,omitempty"`
}

// Spec is a named list of tributes, as loaded from disk or an API request.
type Spec struct {
	Name     string        `json:"name"`
	Tributes []TributeSpec `json:"tributes"`
}

// NewFromSpec builds a roster in spec order, drawing IDs from ids. Callers
// share one source per process so IDs are never reused across rosters.
// Every problem in the spec is reported, not just the first.
func NewFromSpec(spec *Spec, ids *IDSource) (*Roster, error) {
	if spec == nil {
		return nil, errors.New("roster spec is nil")
	}
	if ids == nil {
		return nil, errors.New("id source is nil")
	}

	var errs []error
	r := New()
	for i, ts := range spec.Tributes {
		name := strings.TrimSpace(ts.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("tribute %d: name is required", i))
			continue
		}
		g, err := ParseGender(ts.Gender)
		if err != nil {
			errs = append(errs, fmt.Errorf("tribute %d (%s): %w", i, name, err))
			continue
		}
		t := NewTribute(ids, name, g)
		t.Avatar = ts.Avatar
		r.Add(t)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	r.AssignPronouns()
	return r, nil
}
