// Package roster holds the tributes of one simulation and the operations
// that mutate their life-state.
package roster

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Roster is the ordered set of tributes. The index of a tribute is its
// stable handle for the whole simulation.
type Roster struct {
	tributes []*Tribute
}

// New creates a roster from the given tributes, in order.
func New(tributes ...*Tribute) *Roster {
	r := &Roster{tributes: make([]*Tribute, 0, len(tributes))}
	for _, t := range tributes {
		r.Add(t)
	}
	return r
}

// Add appends a tribute.
func (r *Roster) Add(t *Tribute) {
	r.tributes = append(r.tributes, t)
}

// Len returns the number of tributes, alive or dead.
func (r *Roster) Len() int {
	return len(r.tributes)
}

// Get returns the tribute at index i.
func (r *Roster) Get(i int) *Tribute {
	return r.tributes[i]
}

// Tributes returns the tributes in insertion order. The slice is shared.
func (r *Roster) Tributes() []*Tribute {
	return r.tributes
}

// AssignPronouns derives every tribute's grammatical labels from its gender.
func (r *Roster) AssignPronouns() {
	for _, t := range r.tributes {
		t.Pronouns = t.Gender.Pronouns()
	}
}

// NAlive counts living tributes.
func (r *Roster) NAlive() int {
	n := 0
	for _, t := range r.tributes {
		if t.Alive {
			n++
		}
	}
	return n
}

// NAvailable counts tributes not yet consumed this round.
func (r *Roster) NAvailable() int {
	n := 0
	for _, t := range r.tributes {
		if t.Available {
			n++
		}
	}
	return n
}

// Activate marks every living tribute available and every dead one
// unavailable. Called at the start of each actionable round.
func (r *Roster) Activate() {
	for _, t := range r.tributes {
		t.Available = t.Alive
	}
}

// Bench marks every tribute unavailable for the rest of the round.
func (r *Roster) Bench() {
	for _, t := range r.tributes {
		t.Available = false
	}
}

// IsAvailable reports whether tribute i can still be drawn this round.
func (r *Roster) IsAvailable(i int) bool {
	return r.tributes[i].Available
}

// AvailableIndices returns the indices of tributes still available.
func (r *Roster) AvailableIndices() []int {
	idx := make([]int, 0, len(r.tributes))
	for i, t := range r.tributes {
		if t.Available {
			idx = append(idx, i)
		}
	}
	return idx
}

// SetUnavailable consumes tribute i for the rest of the round.
func (r *Roster) SetUnavailable(i int) {
	r.tributes[i].Available = false
}

// Kill marks tribute i dead on the given day. Killing a dead tribute is a
// no-op: the first death day stands.
func (r *Roster) Kill(i, day int) {
	t := r.tributes[i]
	t.Available = false
	if !t.Alive {
		return
	}
	t.Alive = false
	t.DeathDay = day
}

// AddKill credits tribute i with a kill.
func (r *Roster) AddKill(i int) {
	r.tributes[i].Kills++
}

// CountDeadOnDay counts tributes that died on the given day.
func (r *Roster) CountDeadOnDay(day int) int {
	return len(r.DeadOnDay(day))
}

// DeadOnDay returns the tributes that died on the given day, in roster order.
func (r *Roster) DeadOnDay(day int) []*Tribute {
	var dead []*Tribute
	if day == 0 {
		return dead
	}
	for _, t := range r.tributes {
		if !t.Alive && t.DeathDay == day {
			dead = append(dead, t)
		}
	}
	return dead
}

// SummaryRow is one line of the final results table.
type SummaryRow struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Kills    int    `json:"kills"`
	DeathDay int    `json:"death_day,omitempty"`
	Survivor bool   `json:"survivor"`
}

// SurvivorLabel is shown in place of a death day for living tributes.
const SurvivorLabel = "Survivor"

// Fate renders the death-day column.
func (s SummaryRow) Fate() string {
	if s.Survivor {
		return SurvivorLabel
	}
	return "Day " + strconv.Itoa(s.DeathDay)
}

func (s SummaryRow) String() string {
	return fmt.Sprintf("%s: %d kills, %s", s.Name, s.Kills, s.Fate())
}

// Summary returns one row per tribute in insertion order.
func (r *Roster) Summary() []SummaryRow {
	rows := make([]SummaryRow, 0, len(r.tributes))
	for _, t := range r.tributes {
		rows = append(rows, SummaryRow{
			ID:       t.ID,
			Name:     t.Name,
			Kills:    t.Kills,
			DeathDay: t.DeathDay,
			Survivor: t.Alive,
		})
	}
	return rows
}

func (r *Roster) MarshalJSON() ([]byte, error) {
	if r.tributes == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.tributes)
}

func (r *Roster) UnmarshalJSON(data []byte) error {
	var tributes []*Tribute
	if err := json.Unmarshal(data, &tributes); err != nil {
		return fmt.Errorf("failed to unmarshal roster: %w", err)
	}
	r.tributes = tributes
	return nil
}
