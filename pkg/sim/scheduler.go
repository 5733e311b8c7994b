package sim

import (
	"github.com/jwebster45206/tribute-engine/pkg/catalog"
	"github.com/jwebster45206/tribute-engine/pkg/dice"
)

const (
	bloodbathBias = 2
	feastBias     = 2
	arenaBias     = 1

	// One arena roll in arenaOdds succeeds once an event-free day has passed.
	arenaOdds = 20
)

// Round is the outcome of classifying one loop iteration.
type Round struct {
	Type           catalog.RoundType `json:"type"`
	Day            int               `json:"day"`
	FatalityFactor int               `json:"fatality_factor"`
	FeastChance    float64           `json:"feast_chance"`
}

// Scheduler decides what kind of round happens next. Its fields are
// exported so a paused simulation can be snapshotted and restored.
type Scheduler struct {
	Day                 int  `json:"day"`
	DaysSinceLastEvent  int  `json:"days_since_last_event"`
	RoundsWithoutDeaths int  `json:"rounds_without_deaths"`
	BloodbathPassed     bool `json:"bloodbath_passed"`
	DayPassed           bool `json:"day_passed"`
	FallenPassed        bool `json:"fallen_passed"`
	NightPassed         bool `json:"night_passed"`
}

// NewScheduler returns a scheduler positioned before the first round of
// day 1.
func NewScheduler() *Scheduler {
	return &Scheduler{Day: 1}
}

// FeastChance is the percent chance of a feast after d days without one:
// (100*d^2 + 9) / 55.
func FeastChance(d int) float64 {
	days := float64(d)
	return 100*days*days/55 + 9.0/55
}

// Next advances the day if the previous round was a night, then classifies
// the round. Draws happen in a fixed order: the fatality roll, the feast
// roll (only while the day round is still pending) and the arena roll (only
// after an event-free day).
func (s *Scheduler) Next(src dice.Source) Round {
	if s.NightPassed {
		s.Day++
		s.DaysSinceLastEvent++
		s.DayPassed = false
		s.FallenPassed = false
		s.NightPassed = false
	}

	round := Round{
		Day:            s.Day,
		FeastChance:    FeastChance(s.DaysSinceLastEvent),
		FatalityFactor: dice.Range(src, 2, 4) + s.RoundsWithoutDeaths,
	}

	switch {
	case s.Day == 1 && !s.BloodbathPassed:
		round.Type = catalog.Bloodbath
		round.FatalityFactor += bloodbathBias
		s.BloodbathPassed = true
	case !s.DayPassed && dice.Percent(src) < round.FeastChance:
		round.Type = catalog.Feast
		round.FatalityFactor += feastBias
		s.DaysSinceLastEvent = 0
	case s.DaysSinceLastEvent > 0 && src.IntN(arenaOdds) == 0:
		round.Type = catalog.Arena
		round.FatalityFactor += arenaBias
		s.DaysSinceLastEvent = 0
	case !s.DayPassed:
		round.Type = catalog.Day
		s.DayPassed = true
	case !s.FallenPassed:
		round.Type = catalog.Fallen
		s.FallenPassed = true
	default:
		round.Type = catalog.Night
		s.NightPassed = true
	}
	return round
}

// RecordFallen updates the deathless-round streak after a fallen report.
func (s *Scheduler) RecordFallen(deaths int) {
	if deaths == 0 {
		s.RoundsWithoutDeaths++
		return
	}
	s.RoundsWithoutDeaths = 0
}
