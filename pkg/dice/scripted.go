package dice

import "fmt"

// Scripted is a Source that replays queued values. It is meant for tests
// that need to pin every draw the engine makes.
//
// When the int queue runs dry, IntN returns 0; when the float queue runs dry,
// Float64 returns 0.99 (a roll that never clears a low threshold). Values
// outside [0, n) are reduced modulo n.
type Scripted struct {
	Ints   []int
	Floats []float64

	IntCalls   int
	FloatCalls int
}

var _ Source = (*Scripted)(nil)

// NewScripted creates a scripted source with the given int draws.
func NewScripted(ints ...int) *Scripted {
	return &Scripted{Ints: ints}
}

// WithFloats queues float draws and returns the source for chaining.
func (s *Scripted) WithFloats(floats ...float64) *Scripted {
	s.Floats = append(s.Floats, floats...)
	return s
}

// IntN returns the next queued int reduced into [0, n).
func (s *Scripted) IntN(n int) int {
	if n <= 0 {
		panic(fmt.Sprintf("dice: IntN called with n=%d", n))
	}
	s.IntCalls++
	if len(s.Ints) == 0 {
		return 0
	}
	v := s.Ints[0]
	s.Ints = s.Ints[1:]
	v %= n
	if v < 0 {
		v += n
	}
	return v
}

// Float64 returns the next queued float.
func (s *Scripted) Float64() float64 {
	s.FloatCalls++
	if len(s.Floats) == 0 {
		return 0.99
	}
	v := s.Floats[0]
	s.Floats = s.Floats[1:]
	return v
}

// Remaining reports how many queued ints have not been consumed.
func (s *Scripted) Remaining() int {
	return len(s.Ints)
}
