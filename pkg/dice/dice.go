// Package dice provides the randomness capability used by the simulation.
//
// The engine never reaches for a global generator. Every draw goes through a
// Source so that scenarios can be replayed with a seeded or scripted source.
package dice

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/jwebster45206/d20"
)

// Source is the randomness provider for the simulation.
//
// A Source is owned by a single simulation and is not safe for concurrent use.
type Source interface {
	// IntN returns a uniform int in [0, n). n must be > 0.
	IntN(n int) int
	// Float64 returns a uniform float in [0, 1).
	Float64() float64
}

// floatFaces is the die used to build Float64 values.
const floatFaces = 1 << 30

// Roller is a Source backed by a d20 dice roller. IntN(n) rolls one n-sided
// die, so IntN(20) == 0 is a natural 1 on a d20.
type Roller struct {
	roller *d20.Roller
}

var _ Source = (*Roller)(nil)

// New returns a deterministic Source for the given seed.
func New(seed uint64) Source {
	return &Roller{roller: d20.NewRoller(int64(seed))}
}

// NewRandom returns a Source seeded from crypto/rand.
func NewRandom() Source {
	return New(NewSeed())
}

// NewSeed generates a high-entropy seed. It falls back to the clock if
// crypto/rand is unavailable.
func NewSeed() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// Roll rolls one die with the given number of faces and returns 1..faces.
func (r *Roller) Roll(faces int) int {
	if faces <= 0 {
		panic(fmt.Sprintf("dice: invalid die with %d faces", faces))
	}
	out, err := r.roller.Dice(1, uint(faces)).Roll()
	if err != nil {
		panic(fmt.Sprintf("dice: roll d%d: %v", faces, err))
	}
	return out.Value
}

func (r *Roller) IntN(n int) int {
	return r.Roll(n) - 1
}

func (r *Roller) Float64() float64 {
	return float64(r.Roll(floatFaces)-1) / floatFaces
}

// Range returns a uniform int in [lo, hi). It returns lo when hi <= lo.
func Range(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.IntN(hi-lo)
}

// Percent returns a uniform float in [0, 100).
func Percent(src Source) float64 {
	return src.Float64() * 100
}
