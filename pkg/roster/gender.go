package roster

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownGender is returned when a gender tag cannot be parsed.
var ErrUnknownGender = errors.New("unknown gender")

// Gender is the closed set of gender tags a tribute can carry.
type Gender int

const (
	Ambiguous Gender = iota
	Male
	Female
)

// Pronouns holds the four grammatical labels used by narrative templates.
type Pronouns struct {
	Nominative string `json:"nominative"`
	Accusative string `json:"accusative"`
	Genitive   string `json:"genitive"`
	Reflexive  string `json:"reflexive"`
}

// ParseGender reads a gender tag. Matching is case-insensitive; an empty tag
// is treated as Ambiguous.
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "male", "he", "man", "boy":
		return Male, nil
	case "f", "female", "she", "woman", "girl":
		return Female, nil
	case "", "a", "ambiguous", "they", "x", "nonbinary", "non-binary":
		return Ambiguous, nil
	default:
		return Ambiguous, fmt.Errorf("%w: %q", ErrUnknownGender, s)
	}
}

// Code returns the single-letter gender code exposed to templates.
func (g Gender) Code() string {
	switch g {
	case Male:
		return "M"
	case Female:
		return "F"
	default:
		return "A"
	}
}

func (g Gender) String() string {
	switch g {
	case Male:
		return "male"
	case Female:
		return "female"
	default:
		return "ambiguous"
	}
}

// Pronouns derives the grammatical labels for the gender.
func (g Gender) Pronouns() Pronouns {
	switch g {
	case Male:
		return Pronouns{Nominative: "he", Accusative: "him", Genitive: "his", Reflexive: "himself"}
	case Female:
		return Pronouns{Nominative: "she", Accusative: "her", Genitive: "her", Reflexive: "herself"}
	default:
		return Pronouns{Nominative: "they", Accusative: "them", Genitive: "their", Reflexive: "themselves"}
	}
}

func (g Gender) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.String())
}

func (g *Gender) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("gender must be a string: %w", err)
	}
	parsed, err := ParseGender(s)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
