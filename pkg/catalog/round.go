package catalog

import (
	"encoding/json"
	"fmt"
)

// RoundType is the category of a simulated round.
type RoundType int

const (
	None RoundType = iota
	Bloodbath
	Feast
	Arena
	Day
	Night
	Fallen
)

var roundNames = map[RoundType]string{
	None:      "none",
	Bloodbath: "bloodbath",
	Feast:     "feast",
	Arena:     "arena",
	Day:       "day",
	Night:     "night",
	Fallen:    "fallen",
}

// String returns the catalog key for the round type.
func (rt RoundType) String() string {
	if s, ok := roundNames[rt]; ok {
		return s
	}
	return fmt.Sprintf("round(%d)", int(rt))
}

// ParseRoundType maps a catalog key back to its round type.
func ParseRoundType(s string) (RoundType, error) {
	for rt, name := range roundNames {
		if name == s {
			return rt, nil
		}
	}
	return None, fmt.Errorf("unknown round type %q", s)
}

// Actionable reports whether rounds of this type are resolved from the
// catalog. Fallen rounds only report deaths.
func (rt RoundType) Actionable() bool {
	switch rt {
	case Bloodbath, Feast, Arena, Day, Night:
		return true
	default:
		return false
	}
}

func (rt RoundType) MarshalJSON() ([]byte, error) {
	return json.Marshal(rt.String())
}

func (rt *RoundType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRoundType(s)
	if err != nil {
		return err
	}
	*rt = parsed
	return nil
}
