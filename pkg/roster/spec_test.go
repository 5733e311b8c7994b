package roster

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromSpec(t *testing.T) {
	r, err := NewFromSpec(&Spec{
		Name: "District 12",
		Tributes: []TributeSpec{
			{Name: "Katniss", Gender: "f", Avatar: "katniss.png"},
			{Name: " Peeta ", Gender: "male"},
			{Name: "Rue", Gender: ""},
		},
	}, NewIDSource(1))
	require.NoError(t, err)
	require.Equal(t, 3, r.Len())

	assert.Equal(t, 1, r.Get(0).ID)
	assert.Equal(t, 3, r.Get(2).ID)
	assert.Equal(t, "katniss.png", r.Get(0).Avatar)
	assert.Equal(t, "Peeta", r.Get(1).Name)
	assert.Equal(t, "his", r.Get(1).Pronouns.Genitive)
	assert.Equal(t, "their", r.Get(2).Pronouns.Genitive)
	assert.Equal(t, 3, r.NAlive())
}

func TestNewFromSpec_CollectsErrors(t *testing.T) {
	_, err := NewFromSpec(&Spec{Tributes: []TributeSpec{
		{Name: "", Gender: "m"},
		{Name: "Glimmer", Gender: "robot"},
		{Name: "Marvel", Gender: "m"},
	}}, NewIDSource(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tribute 0: name is required")
	assert.Contains(t, err.Error(), "tribute 1 (Glimmer)")
	assert.True(t, errors.Is(err, ErrUnknownGender))
}

func TestNewFromSpec_Nil(t *testing.T) {
	_, err := NewFromSpec(nil, NewIDSource(1))
	assert.Error(t, err)
}

func TestNewFromSpec_NilIDSource(t *testing.T) {
	_, err := NewFromSpec(&Spec{Tributes: []TributeSpec{{Name: "Rue", Gender: "f"}}}, nil)
	assert.Error(t, err)
}

func TestNewFromSpec_SharedIDSource(t *testing.T) {
	spec := &Spec{Tributes: []TributeSpec{
		{Name: "Katniss", Gender: "f"},
		{Name: "Peeta", Gender: "m"},
	}}
	ids := NewIDSource(1)

	first, err := NewFromSpec(spec, ids)
	require.NoError(t, err)
	second, err := NewFromSpec(spec, ids)
	require.NoError(t, err)

	seen := map[int]bool{}
	last := 0
	for _, r := range []*Roster{first, second} {
		for _, tr := range r.Tributes() {
			if seen[tr.ID] {
				t.Errorf("id %d reused across rosters", tr.ID)
			}
			if tr.ID <= last {
				t.Errorf("id %d not greater than previous %d", tr.ID, last)
			}
			seen[tr.ID] = true
			last = tr.ID
		}
	}
	assert.Equal(t, []int{3, 4}, []int{second.Get(0).ID, second.Get(1).ID})
}
