package roster

import "sync"

// IDSource hands out tribute IDs. IDs are strictly increasing and never
// reused for the lifetime of the source. Tests create their own source to
// start from a known value.
type IDSource struct {
	mu   sync.Mutex
	next int
}

// NewIDSource creates an ID source whose first ID is start.
func NewIDSource(start int) *IDSource {
	return &IDSource{next: start}
}

// Next returns the next ID.
func (s *IDSource) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	return id
}

// Tribute is a single contestant and its life-state.
type Tribute struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	Gender    Gender   `json:"gender"`
	Pronouns  Pronouns `json:"pronouns"`
	Alive     bool     `json:"alive"`
	Available bool     `json:"available"`
	DeathDay  int      `json:"death_day,omitempty"` // 0 while alive
	Kills     int      `json:"kills"`
	Avatar    string   `json:"avatar,omitempty"` // owned by the renderer
}

// NewTribute creates a living tribute with the next ID from ids.
func NewTribute(ids *IDSource, name string, gender Gender) *Tribute {
	return &Tribute{
		ID:     ids.Next(),
		Name:   name,
		Gender: gender,
		Alive:  true,
	}
}

// Placeholder is the serialized form of a tribute handed to narrative
// templates. It deliberately carries no life-state.
type Placeholder struct {
	Name       string `json:"name"`
	Gender     string `json:"gender"`
	Nominative string `json:"nom"`
	Accusative string `json:"acc"`
	Genitive   string `json:"gen"`
	Reflexive  string `json:"refl"`
}

// Placeholder returns the template view of the tribute.
func (t *Tribute) Placeholder() Placeholder {
	return Placeholder{
		Name:       t.Name,
		Gender:     t.Gender.Code(),
		Nominative: t.Pronouns.Nominative,
		Accusative: t.Pronouns.Accusative,
		Genitive:   t.Pronouns.Genitive,
		Reflexive:  t.Pronouns.Reflexive,
	}
}

// Fields returns the placeholder keyed by template field name.
func (p Placeholder) Fields() map[string]string {
	return map[string]string{
		"name":   p.Name,
		"gender": p.Gender,
		"nom":    p.Nominative,
		"acc":    p.Accusative,
		"gen":    p.Genitive,
		"refl":   p.Reflexive,
	}
}

func (p Placeholder) String() string {
	return p.Name
}
