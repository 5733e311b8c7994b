package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/tribute-engine/internal/storage"
	"github.com/jwebster45206/tribute-engine/pkg/catalog"
	"github.com/jwebster45206/tribute-engine/pkg/narrative"
	"github.com/jwebster45206/tribute-engine/pkg/roster"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <events.json|events.yaml> [roster.json ...]\n", os.Args[0])
		os.Exit(1)
	}

	validator := &CatalogValidator{}
	if err := validator.validateFile(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}
	for _, w := range validator.warnings {
		fmt.Printf("warning: %s\n", w)
	}

	failed := false
	for _, path := range os.Args[2:] {
		if err := validator.validateRoster(path); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}

	fmt.Println("Catalog is valid!")
}

var filenamePattern = regexp.MustCompile(`^[a-z0-9]+([_-][a-z0-9]+)*$`)

// CatalogValidator checks event catalogs and rosters before they reach a
// simulation. Errors fail validation; warnings are printed only.
type CatalogValidator struct {
	catalog  *catalog.Catalog
	errors   []string
	warnings []string
}

func (v *CatalogValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	nameWithoutExt := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	if !filenamePattern.MatchString(nameWithoutExt) {
		return fmt.Errorf("catalog filename '%s' must be lowercase (e.g., events.json, summer_games.yaml)", baseName)
	}

	c, err := catalog.Load(filename)
	if err != nil {
		return err
	}
	v.catalog = c
	v.errors = nil
	v.warnings = nil

	v.validateCatalog(c)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *CatalogValidator) validateCatalog(c *catalog.Catalog) {
	named := []struct {
		key string
		ev  *catalog.Event
	}{
		{"bloodbath", c.Bloodbath},
		{"feast", c.Feast},
		{"day", c.Day},
		{"night", c.Night},
	}
	for _, n := range named {
		if n.ev == nil {
			v.warnings = append(v.warnings, fmt.Sprintf("%s: missing, the bloodbath entry will be used instead", n.key))
			continue
		}
		v.validateEvent(n.key, n.ev)
	}
	if len(c.Arena) == 0 {
		v.warnings = append(v.warnings, "arena: no entries, arena rounds will use the bloodbath entry")
	}
	for i := range c.Arena {
		v.validateEvent(fmt.Sprintf("arena[%d]", i), &c.Arena[i])
	}
}

func (v *CatalogValidator) validateEvent(key string, ev *catalog.Event) {
	if err := narrative.Check(ev.Title, 1); err != nil {
		v.errors = append(v.errors, fmt.Sprintf("%s: title: %v", key, err))
	}
	for i, a := range ev.Fatal {
		v.validateAction(fmt.Sprintf("%s: fatal[%d]", key, i), a)
	}
	for i, a := range ev.Nonfatal {
		v.validateAction(fmt.Sprintf("%s: nonfatal[%d]", key, i), a)
	}
}

func (v *CatalogValidator) validateAction(label string, a catalog.Action) {
	if err := narrative.Check(a.Msg, a.Tributes); err != nil {
		v.errors = append(v.errors, fmt.Sprintf("%s: %v", label, err))
	}
}

// maxTributes is the largest draw any action in the catalog needs.
func (v *CatalogValidator) maxTributes() int {
	most := 0
	visit := func(ev *catalog.Event) {
		if ev == nil {
			return
		}
		for _, a := range append(append([]catalog.Action{}, ev.Fatal...), ev.Nonfatal...) {
			most = max(most, a.Tributes)
		}
	}
	if v.catalog == nil {
		return 0
	}
	visit(v.catalog.Bloodbath)
	visit(v.catalog.Feast)
	visit(v.catalog.Day)
	visit(v.catalog.Night)
	for i := range v.catalog.Arena {
		visit(&v.catalog.Arena[i])
	}
	return most
}

func (v *CatalogValidator) validateRoster(filename string) error {
	fmt.Printf("Validating roster %s...\n", filename)

	spec, err := storage.LoadRoster(filename)
	if err != nil {
		return err
	}
	r, err := roster.NewFromSpec(spec, roster.NewIDSource(1))
	if err != nil {
		return fmt.Errorf("roster %s: %w", filename, err)
	}
	if r.Len() < 2 {
		fmt.Printf("warning: roster %s has %d tribute(s), the simulation ends immediately\n", filename, r.Len())
	}
	if most := v.maxTributes(); most > r.Len() {
		fmt.Printf("warning: roster %s has %d tributes but some actions need %d; those actions will never be drawn\n",
			filename, r.Len(), most)
	}
	return nil
}
