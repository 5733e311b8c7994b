// Package narrative renders catalog templates and delivers the resulting
// lines to narrators (terminal, logs, broadcasters).
//
// Catalog templates use numbered placeholders: {0} is replaced with the
// value for key "0", and {0.field} with one field of it. Fields are name,
// gender, nom, acc, gen and refl. A capitalised field ({0.Nom}) is title
// cased for use at the start of a sentence.
package narrative

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"github.com/jwebster45206/tribute-engine/pkg/roster"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	leftDelim  = "⟦"
	rightDelim = "⟧"
)

var (
	placeholderRe = regexp.MustCompile(`\{\s*(\d+)(?:\.([A-Za-z]+))?\s*\}`)
	braceRe       = regexp.MustCompile(`\{[^{}]*\}`)

	knownFields = map[string]bool{
		"name": true, "gender": true, "nom": true, "acc": true, "gen": true, "refl": true,
	}
)

// Template is a compiled catalog template.
type Template struct {
	name string
	tmpl *template.Template
}

// Compile translates a catalog template into a text/template and parses it.
func Compile(name, src string) (*Template, error) {
	for _, m := range braceRe.FindAllString(src, -1) {
		if !placeholderRe.MatchString(m) {
			return nil, fmt.Errorf("template %s: malformed placeholder %s", name, m)
		}
	}

	var badField string
	translated := placeholderRe.ReplaceAllStringFunc(src, func(m string) string {
		sub := placeholderRe.FindStringSubmatch(m)
		key, field := sub[1], sub[2]
		if field == "" {
			return fmt.Sprintf(`%svalue . %q%s`, leftDelim, key, rightDelim)
		}
		lower := strings.ToLower(field)
		if !knownFields[lower] && badField == "" {
			badField = field
		}
		if unicode.IsUpper(rune(field[0])) {
			return fmt.Sprintf(`%stitle (field . %q %q)%s`, leftDelim, key, lower, rightDelim)
		}
		return fmt.Sprintf(`%sfield . %q %q%s`, leftDelim, key, lower, rightDelim)
	})
	if badField != "" {
		return nil, fmt.Errorf("template %s: unknown placeholder field %q", name, badField)
	}

	tmpl, err := template.New(name).
		Delims(leftDelim, rightDelim).
		Funcs(template.FuncMap{
			"value": lookupValue,
			"field": lookupField,
			"title": titleCase,
		}).
		Parse(translated)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	return &Template{name: name, tmpl: tmpl}, nil
}

// Render executes the template against values keyed by placeholder number.
// Values are either scalars or roster.Placeholder field maps.
func (t *Template) Render(values map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, values); err != nil {
		return "", fmt.Errorf("rendering %s: %w", t.name, err)
	}
	return buf.String(), nil
}

func lookupValue(values map[string]any, key string) (any, error) {
	v, ok := values[key]
	if !ok {
		return nil, fmt.Errorf("no value for placeholder %s", key)
	}
	if fields, ok := v.(map[string]string); ok {
		return fields["name"], nil
	}
	return v, nil
}

func lookupField(values map[string]any, key, field string) (string, error) {
	v, ok := values[key]
	if !ok {
		return "", fmt.Errorf("no value for placeholder %s", key)
	}
	fields, ok := v.(map[string]string)
	if !ok {
		return "", fmt.Errorf("placeholder %s has no field %s", key, field)
	}
	s, ok := fields[field]
	if !ok {
		return "", fmt.Errorf("placeholder %s has no field %s", key, field)
	}
	return s, nil
}

// titleCase capitalises the first letter of each word. A Caser is stateful,
// so each call gets its own.
func titleCase(s string) string {
	return cases.Title(language.English, cases.NoLower).String(s)
}

// RenderTitle renders an event title with the day number as placeholder 0.
func RenderTitle(src string, day int) (string, error) {
	t, err := Compile("title", src)
	if err != nil {
		return "", err
	}
	return t.Render(map[string]any{"0": day})
}

// RenderAction renders an action message with one placeholder per drawn
// tribute, in draw order.
func RenderAction(src string, drawn []roster.Placeholder) (string, error) {
	t, err := Compile("action", src)
	if err != nil {
		return "", err
	}
	values := make(map[string]any, len(drawn))
	for i, p := range drawn {
		values[strconv.Itoa(i)] = p.Fields()
	}
	return t.Render(values)
}

// Check compiles src and reports placeholders that refer past the first n
// values. It lets catalogs be verified before any round is played.
func Check(src string, n int) error {
	if _, err := Compile("check", src); err != nil {
		return err
	}
	for _, sub := range placeholderRe.FindAllStringSubmatch(src, -1) {
		idx, err := strconv.Atoi(sub[1])
		if err != nil || idx >= n {
			return fmt.Errorf("placeholder {%s} out of range for %d values", sub[1], n)
		}
	}
	return nil
}
