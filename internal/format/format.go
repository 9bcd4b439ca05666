package format

import (
	"strings"
	"unicode"
)

// Formatter translates field names between the client's external convention
// and the schema's canonical (snake_case) identifiers. Translation must be
// injective over all legal schema field names.
type Formatter interface {
	ToCanonical(external string) string
	ToExternal(canonical string) string
}

// Camel maps external camelCase names to canonical snake_case.
type Camel struct{}

func (Camel) ToCanonical(external string) string { return toSnake(external) }
func (Camel) ToExternal(canonical string) string { return toCamel(canonical, false) }

// Pascal maps external PascalCase names to canonical snake_case.
type Pascal struct{}

func (Pascal) ToCanonical(external string) string { return toSnake(external) }
func (Pascal) ToExternal(canonical string) string { return toCamel(canonical, true) }

// Snake is the identity formatter: external names are already canonical.
type Snake struct{}

func (Snake) ToCanonical(external string) string { return external }
func (Snake) ToExternal(canonical string) string { return canonical }

// ByName returns the formatter for a configuration value.
func ByName(name string) (Formatter, bool) {
	switch name {
	case "camel", "camelCase", "":
		return Camel{}, true
	case "pascal", "PascalCase":
		return Pascal{}, true
	case "snake", "snake_case":
		return Snake{}, true
	}
	return nil, false
}

// Path renders canonical path segments as a dotted path in external form.
func Path(f Formatter, segments []string) string {
	if len(segments) == 0 {
		return ""
	}
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = f.ToExternal(s)
	}
	return strings.Join(parts, ".")
}

func toSnake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func toCamel(s string, upperFirst bool) string {
	var b strings.Builder
	b.Grow(len(s))
	upper := upperFirst
	for _, r := range s {
		if r == '_' {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
