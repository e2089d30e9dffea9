package codegen

import (
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldAccents decomposes the input and strips combining marks, so
// "Dirección" sanitizes to "Direccion" instead of losing the rune.
var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// sanitizeClassName turns a display class name into an exported Go
// identifier. Whitespace is removed, accents folded, and the result
// camelized. Empty input stays empty; the caller decides how to flag it.
func sanitizeClassName(name string) string {
	folded, _, err := transform.String(foldAccents, name)
	if err != nil {
		folded = name
	}
	var b strings.Builder
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		} else if unicode.IsSpace(r) {
			b.WriteByte('_')
		}
	}
	cleaned := strings.Trim(b.String(), "_")
	if cleaned == "" {
		return ""
	}
	out := inflect.Camelize(cleaned)
	if out != "" && unicode.IsDigit(rune(out[0])) {
		out = "X" + out
	}
	return out
}

// sanitizeMemberName keeps the member's original casing, folding accents
// and dropping anything that cannot appear in an identifier.
func sanitizeMemberName(name string) string {
	folded, _, err := transform.String(foldAccents, name)
	if err != nil {
		folded = name
	}
	var b strings.Builder
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out != "" && unicode.IsDigit(rune(out[0])) {
		out = "x" + out
	}
	return out
}

// exported upper-cases the first rune of an identifier.
func exported(name string) string {
	if name == "" {
		return ""
	}
	r := []rune(name)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// fieldFor derives a relationship field name from the target class name,
// pluralized for collection ends.
func fieldFor(target string, many bool) string {
	name := inflect.CamelizeDownFirst(target)
	if many {
		name = inflect.Pluralize(name)
	}
	return name
}
