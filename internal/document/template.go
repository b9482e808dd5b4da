package document

import (
	"regexp"
	"strings"
)

// SelectTemplate picks the template name from the product string by
// case-insensitive substring match.
func SelectTemplate(product string) string {
	p := strings.ToLower(product)
	switch {
	case strings.Contains(p, "emergency"):
		return "emergency"
	case strings.Contains(p, "development"):
		return "development"
	default:
		return "generic"
	}
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Substitute replaces every {{token}} in the markup with its value from
// fields. Tokens with no value become empty strings; no literal
// placeholder text survives substitution.
func Substitute(markup string, fields map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(markup, func(m string) string {
		key := placeholderPattern.FindStringSubmatch(m)[1]
		return fields[key]
	})
}
