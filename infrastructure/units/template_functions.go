package units

import (
	"strconv"
	"strings"
	"text/template"
	"unicode/utf8"
)

// GetTemplateFuncMap returns the functions available to Jury prompt
// templates. All functions are pure and safe for concurrent use.
//
//	tmpl, err := template.New("jury").Funcs(GetTemplateFuncMap()).Parse(text)
func GetTemplateFuncMap() template.FuncMap {
	return template.FuncMap{
		// initial returns the first rune of s, or "" for an empty string.
		// Template usage: {{initial .Persona}}: {{.Content}}
		"initial": func(s string) string {
			r, size := utf8.DecodeRuneInString(strings.TrimSpace(s))
			if size == 0 || r == utf8.RuneError {
				return ""
			}
			return string(r)
		},

		// truncate limits s to length runes, ending in "..." when cut.
		// Template usage: {{truncate .Content 400}}
		"truncate": truncateRunes,

		// quote returns s as a double-quoted Go string literal.
		// Template usage: CLAIM: {{quote .Claim}}
		"quote": strconv.Quote,

		"lower": strings.ToLower,
		"upper": strings.ToUpper,
		"trim":  strings.TrimSpace,

		// join concatenates elems with sep.
		// Template usage: {{join .Personas ", "}}
		"join": func(elems []string, sep string) string {
			return strings.Join(elems, sep)
		},
	}
}

func truncateRunes(s string, length int) string {
	if length <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= length {
		return s
	}

	runes := []rune(s)
	if length > 3 {
		return string(runes[:length-3]) + "..."
	}
	return string(runes[:length])
}
