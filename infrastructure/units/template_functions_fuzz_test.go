package units

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func FuzzTruncate(f *testing.F) {
	truncate := GetTemplateFuncMap()["truncate"].(func(string, int) string)

	f.Add("hello world", 5)
	f.Add("", 10)
	f.Add("a", 0)
	f.Add("héllo wørld", 8)
	f.Add(strings.Repeat("x", 1000), 100)
	f.Add("🚀🌟💫", 2)
	f.Add("​hello​", 5)

	f.Fuzz(func(t *testing.T, input string, length int) {
		if !utf8.ValidString(input) {
			t.Skip()
		}

		result := truncate(input, length)

		if length <= 0 {
			if result != "" {
				t.Errorf("truncate(%q, %d) = %q, want empty", input, length, result)
			}
			return
		}

		if n := utf8.RuneCountInString(result); n > length {
			t.Errorf("truncate(%q, %d) has %d runes", input, length, n)
		}
		if !utf8.ValidString(result) {
			t.Errorf("truncate(%q, %d) produced invalid UTF-8", input, length)
		}
		if utf8.RuneCountInString(input) <= length && result != input {
			t.Errorf("truncate(%q, %d) = %q, want input unchanged", input, length, result)
		}
	})
}
