package guard

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestSanitizeSearchText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "clean", input: "Toyota Corolla", want: "Toyota Corolla"},
		{name: "trim", input: "  Honda  ", want: "Honda"},
		{name: "collapse whitespace", input: "BMW \t\n  3 series", want: "BMW 3 series"},
		{name: "strip markup", input: `<script>alert("x")</script>`, want: "scriptalert(x)/script"},
		{name: "strip sql punctuation", input: "audi'; drop table--", want: "audi drop table"},
		{name: "strip backtick", input: "`mercedes`", want: "mercedes"},
		{name: "hyphen", input: "x-trail", want: "xtrail"},
		{name: "empty", input: "", want: ""},
		{name: "only stripped", input: `<>"';-`, want: ""},
		{name: "unicode kept", input: "Škoda Octavia", want: "Škoda Octavia"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, SanitizeSearchText(tt.input))
		})
	}
}

func TestSanitizeSearchText_Clamp(t *testing.T) {
	long := strings.Repeat("é", 150)
	got := SanitizeSearchText(long)
	require.Equal(t, MaxSearchLength, utf8.RuneCountInString(got))

	// A cut that lands on a space is trimmed.
	spaced := strings.Repeat("a", 99) + " bcd"
	require.Equal(t, strings.Repeat("a", 99), SanitizeSearchText(spaced))
}

func TestSanitizeSearchText_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"Toyota",
		"  a  b  ",
		`"quoted" <tag> ; semi - hyphen`,
		strings.Repeat("ab ", 60),
		strings.Repeat("x", 99) + " - " + strings.Repeat("y", 10),
		" nbsp em space　",
		"bad utf8 \xff\xfe end",
		"tab\tseparated\tvalues",
	}

	for _, input := range inputs {
		once := SanitizeSearchText(input)
		require.Equal(t, once, SanitizeSearchText(once), "input %q", input)
		require.LessOrEqual(t, utf8.RuneCountInString(once), MaxSearchLength)
	}
}

func TestSanitizeAny(t *testing.T) {
	text := "  Ford  "
	var nilText *string

	require.Equal(t, "Ford", SanitizeAny(text))
	require.Equal(t, "Ford", SanitizeAny(&text))
	require.Equal(t, "", SanitizeAny(nilText))
	require.Equal(t, "", SanitizeAny(42))
	require.Equal(t, "", SanitizeAny(nil))
}
