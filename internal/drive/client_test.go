package drive

import (
	"testing"
)

func TestEscapeQueryTerm(t *testing.T) {
	cases := map[string]string{
		"plain":          "plain",
		"O'Brien's":      `O\'Brien\'s`,
		`back\slash`:     `back\\slash`,
		`mix'ed\already`: `mix\'ed\\already`,
	}
	for input, want := range cases {
		if got := escapeQueryTerm(input); got != want {
			t.Fatalf("escapeQueryTerm(%q) = %q, want %q", input, got, want)
		}
	}
}
