package paths

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSanitizeName_TableDriven(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "simple", input: "Thesis", expected: "thesis"},
		{name: "spaces collapse", input: "My  Great Paper", expected: "my_great_paper"},
		{name: "punctuation", input: "Quantum (v2)!", expected: "quantum_v2"},
		{name: "unicode stripped", input: "résumé", expected: "r_sum"},
		{name: "digits kept", input: "paper2026", expected: "paper2026"},
		{name: "empty", input: "", expected: "project"},
		{name: "only symbols", input: "!!!", expected: "project"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, SanitizeName(tc.input))
		})
	}
}

func TestRepoDirName_TruncatesProjectID(t *testing.T) {
	require.Equal(t, "thesis_0123abcd", RepoDirName("Thesis", "0123abcd-ffff-4000-8000-000000000000"))
	require.Equal(t, "thesis_ab", RepoDirName("Thesis", "ab"))
}

func TestSubprojectCandidates_CurrentBeforeLegacy(t *testing.T) {
	got := SubprojectCandidates(filepath.FromSlash("/data/thesis_0123abcd"), "sp-1")
	require.Equal(t, []string{
		filepath.FromSlash("/data/thesis_0123abcd/sp-1"),
		filepath.FromSlash("/data/thesis_0123abcd/file/sp-1"),
	}, got)
}

func TestNormalizeRepoRelative(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"/intro.tex", "intro.tex"},
		{"intro.tex", "intro.tex"},
		{"//docs/intro.tex", "docs/intro.tex"},
		{"docs//intro.tex", "docs/intro.tex"},
		{"docs/./intro.tex", "docs/intro.tex"},
		{"", ""},
		{"/", ""},
		{"..", ""},
		{"../etc/passwd", ""},
		{"docs/../../etc", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			require.Equal(t, tc.expected, NormalizeRepoRelative(tc.input))
		})
	}
}

// Property: a normalized path never starts with a slash and never escapes
// the repository, regardless of input.
func TestProperty_NormalizeRepoRelative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		input := rapid.String().Draw(t, "input")
		out := NormalizeRepoRelative(input)

		if strings.HasPrefix(out, "/") {
			t.Fatalf("normalized path starts with slash: %q -> %q", input, out)
		}
		if out == ".." || strings.HasPrefix(out, "../") {
			t.Fatalf("normalized path escapes repository: %q -> %q", input, out)
		}
		// Normalization is idempotent.
		if again := NormalizeRepoRelative(out); again != out {
			t.Fatalf("not idempotent: %q -> %q -> %q", input, out, again)
		}
	})
}
