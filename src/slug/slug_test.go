package slug

import (
	"math/rand"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"simple", "My Snippet", "my-snippet"},
		{"already a slug", "my-snippet", "my-snippet"},
		{"punctuation is stripped", "Hello, World!", "hello-world"},
		{"whitespace runs", "a \t\n  b", "a-b"},
		{"repeated hyphens", "a---b", "a-b"},
		{"mixed separators", "a - - b", "a-b"},
		{"leading and trailing", "  --Title--  ", "title"},
		{"non latin letters", "café au lait", "caf-au-lait"},
		{"underscores", "snake_case_name", "snakecasename"},
		{"digits", "Release 2.0", "release-20"},
		{"empty", "", ""},
		{"only symbols", "!!!", ""},
		{"byte order mark separates", "a\ufeffb", "a-b"},
		{"no-break space separates", "a\u00a0b", "a-b"},
		{"en quad separates", "a\u2000b", "a-b"},
		{"next line is dropped", "a\u0085b", "ab"},
		{"zero width space is dropped", "a\u200bb", "ab"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Slugify(tc.title))
		})
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	t.Parallel()

	const chars = "abcXYZ019 -_\t!@#é"
	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		var b strings.Builder
		n := rnd.Intn(40)
		runes := []rune(chars)
		for j := 0; j < n; j++ {
			b.WriteRune(runes[rnd.Intn(len(runes))])
		}
		once := Slugify(b.String())
		assert.Equal(t, once, Slugify(once), "title %q", b.String())
	}
}

func TestSlugifyCharset(t *testing.T) {
	t.Parallel()

	valid := regexp.MustCompile(`^([a-z0-9]+(-[a-z0-9]+)*)?$`)
	for _, title := range []string{"Some Title", " x ", "--", "ÄÖÜ tEst 123", "a b"} {
		got := Slugify(title)
		assert.Regexp(t, valid, got, "title %q", title)
	}
}

func TestRandom(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		s := Random()
		require.Len(t, s, RandomLength)
		require.NoError(t, Validate(s))
		assert.Equal(t, s, Slugify(s))
		seen[s] = struct{}{}
	}
	assert.Greater(t, len(seen), 90)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, Validate(""), ErrTooShort)
	assert.ErrorIs(t, Validate("ab"), ErrTooShort)
	assert.NoError(t, Validate("abc"))
	assert.NoError(t, Validate(strings.Repeat("a", MaxLength)))
	assert.ErrorIs(t, Validate(strings.Repeat("a", MaxLength+1)), ErrTooLong)
}
