// Copyright 2021 Ilia Frenkel. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE.txt file.

// Package slug turns free-text titles into URL-safe share identifiers.
package slug

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

// Length limits for a valid slug.
const (
	MinLength = 3
	MaxLength = 50
)

// RandomLength is the length of the tokens produced by Random.
const RandomLength = 10

// ErrTooShort and ErrTooLong are returned by Validate.
var (
	ErrTooShort = errors.New("slug is too short")
	ErrTooLong  = errors.New("slug is too long")
)

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Slugify lower-cases the title, removes everything that is not a latin
// letter, a digit, a whitespace or a hyphen, replaces whitespace runs with a
// single hyphen and trims hyphens from both ends. Slugify(Slugify(s)) is
// always equal to Slugify(s).
func Slugify(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	// pending is set when a separator (space or hyphen) was seen and not yet
	// written, this way runs of separators collapse into one hyphen and
	// leading/trailing separators are dropped.
	pending := false
	for _, r := range strings.ToLower(title) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
		case r == '-' || isSpace(r):
			pending = true
		}
	}

	return b.String()
}

// isSpace reports whether r is whitespace as understood by the \s class of
// ECMAScript regular expressions. It differs from unicode.IsSpace: U+0085
// is not whitespace and U+FEFF is.
func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ',
		'\u00a0', '\u1680', '\u2028', '\u2029', '\u202f', '\u205f', '\u3000', '\ufeff':
		return true
	}
	return r >= '\u2000' && r <= '\u200a'
}

// Random returns a random token that can be used as a slug when the user
// didn't provide a title.
func Random() string {
	var b strings.Builder
	b.Grow(RandomLength)
	for i := 0; i < RandomLength; i++ {
		b.WriteByte(alphabet[rand.Intn(len(alphabet))]) // #nosec
	}
	return b.String()
}

// Validate checks that the slug length is within [MinLength, MaxLength].
func Validate(s string) error {
	switch n := len(s); {
	case n < MinLength:
		return fmt.Errorf("%w: %q must be at least %d characters", ErrTooShort, s, MinLength)
	case n > MaxLength:
		return fmt.Errorf("%w: %d characters, at most %d allowed", ErrTooLong, n, MaxLength)
	}
	return nil
}
