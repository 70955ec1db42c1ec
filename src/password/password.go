// Copyright 2021 Ilia Frenkel. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE.txt file.

// Package password hashes share passwords and verifies them later.
//
// A share created without a password stores NoPassword instead of a hash.
// Verification against NoPassword always fails, so a share without a
// password can never be unlocked, not even with an empty password.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor.
const Cost = 10

// MaxLength is the longest password bcrypt accepts, in bytes.
const MaxLength = 72

// NoPassword is stored instead of a hash when the share has no password.
const NoPassword = ""

// Hash returns a salted bcrypt hash of pwd. An empty password is not hashed,
// NoPassword is returned instead.
func Hash(pwd string) (string, error) {
	if pwd == "" {
		return NoPassword, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), Cost)
	if err != nil {
		return "", fmt.Errorf("password.Hash: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether candidate matches the stored hash. A mismatch is
// not an error: Verify returns false and a nil error. An error means that
// the stored hash is broken and the answer is unknown.
func Verify(candidate, stored string) (bool, error) {
	if stored == NoPassword {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(candidate))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("password.Verify: %w", err)
	}
}
