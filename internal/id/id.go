// Package id generates prefixed NanoID identifiers for Recall entities.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// size is the random part length. 21 URL-safe characters give UUID-class
// collision resistance in two thirds the width.
const size = 21

// Generate creates an ID of the form "prefix-<nanoid>", e.g.
// "rec-V1StGXR8_Z5jdHi6B-myT". The prefix names the entity kind so IDs stay
// self-describing in logs and store keys.
//
// Fails only when the system cannot supply secure random bytes.
func Generate(prefix string) (string, error) {
	suffix, err := gonanoid.New(size)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + suffix, nil
}

// MustGenerate is Generate panicking on failure. Reserve it for
// initialization paths where missing entropy should crash the program.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}
