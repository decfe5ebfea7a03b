package utils

import (
	"math/rand/v2"

	"github.com/google/uuid"
)

const randAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandString returns a random alphanumeric string of length n. It is not
// suitable for secrets.
func RandString(n int) string {
	if n <= 0 {
		return ""
	}

	b := make([]byte, n)
	for i := range b {
		b[i] = randAlphabet[rand.IntN(len(randAlphabet))]
	}
	return string(b)
}

// RandInt returns a random integer in [min, max]. Arguments in the wrong
// order are swapped.
func RandInt(min, max int) int {
	if min > max {
		min, max = max, min
	}
	return min + rand.IntN(max-min+1)
}

// NewUUID returns a time-ordered UUID (version 7), falling back to a
// random version 4 when v7 generation fails.
func NewUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
