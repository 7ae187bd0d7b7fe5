package models

import (
	"crypto/rand"
	"regexp"
)

const slugAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_-"

// SlugLength is the fixed length of board and user slugs.
const SlugLength = 10

// SlugPattern matches a well-formed board or user slug.
var SlugPattern = regexp.MustCompile(`^[\w-]{10}$`)

// NewSlug returns a random 10-char URL-safe slug.
func NewSlug() string {
	buf := make([]byte, SlugLength)
	rand.Read(buf)
	for i := range buf {
		buf[i] = slugAlphabet[int(buf[i])%len(slugAlphabet)]
	}
	return string(buf)
}
