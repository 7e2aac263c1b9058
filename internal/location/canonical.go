package location

import "strings"

// Canonicalize returns the comparison form of a place name: lower-cased,
// trimmed, with internal whitespace runs collapsed to a single space.
// Two names are the same place name iff their canonical forms are equal.
func Canonicalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
