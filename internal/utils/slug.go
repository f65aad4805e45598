package utils

import "strings"

// Slug lowercases a name and reduces it to [a-z0-9-] so it can be used as
// part of a storage folder name. Runs of non-alphanumeric characters
// collapse into a single hyphen; leading and trailing hyphens are dropped.
func Slug(s string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
