package typecode

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// stopword is dropped from room type names before the code is built
const stopword = "room"

// Derive builds the short uppercase code for a room type name.
// "King Bed Suite" becomes "KBS" and "Deluxe Room" becomes "D".
// A name made only of stopwords (or blank) yields "".
func Derive(name string) string {
	var b strings.Builder
	for _, token := range strings.Fields(name) {
		if strings.EqualFold(token, stopword) {
			continue
		}
		r, _ := utf8.DecodeRuneInString(token)
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// Valid reports whether code can be used as a single path segment.
func Valid(code string) bool {
	if code == "" || code == "." || code == ".." {
		return false
	}
	return !strings.ContainsAny(code, `/\`) && !strings.ContainsRune(code, 0)
}
