package stdio

import "strings"

// Decode converts stream bytes to text using a fixed UTF-8 encoding,
// replacing invalid sequences. Pure function; no decoder state is kept
// between chunks.
func Decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
