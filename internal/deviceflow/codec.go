package deviceflow

import (
	"net/url"
	"strings"
)

// formPair is one key/value pair of an application/x-www-form-urlencoded
// body. Unlike url.Values, an ordered slice is used so request bodies
// are built in a deterministic, testable order (client identification
// always follows the grant-specific parameters, matching the order the
// engine's request builders declare them in).
type formPair struct {
	key   string
	value string
}

// urlencode matches RFC 8628 / RFC 6749's form-urlencoded convention:
// spaces become '+', not '%20'. url.QueryEscape already does exactly
// this.
func urlencode(s string) string {
	return url.QueryEscape(s)
}

// buildForm assembles an application/x-www-form-urlencoded body from
// ordered pairs.
func buildForm(pairs ...formPair) string {
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(urlencode(p.key))
		b.WriteByte('=')
		b.WriteString(urlencode(p.value))
	}
	return b.String()
}

// matchContentType reports whether header names want as its media
// type, tolerating a trailing parameter list (";charset=..."). It does
// a length-limited prefix compare rather than parsing the parameters
// themselves — just enough to reject a response that claims to be
// something else entirely.
func matchContentType(header, want string) bool {
	if len(header) < len(want) {
		return false
	}
	if !strings.EqualFold(header[:len(want)], want) {
		return false
	}
	rest := header[len(want):]
	if rest == "" {
		return true
	}
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case ';':
			return true
		case ' ', '\t':
			continue
		default:
			return false
		}
	}
	return false
}

func formHeaders() map[string]string {
	return map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
}
