// Package info provides utility functions for locating tokens and fields in
// the raw responses returned by the modem.
package info

// Index returns the index of the first occurrence of token in b at or after
// start, or -1 if token is not present.
func Index(b []byte, token string, start int) int {
	if start < 0 {
		start = 0
	}
	last := len(b) - len(token)
	for i := start; i <= last; i++ {
		if string(b[i:i+len(token)]) == token {
			return i
		}
	}
	return -1
}

// Contains returns true if token is present anywhere in b.
func Contains(b []byte, token string) bool {
	return Index(b, token, 0) >= 0
}

// Digit returns the value of the decimal digit at b[offset].
//
// Returns false if offset is out of range or the byte is not a digit.
func Digit(b []byte, offset int) (int, bool) {
	if offset < 0 || offset >= len(b) {
		return 0, false
	}
	c := b[offset]
	if c < '0' || c > '9' {
		return 0, false
	}
	return int(c - '0'), true
}

// ParseUint parses the run of decimal digits starting at b[offset].
//
// Parsing stops at the first non-digit or the end of b. The value and the
// number of digits consumed are returned. If there is no digit at offset then
// n is 0.
func ParseUint(b []byte, offset int) (v int, n int) {
	for {
		d, ok := Digit(b, offset+n)
		if !ok {
			return
		}
		v = v*10 + d
		n++
	}
}
