// SPDX-License-Identifier: MIT
//
// Copyright © 2020 Kent Gibson <warthog618@gmail.com>.

// Package buffer provides a fixed capacity byte buffer.
//
// The buffer never grows. Its storage is allocated once, when the buffer is
// created, and is reused for the lifetime of the buffer.
package buffer

// Fixed is a byte buffer with a fixed capacity and a valid length cursor.
type Fixed struct {
	b []byte
	n int
}

// New creates a Fixed buffer with the given capacity.
//
// A negative size is treated as zero.
func New(size int) *Fixed {
	if size < 0 {
		size = 0
	}
	return &Fixed{b: make([]byte, size)}
}

// Append adds c to the end of the buffer.
//
// Returns false, and leaves the buffer unchanged, if the buffer is full.
func (f *Fixed) Append(c byte) bool {
	if f.n >= len(f.b) {
		return false
	}
	f.b[f.n] = c
	f.n++
	return true
}

// Reset zero fills the buffer and empties it.
func (f *Fixed) Reset() {
	for i := range f.b {
		f.b[i] = 0
	}
	f.n = 0
}

// Bytes returns the valid contents of the buffer.
//
// The slice aliases the buffer storage and is only valid until the next
// Append or Reset.
func (f *Fixed) Bytes() []byte {
	return f.b[:f.n]
}

// Raw returns the full storage of the buffer, including any unused tail.
func (f *Fixed) Raw() []byte {
	return f.b
}

// Len returns the number of valid bytes in the buffer.
func (f *Fixed) Len() int {
	return f.n
}

// Cap returns the capacity of the buffer.
func (f *Fixed) Cap() int {
	return len(f.b)
}

// Full returns true if no more bytes can be appended.
func (f *Fixed) Full() bool {
	return f.n >= len(f.b)
}

func (f *Fixed) String() string {
	return string(f.Bytes())
}
