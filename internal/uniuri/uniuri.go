// Package uniuri generates random strings from crypto/rand, used for
// generated credentials such as the initial administrator password.
package uniuri

import (
	"crypto/rand"
	"errors"
)

// StdLen gives about 95 bits of entropy with StdChars.
const StdLen = 16

var (
	// StdChars are letters and digits.
	StdChars = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789") //nolint:gochecknoglobals

	// PasswordChars adds punctuation that survives shells and config files unquoted.
	PasswordChars = append([]byte("-_.+"), StdChars...) //nolint:gochecknoglobals
)

// ErrCharset is returned for a charset with less than 2 or more than 256 characters.
var ErrCharset = errors.New("uniuri: charset must hold 2 to 256 characters")

// New returns a random string of StdLen StdChars.
func New() (string, error) {
	return NewLenChars(StdLen, StdChars)
}

// NewLen returns a random string of length StdChars.
func NewLen(length int) (string, error) {
	return NewLenChars(length, StdChars)
}

// NewLenChars returns a random string of length characters of chars. Each
// character is equally likely.
func NewLenChars(length int, chars []byte) (string, error) {
	if len(chars) < 2 || len(chars) > 256 {
		return "", ErrCharset
	}

	// bytes at or above limit would favour the first characters
	limit := 256 - 256%len(chars)
	out := make([]byte, 0, length)
	buf := make([]byte, length+length/2+1)

	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}

		for _, b := range buf {
			if int(b) >= limit {
				continue
			}

			out = append(out, chars[int(b)%len(chars)])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}
