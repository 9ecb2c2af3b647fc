package teacher

import (
	"crypto/rand"

	"github.com/pkg/errors"
)

// codeAlphabet excludes ambiguous characters (0, O, 1, I) so codes survive
// being read out loud in a classroom.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLen      = 6
)

var randReadFunc = rand.Read // mockable

// generateCode returns a fresh 6-character class code. Uniqueness is the
// caller's problem; see Service.Signup.
func generateCode() (string, error) {
	buf := make([]byte, codeLen)
	if _, err := randReadFunc(buf); err != nil {
		return "", errors.Wrap(err, "reading random bytes")
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
