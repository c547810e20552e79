// Package secpass generates device provisioning passwords. Output is
// drawn from crypto/rand; the provisioned credential is the only copy
// that ever exists, so the source must be cryptographically secure.
package secpass

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

const (
	lowercase = "abcdefghijklmnopqrstuvwxyz"
	uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits    = "0123456789"

	// DefaultLength matches the SIP endpoints' provisioning profile.
	DefaultLength = 15
)

// ErrTooShort is returned when the requested length cannot hold one
// character from each required class.
var ErrTooShort = errors.New("password length must be at least 3")

// Generate returns a random password of exactly length characters
// containing at least one lowercase letter, one uppercase letter and
// one digit. No special characters: the SIP provisioning parser does
// not accept them.
func Generate(length int) (string, error) {
	if length < 3 {
		return "", ErrTooShort
	}

	buf := make([]byte, 0, length)
	for _, class := range []string{lowercase, uppercase, digits} {
		c, err := pick(class)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}

	all := lowercase + uppercase + digits
	for len(buf) < length {
		c, err := pick(all)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}

	// Shuffle so the class-seeded characters are not pinned to the
	// front. Fisher-Yates driven by the same CSPRNG.
	for i := len(buf) - 1; i > 0; i-- {
		j, err := randInt(i + 1)
		if err != nil {
			return "", err
		}
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf), nil
}

func pick(set string) (byte, error) {
	i, err := randInt(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

func randInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("read random: %w", err)
	}
	return int(v.Int64()), nil
}
