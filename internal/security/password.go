package security

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const (
	upperAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	lowerAlphabet = "abcdefghijkmnopqrstuvwxyz"
	digitAlphabet = "23456789"

	// TemporaryPasswordAlphabet drops characters that read alike (0/O, 1/l/I).
	TemporaryPasswordAlphabet = upperAlphabet + lowerAlphabet + digitAlphabet

	minTemporaryPasswordLength = 8
)

var (
	errNegativeLength = errors.New("length must be non-negative")
	errEmptyAlphabet  = errors.New("alphabet must not be empty")
)

// RandomString draws length characters from alphabet using crypto/rand.
func RandomString(length int, alphabet string) (string, error) {
	switch {
	case length < 0:
		return "", errNegativeLength
	case length == 0:
		return "", nil
	case alphabet == "":
		return "", errEmptyAlphabet
	}

	value := make([]byte, length)
	for index := range value {
		char, err := randomChar(alphabet)
		if err != nil {
			return "", err
		}
		value[index] = char
	}
	return string(value), nil
}

// TemporaryPassword returns a password of at least eight characters that
// holds an upper case letter, a lower case letter and a digit.
func TemporaryPassword(length int) (string, error) {
	if length < minTemporaryPasswordLength {
		length = minTemporaryPasswordLength
	}

	value, err := RandomString(length, TemporaryPasswordAlphabet)
	if err != nil {
		return "", err
	}
	password := []byte(value)

	positions, err := distinctPositions(length, 3)
	if err != nil {
		return "", err
	}
	for index, alphabet := range []string{upperAlphabet, lowerAlphabet, digitAlphabet} {
		char, err := randomChar(alphabet)
		if err != nil {
			return "", err
		}
		password[positions[index]] = char
	}
	return string(password), nil
}

func randomChar(alphabet string) (byte, error) {
	position, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, err
	}
	return alphabet[position.Int64()], nil
}

func distinctPositions(length int, count int) ([]int, error) {
	positions := make([]int, 0, count)
	taken := make(map[int]bool, count)
	for len(positions) < count {
		position, err := rand.Int(rand.Reader, big.NewInt(int64(length)))
		if err != nil {
			return nil, err
		}
		index := int(position.Int64())
		if taken[index] {
			continue
		}
		taken[index] = true
		positions = append(positions, index)
	}
	return positions, nil
}
