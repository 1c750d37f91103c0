package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	// CodeLength is the length of generated room codes
	CodeLength = 6

	// CodeCharset leaves out look-alikes such as 0/O and 1/I
	CodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// GenerateRoomCode creates a random code players can type to find a session
func GenerateRoomCode() (string, error) {
	charsetLength := big.NewInt(int64(len(CodeCharset)))
	var code strings.Builder
	code.Grow(CodeLength)

	for i := 0; i < CodeLength; i++ {
		idx, err := rand.Int(rand.Reader, charsetLength)
		if err != nil {
			return "", err
		}
		code.WriteByte(CodeCharset[idx.Int64()])
	}
	return code.String(), nil
}

// NormalizeRoomCode upper-cases and trims user input
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidRoomCode checks length and charset of a normalized code
func IsValidRoomCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, char := range code {
		if !strings.ContainsRune(CodeCharset, char) {
			return false
		}
	}
	return true
}
