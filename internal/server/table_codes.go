package server

import (
	"errors"
	"math/rand"
	"strings"
)

const tableCodeLength = 4

// GenerateTableCode returns a random four-letter code not present in usedCodes.
func GenerateTableCode(usedCodes map[string]bool) string {
	for {
		code := make([]byte, tableCodeLength)
		for i := range code {
			code[i] = 'A' + byte(rand.Intn(26))
		}
		tableCode := string(code)

		if !usedCodes[tableCode] {
			return tableCode
		}
	}
}

func ValidateTableCode(code string) error {
	if len(code) != tableCodeLength {
		return errors.New("TABLE_CODE_INVALID: Table code must be exactly 4 characters")
	}

	code = strings.ToUpper(code)
	for _, ch := range code {
		if ch < 'A' || ch > 'Z' {
			return errors.New("TABLE_CODE_INVALID: Table code must contain only letters A-Z")
		}
	}

	return nil
}

func NormalizeTableCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
