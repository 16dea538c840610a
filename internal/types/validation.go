package types

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxTitleLen caps memory titles. The producing UI enforces this too; the
// adapters re-check so a bad caller cannot push oversized rows remotely.
const MaxTitleLen = 100

// ValidateTitle checks the non-empty and length constraints on a title.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title must not be empty")
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return fmt.Errorf("title exceeds %d characters", MaxTitleLen)
	}
	return nil
}

// ValidateIDPresent checks that a required identifier is non-empty.
func ValidateIDPresent(id, field string) error {
	if id == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}
