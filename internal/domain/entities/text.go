package entities

import (
	"strings"

	"golang.org/x/text/cases"
)

// ContainsFold reports whether substr occurs in s under Unicode case folding,
// so "STRASSE" finds "Straße" and Cyrillic titles match regardless of case.
func ContainsFold(s, substr string) bool {
	fold := cases.Fold()
	return strings.Contains(fold.String(s), fold.String(substr))
}
