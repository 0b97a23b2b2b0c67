// Package numbering decides the (number, year) business key of quotes.
//
// Every function here is pure: no DB access, no clock, fully deterministic.
// Callers load the keys already in use and pass them in.
package numbering

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bwmarrin/snowflake"
)

const (
	MinYear = 2000
	MaxYear = 2100
)

var (
	ErrInvalidNumber = errors.New("invalid_number")
	ErrInvalidYear   = errors.New("invalid_year")
	ErrDuplicate     = errors.New("duplicate_number")
)

// Pair is a quote business key together with the record that owns it.
type Pair struct {
	ID     snowflake.ID
	Number int
	Year   int
}

// DuplicateError reports a custom number already owned by another quote.
type DuplicateError struct {
	Number int
	Year   int
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("quote number %s already exists", FormatKey(e.Number, e.Year))
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }

// FormatKey renders the user facing key, e.g. 3/2025 -> "03-2025".
func FormatKey(number, year int) string {
	return fmt.Sprintf("%02d-%d", number, year)
}

// NextProgressiveNumber returns the smallest n >= base that is not in existing.
// Numbers below base are ignored; a base below 1 is treated as 1.
func NextProgressiveNumber(existing []int, base int) int {
	if base < 1 {
		base = 1
	}
	sorted := append([]int(nil), existing...)
	sort.Ints(sorted)

	candidate := base
	for _, n := range sorted {
		if n < candidate {
			continue
		}
		if n > candidate {
			break
		}
		candidate++
	}
	return candidate
}

// ValidateCustomNumber checks a user supplied key. excludeID, when non-zero, names the
// record being renumbered so that it does not collide with itself.
func ValidateCustomNumber(number, year int, existing []Pair, excludeID snowflake.ID) error {
	if number < 1 {
		return ErrInvalidNumber
	}
	if year < MinYear || year > MaxYear {
		return ErrInvalidYear
	}
	for _, p := range existing {
		if excludeID != 0 && p.ID == excludeID {
			continue
		}
		if p.Number == number && p.Year == year {
			return &DuplicateError{Number: number, Year: year}
		}
	}
	return nil
}

// BaseNumber picks where the progressive scan starts. Custom numbering only shifts the
// base for clones; ordinary new quotes always start from 1.
func BaseNumber(customNumberingEnabled bool, startingNumber int, clone bool) int {
	if clone && customNumberingEnabled && startingNumber > 1 {
		return startingNumber
	}
	return 1
}

// NumbersForYear extracts the numbers used in year from a set of keys.
func NumbersForYear(pairs []Pair, year int) []int {
	out := make([]int, 0, len(pairs))
	for _, p := range pairs {
		if p.Year == year {
			out = append(out, p.Number)
		}
	}
	return out
}
