package core

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidPrice = errors.New("invalid price")

// ParsePrice converts a user typed amount into a float.
//
// It accepts dot (12.34) and comma (12,34) decimal separators, and a
// Brazilian style thousands separator when a comma decimal is present
// (1.234,56). Sign is not allowed: direction is carried by the type.
//
// Examples:
//
//	ParsePrice("12.34")    -> 12.34
//	ParsePrice("12,34")    -> 12.34
//	ParsePrice("1.234,56") -> 1234.56
func ParsePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidPrice
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidPrice
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidPrice
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return 0, ErrInvalidPrice
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidPrice
	}
	return v, nil
}
