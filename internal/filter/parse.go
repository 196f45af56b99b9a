package filter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var knownTerms = map[string]bool{
	"brightness": true,
	"contrast":   true,
	"saturate":   true,
	"grayscale":  true,
	"sepia":      true,
	"invert":     true,
	"opacity":    true,
	"hue-rotate": true,
	"blur":       true,
	"grain":      true,
}

// Parse splits a filter expression into terms. Percentages become
// fractions, "deg" and "px" units are dropped; "turn" and "rad" angles are
// converted to degrees.
func Parse(expr string) ([]Term, error) {
	var terms []Term
	rest := strings.TrimSpace(expr)
	for rest != "" {
		open := strings.IndexByte(rest, '(')
		if open <= 0 {
			return nil, fmt.Errorf("invalid filter expression near %q", rest)
		}
		closing := strings.IndexByte(rest, ')')
		if closing < open {
			return nil, fmt.Errorf("unterminated filter term near %q", rest)
		}

		name := strings.ToLower(strings.TrimSpace(rest[:open]))
		if !knownTerms[name] {
			return nil, fmt.Errorf("unknown filter term %q", name)
		}
		value, err := parseValue(strings.TrimSpace(rest[open+1 : closing]))
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", name, err)
		}
		terms = append(terms, Term{Name: name, Value: value})
		rest = strings.TrimSpace(rest[closing+1:])
	}
	return terms, nil
}

func parseValue(s string) (float64, error) {
	scale := 1.0
	switch {
	case strings.HasSuffix(s, "%"):
		s, scale = strings.TrimSuffix(s, "%"), 0.01
	case strings.HasSuffix(s, "deg"):
		s = strings.TrimSuffix(s, "deg")
	case strings.HasSuffix(s, "turn"):
		s, scale = strings.TrimSuffix(s, "turn"), 360
	case strings.HasSuffix(s, "rad"):
		s, scale = strings.TrimSuffix(s, "rad"), 180/math.Pi
	case strings.HasSuffix(s, "px"):
		s = strings.TrimSuffix(s, "px")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	return v * scale, nil
}
