package patch

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownFactor means a factor label is not in the table.
var ErrUnknownFactor = errors.New("unknown factor")

// Factor is one selectable multiplier, e.g. {"150%", 1.5}.
type Factor struct {
	Label string  `yaml:"label"`
	Value float64 `yaml:"value"`
}

// FactorTable is the ordered list of multipliers offered to the user.
type FactorTable []Factor

// DefaultFactors returns the 50%..250% table.
func DefaultFactors() FactorTable {
	return FactorTable{
		{"50%", 0.50},
		{"75%", 0.75},
		{"100%", 1.00},
		{"125%", 1.25},
		{"150%", 1.50},
		{"175%", 1.75},
		{"200%", 2.00},
		{"225%", 2.25},
		{"250%", 2.50},
	}
}

// Lookup finds a factor by label. A bare number is treated as a percentage
// ("150" finds "150%").
func (t FactorTable) Lookup(label string) (Factor, error) {
	label = strings.TrimSpace(label)
	if label != "" && !strings.HasSuffix(label, "%") {
		label += "%"
	}
	for _, f := range t {
		if strings.EqualFold(f.Label, label) {
			return f, nil
		}
	}
	return Factor{}, fmt.Errorf("%w: %q (choose one of %s)", ErrUnknownFactor, label, strings.Join(t.Labels(), ", "))
}

// Labels returns the labels in table order.
func (t FactorTable) Labels() []string {
	out := make([]string, 0, len(t))
	for _, f := range t {
		out = append(out, f.Label)
	}
	return out
}

// Validate checks that every entry is labelled and positive.
func (t FactorTable) Validate() error {
	if len(t) == 0 {
		return errors.New("factor table is empty")
	}
	seen := make(map[string]struct{}, len(t))
	for _, f := range t {
		if f.Label == "" {
			return errors.New("factor with empty label")
		}
		if err := checkFactor(f.Value); err != nil {
			return fmt.Errorf("factor %s: %w", f.Label, err)
		}
		key := strings.ToLower(f.Label)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate factor label %s", f.Label)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func checkFactor(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("multiplier must be a positive finite number, got %v", v)
	}
	return nil
}

// Scale multiplies old by factor and rounds half away from zero.
// ok is false when the result does not fit in an int64.
func Scale(old int64, factor float64) (scaled int64, ok bool) {
	r := math.Round(float64(old) * factor)
	if math.IsNaN(r) || math.IsInf(r, 0) || r < 0 || r >= math.MaxInt64 {
		return 0, false
	}
	return int64(r), true
}
