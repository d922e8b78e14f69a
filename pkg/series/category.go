package series

import (
	"errors"
	"fmt"
)

// Category is the single quality label attached to a sample.
type Category string

// Sample categories. Filter categories record which screening stage removed the value.
const (
	CategoryOkay               Category = "OKAY"
	CategoryMissing            Category = "MISSING"
	CategoryNegOrZero          Category = "NEG_OR_ZERO"
	CategoryIdenticalRun       Category = "IDENTICAL_RUN"
	CategoryGlobalDem          Category = "GLOBAL_DEM"
	CategoryGlobalDemPlusMinus Category = "GLOBAL_DEM_PLUS_MINUS"
	CategoryLocalDemUp         Category = "LOCAL_DEM_UP"
	CategoryLocalDemDown       Category = "LOCAL_DEM_DOWN"
	CategoryDelta              Category = "DELTA"
	CategorySingleDelta        Category = "SINGLE_DELTA"
	CategoryAnomalousRegion    Category = "ANOMALOUS_REGION"
)

// ErrUnknownCategory is returned when parsing an unrecognized category label.
var ErrUnknownCategory = errors.New("unknown category")

var allCategories = []Category{
	CategoryOkay,
	CategoryMissing,
	CategoryNegOrZero,
	CategoryIdenticalRun,
	CategoryGlobalDem,
	CategoryGlobalDemPlusMinus,
	CategoryLocalDemUp,
	CategoryLocalDemDown,
	CategoryDelta,
	CategorySingleDelta,
	CategoryAnomalousRegion,
}

// AllCategories returns every category, OKAY and MISSING first, then the filter
// categories in screening stage order.
func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)

	return out
}

// ParseCategory converts a label into a Category. The empty string is OKAY.
func ParseCategory(label string) (Category, error) {
	if label == "" {
		return CategoryOkay, nil
	}

	for _, c := range allCategories {
		if string(c) == label {
			return c, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, label)
}

// String returns the label.
func (c Category) String() string {
	return string(c)
}

// IsFiltered reports whether the category was assigned by a screening filter,
// i.e. it is neither OKAY nor MISSING.
func (c Category) IsFiltered() bool {
	return c != CategoryOkay && c != CategoryMissing && c != ""
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}

	*c = parsed

	return nil
}
