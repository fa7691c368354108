package scpi

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is a measurement range argument: a number formatted by Numeric or
// one of the keywords below.
type Range string

const (
	Auto    Range = "AUTO"
	Default Range = "DEF"
	Max     Range = "MAX"
	Min     Range = "MIN"
)

// Numeric formats v the way instruments expect numeric ranges, e.g. 10 as
// "1.00e+01".
func Numeric(v float64) Range {
	return Range(strconv.FormatFloat(v, 'e', 2, 64))
}

// Validate accepts a keyword (case-insensitive) or a number.
func (r Range) Validate() error {
	switch Range(strings.ToUpper(string(r))) {
	case Auto, Default, Max, Min:
		return nil
	}
	if _, err := strconv.ParseFloat(string(r), 64); err == nil {
		return nil
	}

	return fmt.Errorf("scpi: range %q must be numeric or one of AUTO, DEF, MAX, MIN", string(r))
}

// Resolution is a measurement resolution argument.
type Resolution string

const (
	ResolutionDefault Resolution = "DEF"
	ResolutionMax     Resolution = "MAX"
	ResolutionMin     Resolution = "MIN"
)

// Validate accepts DEF, MAX or MIN, case-insensitive.
func (r Resolution) Validate() error {
	switch Resolution(strings.ToUpper(string(r))) {
	case ResolutionDefault, ResolutionMax, ResolutionMin:
		return nil
	}

	return fmt.Errorf("scpi: resolution %q must be one of DEF, MAX, MIN", string(r))
}
