package types

import (
	"fmt"
	"regexp"
)

// Matches Django's validate_comma_separated_integer_list: digits separated
// by single commas, no spaces, no trailing comma.
var commaSeparatedInts = regexp.MustCompile(`^\d+(?:,\d+)*$`)

// ValidateCommaSeparatedInts checks the format of a comma-separated integer
// list field. The check is format-only; values are not interpreted.
func ValidateCommaSeparatedInts(s string) error {
	if !commaSeparatedInts.MatchString(s) {
		return fmt.Errorf("%q is not a comma-separated integer list", s)
	}
	return nil
}
