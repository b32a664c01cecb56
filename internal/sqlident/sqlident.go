// Package sqlident guards table names that are formatted into SQL statements.
package sqlident

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalid is returned for names that cannot be safely interpolated into SQL.
var ErrInvalid = errors.New("invalid sql identifier")

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Validate checks a table name against a strict identifier grammar.
// Only names that pass are ever formatted into a query string.
func Validate(name string) (string, error) {
	if !identifierPattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalid, name)
	}
	return name, nil
}
