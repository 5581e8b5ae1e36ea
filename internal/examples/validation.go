package examples

import (
	"fmt"
	"strings"
)

// ValidateName checks that an example id is safe to turn into a filename.
// Dots are rejected so the extension is always the one Filename appends.
func ValidateName(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if strings.ContainsAny(id, "/\\.") {
		return fmt.Errorf("%w: %q", ErrInvalidName, id)
	}
	return nil
}
