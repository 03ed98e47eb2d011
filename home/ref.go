package home

import (
	"fmt"

	"github.com/google/uuid"
)

// ParseRef validates a raw category or product reference and returns its
// canonical form. References are UUIDs. Parsing at the boundary keeps the
// manager's logic free of per-field format branches.
func ParseRef(raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: malformed reference %q", ErrInvalidReference, raw)
	}
	return id.String(), nil
}
