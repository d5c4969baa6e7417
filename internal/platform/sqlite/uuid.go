package sqlite

import (
	"fmt"

	"github.com/google/uuid"
)

// parseUUID wraps uuid parsing with a store-flavored error so callers
// see which table produced the bad value.
func parseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse stored id %q: %w", s, err)
	}
	return id, nil
}
