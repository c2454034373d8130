package workorder

import (
	"strings"

	"github.com/google/uuid"
)

// newID returns a short opaque identifier. The prior system used
// 12-character nanoids; a truncated v4 UUID keeps ids the same shape
// while staying on the stock uuid package.
func newID() string {
	return compactUUID()[:12]
}

func compactUUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
