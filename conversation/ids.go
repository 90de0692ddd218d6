package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateID returns a fresh conversation ID. IDs sort by creation order
// (microsecond timestamp prefix) and carry a random suffix so concurrent
// creations never collide.
func GenerateID() string {
	now := time.Now()
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("conversation_%s_%06d_%s",
		now.Format("20060102_150405"), now.Nanosecond()/1000, suffix)
}

// SanitizeID validates a conversation ID for use as a filesystem path
// component. It rejects path separators and parent-directory sequences
// outright and strips any character outside [A-Za-z0-9-_]. Returns the
// empty string when the ID is unsafe or empty after filtering.
func SanitizeID(id string) string {
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return ""
	}

	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}
