package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateNumber builds the human-facing order number shown on the tracking
// page, e.g. "QR-20260831-7F3A2C". Uniqueness is backed by the unique index
// on orders.number; the uuid-derived suffix makes collisions practically
// impossible within a day.
func GenerateNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("QR-%s-%s", now.Format("20060102"), suffix)
}
