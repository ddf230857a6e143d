package shop

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderCode builds the grouping code shared by every line of one
// finalization: P<yyyymmddhhmmss UTC>-<customer>-<suffix>. The uuid
// suffix keeps rapid repeated calls by the same customer within one
// second from colliding.
func NewOrderCode(customerID int64, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("P%s-%d-%s", now.UTC().Format("20060102150405"), customerID, suffix)
}
