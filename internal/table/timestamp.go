package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// epochMsThreshold separates second-resolution from millisecond-resolution
// integer timestamps (1e11 s is year 5138).
const epochMsThreshold = 100_000_000_000

// ParseTimestamp converts a cell to Unix milliseconds (UTC). Integer cells are
// epoch seconds or milliseconds; anything else goes through dateparse.
func ParseTimestamp(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty timestamp")
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n >= epochMsThreshold || n <= -epochMsThreshold {
			return n, nil
		}
		return n * 1000, nil
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UnixMilli(), nil
}
