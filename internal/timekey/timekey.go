package timekey

import (
	"fmt"
	"strings"
	"time"
)

// Granularity is the time-partitioning scope of a content artifact.
// It is a closed set: free-form strings threading through cache keys
// would turn a typo into a permanently missed partition.
type Granularity string

const (
	Daily    Granularity = "daily"
	Tomorrow Granularity = "tomorrow"
	Weekly   Granularity = "weekly"
	Monthly  Granularity = "monthly"
)

// AllGranularities in generation order.
var AllGranularities = []Granularity{Daily, Tomorrow, Weekly, Monthly}

func (g Granularity) String() string {
	return string(g)
}

// Parse normalizes a granularity name, rejecting anything outside the
// closed set.
func Parse(raw string) (Granularity, error) {
	candidate := Granularity(strings.ToLower(strings.TrimSpace(raw)))
	switch candidate {
	case Daily, Tomorrow, Weekly, Monthly:
		return candidate, nil
	}
	return "", fmt.Errorf("unknown granularity %q", raw)
}

// TTLDays is how long a record of each granularity stays valid. The
// tomorrow partition gets two days so it remains readable after it
// becomes today's.
func (g Granularity) TTLDays() int {
	switch g {
	case Daily:
		return 1
	case Tomorrow:
		return 2
	case Weekly:
		return 7
	case Monthly:
		return 31
	default:
		return 1
	}
}

// Derive maps now to the stable partition identifier for the
// granularity. All keys are computed in UTC so the partition function
// is independent of server locale.
//
//   - daily/tomorrow: UTC calendar date of now+offsetDays (tomorrow is
//     daily with offsetDays=1; callers apply the offset)
//   - weekly: year plus elapsed-7-day buckets since Jan 1 (not ISO
//     weeks; boundaries deliberately do not align to Mondays)
//   - monthly: YYYY-MM
func Derive(g Granularity, now time.Time, offsetDays int) string {
	now = now.UTC()
	switch g {
	case Weekly:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		weekNum := int(now.Sub(start) / (7 * 24 * time.Hour))
		return fmt.Sprintf("%d-W%d", now.Year(), weekNum)
	case Monthly:
		return now.Format("2006-01")
	default:
		return now.AddDate(0, 0, offsetDays).Format("2006-01-02")
	}
}

// DeriveNow derives the partition key for the granularity as consumed
// by readers: tomorrow reads ahead one day, everything else reads the
// current partition.
func DeriveNow(g Granularity, now time.Time) string {
	if g == Tomorrow {
		return Derive(g, now, 1)
	}
	return Derive(g, now, 0)
}

// ExpiresAt computes the record expiry for a granularity relative to
// generation time.
func ExpiresAt(g Granularity, generatedAt time.Time) time.Time {
	return generatedAt.UTC().AddDate(0, 0, g.TTLDays())
}
