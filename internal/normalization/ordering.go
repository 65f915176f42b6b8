package normalization

import (
	"sort"

	"xrpl-activity-lab/internal/domain"
)

// SortFeed orders activities by (timestamp DESC, id ASC), the feed order.
func SortFeed(feed []*domain.NormalizedActivity) {
	sort.SliceStable(feed, func(i, j int) bool {
		return CompareActivities(feed[i], feed[j]) < 0
	})
}

// CompareActivities returns:
//   - negative if a sorts before b
//   - zero if a == b
//   - positive if a sorts after b
func CompareActivities(a, b *domain.NormalizedActivity) int {
	if !a.Timestamp.Equal(b.Timestamp) {
		if a.Timestamp.After(b.Timestamp) {
			return -1
		}
		return 1
	}
	if a.ID != b.ID {
		if a.ID < b.ID {
			return -1
		}
		return 1
	}
	return 0
}

// IsSorted reports whether feed is in feed order with no duplicate ids.
func IsSorted(feed []*domain.NormalizedActivity) bool {
	for i := 1; i < len(feed); i++ {
		if CompareActivities(feed[i-1], feed[i]) >= 0 {
			return false
		}
	}
	return true
}
