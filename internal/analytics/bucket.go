package analytics

import (
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// BucketByDate counts timestamps per UTC calendar date, ascending, keeping
// only dates on or after since. A zero since keeps everything.
func BucketByDate(timestamps []time.Time, since time.Time) []DailyCount {
	sinceDay := ""
	if !since.IsZero() {
		sinceDay = since.UTC().Format(dateLayout)
	}
	counts := make(map[string]int)
	for _, ts := range timestamps {
		if ts.IsZero() {
			continue
		}
		day := ts.UTC().Format(dateLayout)
		if day < sinceDay {
			continue
		}
		counts[day]++
	}

	out := make([]DailyCount, 0, len(counts))
	for day, n := range counts {
		out = append(out, DailyCount{Date: day, Calls: n})
	}
	// YYYY-MM-DD sorts lexically in date order.
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
