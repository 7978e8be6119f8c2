package apify

import (
	"fmt"
	"strings"
)

const recentKeywords = "(Bitcoin OR BTC OR Price OR Long OR Short)"

// RecentQuery builds one search over all handles for the latest posts.
func RecentQuery(handles []string) string {
	from := make([]string, len(handles))
	for i, h := range handles {
		from[i] = "from:" + h
	}
	return fmt.Sprintf("(%s) AND %s", strings.Join(from, " OR "), recentKeywords)
}

// BackfillQueries builds one date-bounded search per handle. Separate terms keep the
// provider's date filter applied per author.
func BackfillQueries(handles []string, since, until string) []string {
	out := make([]string, len(handles))
	for i, h := range handles {
		out[i] = fmt.Sprintf("(from:%s) (Bitcoin OR BTC) since:%s until:%s", h, since, until)
	}
	return out
}
