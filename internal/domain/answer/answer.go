package answer

import "github.com/kailas-cloud/herdask/internal/domain/ranking"

// Answer is the memoized outcome of a question: the generated reply and the listings it was grounded on.
// Recommendation lookups store results only and leave Reply empty.
type Answer struct {
	Reply   string
	Results []ranking.ScoredListing
}
