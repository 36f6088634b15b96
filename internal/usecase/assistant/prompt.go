package assistant

import (
	"strconv"
	"strings"

	"github.com/kailas-cloud/herdask/internal/domain/ranking"
)

// DefaultSystemPrompt instructs the model to stay within the retrieved listings.
const DefaultSystemPrompt = "You are a helpful assistant for a livestock marketplace. " +
	"Answer the user's question using only the listings in the context. " +
	"If no listing matches, say so and suggest refining the search. Keep answers short."

// buildContext renders one line per ranked listing. No results yields an empty string.
func buildContext(results []ranking.ScoredListing) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	for i := range results {
		l := results[i].Listing()

		location := "n/a"
		if loc, ok := l.Location(); ok {
			location = loc
		}
		price := "n/a"
		if p, ok := l.Price(); ok {
			price = strconv.FormatFloat(p, 'f', -1, 64)
		}

		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(l.Type())
		b.WriteString(" (")
		b.WriteString(l.Breed())
		b.WriteString("), location: ")
		b.WriteString(location)
		b.WriteString(", price: ")
		b.WriteString(price)
	}
	return b.String()
}

func buildUserPrompt(contextBlock, message string) string {
	return "Context:\n" + contextBlock + "\n\nQuestion: " + message
}
