package search

import (
	"strconv"
	"strings"
)

const defaultLimit = 10

// Query represents the structured parameters of a catalog search.
// It decouples the raw user input from the actual index engine
// requirements.
type Query struct {
	RawInput string   // The original input from the user
	Terms    string   // The actual text to search in Bluge
	Tags     []string // Tag filters, all must match
	Category string   // Category filter
	Limit    int      // Pagination: number of results
}

// ParseQuery parses a raw string to extract command-line style arguments.
// Example: /find databases --tag sql --category computer-science --limit 5
func ParseQuery(input string) Query {
	query := Query{
		RawInput: input,
		Limit:    defaultLimit,
	}

	parts := strings.Fields(input)
	var textTerms []string

	for i := 0; i < len(parts); i++ {
		part := parts[i]

		// Handle flags like --tag sql or --limit 5
		if strings.HasPrefix(part, "--") && i+1 < len(parts) {
			key := strings.TrimPrefix(part, "--")
			val := parts[i+1]

			switch key {
			case "tag":
				query.Tags = append(query.Tags, strings.ToLower(val))
			case "category":
				query.Category = strings.ToLower(val)
			case "limit":
				if limit, err := strconv.Atoi(val); err == nil && limit > 0 {
					query.Limit = limit
				}
			}
			i++ // Skip the value part in next iteration
			continue
		}

		// If it's not a flag, it's a search term
		if !strings.HasPrefix(part, "/") {
			textTerms = append(textTerms, part)
		}
	}

	query.Terms = strings.Join(textTerms, " ")
	return query
}
