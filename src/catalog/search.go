package catalog

import (
	"regexp"
	"sort"
	"strings"

	"github.com/toolgate/gateway-client/src/tools"
)

var wordRegex = regexp.MustCompile(`\w+`)

// Scoring weights. A name hit outranks any number of description hits of
// the same query word.
const (
	nameWeight        = 3.0
	tagWeight         = 1.0
	descriptionWeight = 0.5
)

// Search ranks list against a free text query. Names, domains and
// required scopes count as tags; description words longer than two
// characters add a smaller weight. Only tools with a positive score are
// returned, best first, at most limit of them (limit <= 0 means all).
func Search(list []tools.Tool, query string, limit int) []tools.Tool {
	queryLower := strings.ToLower(strings.TrimSpace(query))
	words := wordRegex.FindAllString(queryLower, -1)
	if len(words) == 0 {
		return []tools.Tool{}
	}
	queryWords := make(map[string]struct{}, len(words))
	for _, w := range words {
		queryWords[w] = struct{}{}
	}

	type scoredTool struct {
		tool  tools.Tool
		score float64
	}
	var scored []scoredTool
	for _, t := range list {
		var score float64

		name := strings.ToLower(t.Name)
		if strings.Contains(name, queryLower) {
			score += nameWeight
		}
		for _, w := range wordRegex.FindAllString(name, -1) {
			if _, ok := queryWords[w]; ok {
				score += tagWeight
			}
		}

		tags := append([]string{t.Domain}, t.RequiredScopes...)
		for _, tag := range tags {
			tagLower := strings.ToLower(tag)
			if tagLower == "" {
				continue
			}
			if strings.Contains(queryLower, tagLower) {
				score += tagWeight
			}
			for _, w := range wordRegex.FindAllString(tagLower, -1) {
				if _, ok := queryWords[w]; ok {
					score += descriptionWeight
				}
			}
		}

		for _, w := range wordRegex.FindAllString(strings.ToLower(t.Description), -1) {
			if len(w) > 2 {
				if _, ok := queryWords[w]; ok {
					score += descriptionWeight
				}
			}
		}

		if score > 0 {
			scored = append(scored, scoredTool{tool: t, score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	result := make([]tools.Tool, 0, len(scored))
	for _, st := range scored {
		if limit > 0 && len(result) >= limit {
			break
		}
		result = append(result, st.tool)
	}
	return result
}

// Search ranks the cached catalog against query.
func (c *Cache) Search(query string, limit int) []tools.Tool {
	return Search(c.Get(), query, limit)
}
