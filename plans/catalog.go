package plans

import "strings"

// catalog maps normalized topics to step templates. Lookup falls back to
// a substring match and finally to a generic template, so any topic a
// user types produces a usable plan.
var catalog = map[string][]Step{
	"go": {
		{Order: 1, Title: "Read the language tour", Description: "Work through the official tour end to end."},
		{Order: 2, Title: "Build a CLI tool", Description: "Flags, file IO, error handling."},
		{Order: 3, Title: "Learn goroutines and channels", Description: "Write a concurrent pipeline."},
		{Order: 4, Title: "Write an HTTP service", Description: "Routing, middleware, JSON handling."},
		{Order: 5, Title: "Add persistence", Description: "Wire a SQL database behind a repository."},
	},
	"sql": {
		{Order: 1, Title: "Model a schema", Description: "Tables, keys, relationships."},
		{Order: 2, Title: "Practice joins", Description: "Inner, outer, self joins on sample data."},
		{Order: 3, Title: "Learn aggregation", Description: "GROUP BY, HAVING, window functions."},
		{Order: 4, Title: "Study indexes", Description: "Read query plans, add the right indexes."},
	},
	"algorithms": {
		{Order: 1, Title: "Arrays and strings", Description: "Two pointers, sliding window."},
		{Order: 2, Title: "Hash maps and sets", Description: "Frequency counting, deduplication."},
		{Order: 3, Title: "Trees and graphs", Description: "Traversals, BFS, DFS."},
		{Order: 4, Title: "Dynamic programming", Description: "Memoization, tabulation."},
		{Order: 5, Title: "Practice timed problems", Description: "One problem a day under a clock."},
	},
}

var genericSteps = []Step{
	{Order: 1, Title: "Survey the fundamentals", Description: "Find the canonical introduction and read it."},
	{Order: 2, Title: "Build something small", Description: "Apply the basics to a toy project."},
	{Order: 3, Title: "Go deeper on weak spots", Description: "Revisit whatever felt shaky in practice."},
	{Order: 4, Title: "Ship a real project", Description: "Put the skill to work end to end."},
}

// Generate builds a plan for the topic. Ownership and persistence are the
// caller's concern; this only fills in the template.
func Generate(topic string) Plan {
	normalized := normalize(topic)

	steps, ok := catalog[normalized]
	if !ok {
		for key, candidate := range catalog {
			if strings.Contains(normalized, key) {
				steps = candidate
				ok = true
				break
			}
		}
	}

	if !ok {
		steps = genericSteps
	}

	out := make([]Step, len(steps))
	copy(out, steps)

	return Plan{
		Topic: topic,
		Title: "Study plan: " + strings.TrimSpace(topic),
		Steps: out,
	}
}

func normalize(topic string) string {
	return strings.ToLower(strings.TrimSpace(topic))
}
