package generator

import "strings"

// DefaultTopics seeds the suggestion list when none is configured.
var DefaultTopics = []string{
	"Biology - Cell Structure and Function",
	"History - World War II",
	"Mathematics - Algebra",
	"Physics - Forces and Motion",
	"Chemistry - Periodic Table",
	"Literature - Shakespeare",
	"Computer Science - Algorithms",
	"Geography - Climate Change",
}

// Suggester offers topic completions for the generator form.
type Suggester struct {
	topics []string
}

func NewSuggester(topics []string) *Suggester {
	if len(topics) == 0 {
		topics = DefaultTopics
	}
	return &Suggester{topics: append([]string(nil), topics...)}
}

// Suggest returns topics containing query, case-insensitively. An empty
// query yields no suggestions.
func (s *Suggester) Suggest(query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []string{}
	}
	out := make([]string, 0, len(s.topics))
	for _, t := range s.topics {
		if strings.Contains(strings.ToLower(t), query) {
			out = append(out, t)
		}
	}
	return out
}
