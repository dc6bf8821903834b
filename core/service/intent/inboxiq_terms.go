package intent

import "strings"

var termStopWords = map[string]bool{"the": true, "and": true, "or": true, "to": true, "from": true}

// SearchTerms expands a recipient hint into contact search terms: the whole
// hint first, then each significant word. Duplicates are dropped case-insensitively.
func SearchTerms(hint string) []string {
	hint = cleanPhrase(hint)
	if hint == "" {
		return nil
	}
	seen := map[string]bool{strings.ToLower(hint): true}
	terms := []string{hint}
	for _, word := range strings.Fields(hint) {
		word = strings.Trim(word, ".,;:!?\"'()")
		key := strings.ToLower(word)
		if len(word) <= 2 || termStopWords[key] || seen[key] {
			continue
		}
		seen[key] = true
		terms = append(terms, word)
	}
	return terms
}
