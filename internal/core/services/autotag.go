package services

import (
	"sort"
	"strings"
)

// classifyDomains returns the tags whose keywords appear in text,
// case-insensitively, sorted by tag name.
func classifyDomains(text string, domainKeywords map[string][]string) []string {
	lower := strings.ToLower(text)
	matched := []string{}

	for tag, keywords := range domainKeywords {
		for _, kw := range keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				matched = append(matched, tag)
				break
			}
		}
	}

	sort.Strings(matched)
	return matched
}
