// Package matcher decides whether a message is interesting for a chat's keyword list.
package matcher

import "strings"

// Matches reports whether text contains any of the keywords, ignoring case.
// Matching is plain substring containment; blank keywords never match.
func Matches(text string, keywords []string) bool {
	if text == "" || len(keywords) == 0 {
		return false
	}

	text = strings.ToLower(text)
	for _, keyword := range keywords {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// Matched returns the keywords found in text, in list order
func Matched(text string, keywords []string) []string {
	if text == "" {
		return nil
	}

	text = strings.ToLower(text)
	var found []string
	for _, keyword := range keywords {
		trimmed := strings.TrimSpace(keyword)
		if trimmed != "" && strings.Contains(text, strings.ToLower(trimmed)) {
			found = append(found, keyword)
		}
	}
	return found
}
