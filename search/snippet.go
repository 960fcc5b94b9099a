package search

import "unicode"

const (
	snippetLength  = 200
	snippetContext = 100
)

// leadingSnippet returns the first snippetLength runes of content.
func leadingSnippet(content string) string {
	runes := []rune(content)
	if len(runes) <= snippetLength {
		return content
	}
	return string(runes[:snippetLength])
}

// matchSnippet returns the text around the first case-insensitive match of
// query, with snippetContext runes on each side. Without a match it falls
// back to leadingSnippet.
func matchSnippet(content, query string) string {
	runes := []rune(content)
	needle := []rune(query)
	idx := indexFold(runes, needle)
	if idx < 0 {
		return leadingSnippet(content)
	}
	start := max(0, idx-snippetContext)
	end := min(len(runes), idx+len(needle)+snippetContext)
	return string(runes[start:end])
}

// indexFold returns the rune index of the first match of needle in haystack,
// ignoring case, or -1.
func indexFold(haystack, needle []rune) int {
	if len(needle) == 0 {
		return -1
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, r := range needle {
			if unicode.ToLower(haystack[i+j]) != unicode.ToLower(r) {
				continue outer
			}
		}
		return i
	}
	return -1
}
