package llm

import "strings"

// CleanResponse strips markdown code fences and any prose around the
// outermost JSON object or array.
func CleanResponse(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			// drop the language tag
			s = s[nl+1:]
		}
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}

	open := strings.IndexAny(s, "{[")
	if open < 0 {
		return s
	}
	closer := byte('}')
	if s[open] == '[' {
		closer = ']'
	}
	if end := strings.LastIndexByte(s, closer); end > open {
		return s[open : end+1]
	}
	return s
}
