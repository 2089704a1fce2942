package assistant

import "strings"

const (
	queryOpenTag  = "[CURSOR_QUERY]"
	queryCloseTag = "[/CURSOR_QUERY]"
)

// ParseCursorQuery extracts the sub-task embedded in an assistant reply.
// The second return is false when the reply carries no escalation span or
// the span is empty.
func ParseCursorQuery(reply string) (string, bool) {
	start := strings.Index(reply, queryOpenTag)
	if start < 0 {
		return "", false
	}
	rest := reply[start+len(queryOpenTag):]
	end := strings.Index(rest, queryCloseTag)
	if end < 0 {
		return "", false
	}
	task := strings.TrimSpace(rest[:end])
	if task == "" {
		return "", false
	}
	return task, true
}
