package llm

import "strings"

// cleanMarkdownWrapper strips a ```json ... ``` fence some models wrap around
// JSON replies even when asked not to.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	content = strings.TrimPrefix(content, "```")
	if nl := strings.IndexByte(content, '\n'); nl >= 0 {
		// Drop the info string (json, JSON, js...) on the opening fence line.
		if !strings.Contains(content[:nl], "{") {
			content = content[nl+1:]
		}
	}
	content = strings.TrimSpace(content)
	content = strings.TrimSuffix(content, "```")

	return strings.TrimSpace(content)
}
