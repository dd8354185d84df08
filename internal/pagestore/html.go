package pagestore

import (
	"strings"

	"golang.org/x/net/html"
)

var skippedTags = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
}

// StripHTML converts editor HTML to clean plain text: script/style/noscript
// content is dropped, block text lands on its own line, blank lines are
// collapsed. Non-HTML input passes through trimmed.
func StripHTML(content string) string {
	if content == "" {
		return ""
	}
	tokenizer := html.NewTokenizer(strings.NewReader(content))
	var sb strings.Builder
	skipDepth := 0
	for {
		tokenType := tokenizer.Next()
		switch tokenType {
		case html.ErrorToken:
			return collapseLines(sb.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if _, ok := skippedTags[string(name)]; ok {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if _, ok := skippedTags[string(name)]; ok && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := strings.TrimSpace(string(tokenizer.Text()))
			if text != "" {
				sb.WriteString(text)
				sb.WriteByte('\n')
			}
		}
	}
}

func collapseLines(text string) string {
	lines := strings.Split(text, "\n")
	var kept []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
