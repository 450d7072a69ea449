package gateway

import (
	"fmt"
	"path"
	"strings"
)

// Label picks the most helpful human-readable citation label for a chunk, in
// priority order: source file, URL tail, a leading "[name]" embedded in the
// content, then a generic docN fallback.
func Label(c Chunk) string {
	if c.SourceFile != "" {
		return c.SourceFile
	}
	if c.URL != "" {
		if tail := path.Base(strings.TrimRight(c.URL, "/")); tail != "" && tail != "." && tail != "/" {
			return tail
		}
		return c.URL
	}
	if strings.HasPrefix(c.Content, "[") {
		head := c.Content
		if len(head) > 150 {
			head = head[:150]
		}
		if end := strings.Index(head, "]"); end > 1 {
			return head[1:end]
		}
	}
	return fmt.Sprintf("doc%v", c.RefID)
}

// sourcesSection renders the trailing "Sources:" block appended to an answer
// when sources are included. Labels are deduplicated, order preserved.
func sourcesSection(chunks []Chunk) string {
	if len(chunks) == 0 {
		return ""
	}

	var b strings.Builder
	seen := make(map[string]bool)
	for _, c := range chunks {
		label := Label(c)
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		if c.URL != "" && (strings.HasPrefix(c.URL, "http://") || strings.HasPrefix(c.URL, "https://")) {
			fmt.Fprintf(&b, "• %s – %s\n", label, c.URL)
		} else {
			fmt.Fprintf(&b, "• %s\n", label)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "\nSources:\n" + b.String()
}
