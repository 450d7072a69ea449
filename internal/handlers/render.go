package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// answerMarkdown renders answer text, which the knowledge agent emits as
// markdown, into HTML.
var answerMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.Linkify),
)

const answerPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Answer</title></head>
<body>
%s
</body>
</html>
`

// writeAnswerHTML renders a plain-text result as an HTML page. Rendering
// failures fall back to plain text rather than erroring the request.
func writeAnswerHTML(w http.ResponseWriter, answer string) {
	var buf bytes.Buffer
	if err := answerMarkdown.Convert([]byte(answer), &buf); err != nil {
		writeText(w, http.StatusOK, answer)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, answerPage, buf.String())
}
