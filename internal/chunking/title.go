package chunking

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// maxTitleScan bounds how much of a document is parsed when looking for
// a leading heading; titles further in are not worth a full-document
// Markdown parse.
const maxTitleScan = 500

// DetectTitle returns the text of the document's first Markdown heading
// (ATX or setext) within its leading maxTitleScan bytes, or "" if none
// is found. Used by the ingestion orchestrator when a caller omits title.
func DetectTitle(content string) string {
	if content == "" {
		return ""
	}
	head := content
	if len(head) > maxTitleScan {
		head = head[:maxTitleScan]
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	source := []byte(head)
	reader := text.NewReader(source)
	doc := md.Parser().Parse(reader)

	var title string
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || title != "" {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if hasLines, ok := ast.Node(heading).(interface{ Lines() *text.Segments }); ok {
			lines := hasLines.Lines()
			if lines.Len() > 0 {
				start := lines.At(0).Start
				end := lines.At(lines.Len() - 1).Stop
				if end <= len(source) {
					title = string(source[start:end])
				}
			}
		}
		return ast.WalkStop, nil
	})
	return title
}
