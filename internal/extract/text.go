package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// blockElements end a line of visible text
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "blockquote": true,
	"tr": true, "section": true, "article": true,
}

// HTMLToText returns the visible text of an HTML fragment or document,
// one line per block element. Scripts, styles and navigation are skipped.
func HTMLToText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return strings.TrimSpace(htmlContent)
	}

	var lines []string
	var line strings.Builder
	flush := func() {
		text := strings.Join(strings.Fields(line.String()), " ")
		if text != "" {
			lines = append(lines, text)
		}
		line.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "nav", "footer", "form":
				return
			}
		}

		if n.Type == html.TextNode {
			line.WriteString(n.Data)
			line.WriteString(" ")
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && blockElements[n.Data] {
			flush()
		}
	}

	walk(doc)
	flush()
	return strings.Join(lines, "\n")
}
