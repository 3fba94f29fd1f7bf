package normalize

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/mikey/llm-phishing-detector/internal/core"
)

// FlattenHTML strips markup to readable text and collects every anchor
// together with its visible text, so link text and destination can be
// compared later.
func FlattenHTML(htmlBody string) (string, []core.URLRef) {
	doc, err := html.Parse(strings.NewReader(htmlBody))
	if err != nil {
		return htmlBody, nil
	}

	var text strings.Builder
	var anchors []core.URLRef
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "head":
				return
			case "a":
				href := attrValue(n, "href")
				display := strings.TrimSpace(nodeText(n))
				if href != "" {
					anchors = append(anchors, core.URLRef{
						Target:      href,
						DisplayText: display,
						Domain:      DomainOf(href),
					})
				}
			case "br", "p", "div", "tr", "li":
				text.WriteString("\n")
			}
		case html.TextNode:
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return collapseWhitespace(text.String()), anchors
}

func attrValue(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
