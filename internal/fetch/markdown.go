package fetch

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// skipElements are HTML elements whose content is never useful in an
// extracted page: scripts, styling, and site chrome.
var skipElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Iframe:   true,
	atom.Svg:      true,
	atom.Head:     true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Header:   true,
}

// extractMarkdown parses HTML and renders the page as markdown-flavored
// text: headings, links, lists, and code blocks survive, chrome is
// dropped. Returns the page title and the rendered body.
func extractMarkdown(rawHTML string) (title, markdown string) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", stripTags(rawHTML)
	}

	title = findTitle(doc)

	var b strings.Builder
	render(doc, &b)
	return title, cleanWhitespace(b.String())
}

// render walks the node tree, writing markdown-flavored output.
func render(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			b.WriteString(text)
			b.WriteString(" ")
		}
		return
	}

	if n.Type == html.ElementNode {
		if skipElements[n.DataAtom] {
			return
		}
		if level := headingLevel(n.DataAtom); level > 0 {
			fmt.Fprintf(b, "\n\n%s %s\n\n", strings.Repeat("#", level), inlineText(n))
			return
		}
		switch n.DataAtom {
		case atom.A:
			href := attrVal(n, "href")
			text := inlineText(n)
			if href != "" && !strings.HasPrefix(href, "#") && text != "" {
				fmt.Fprintf(b, "[%s](%s) ", text, href)
				return
			}
		case atom.Pre:
			b.WriteString("\n\n```\n")
			b.WriteString(strings.Trim(getTextContent(n), "\n"))
			b.WriteString("\n```\n\n")
			return
		case atom.Li:
			b.WriteString("\n- ")
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				render(c, b)
			}
			b.WriteString("\n")
			return
		case atom.Br:
			b.WriteString("\n")
		default:
			if isBlockElement(n.DataAtom) && b.Len() > 0 {
				b.WriteString("\n\n")
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		render(c, b)
	}
}

// inlineText collapses an element's text content to a single line.
func inlineText(n *html.Node) string {
	return strings.Join(strings.Fields(getTextContent(n)), " ")
}

func headingLevel(a atom.Atom) int {
	switch a {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// findTitle locates the <title> element text.
func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		return strings.TrimSpace(getTextContent(n))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := findTitle(c); title != "" {
			return title
		}
	}
	return ""
}

// getTextContent returns the concatenated text of a node's subtree.
func getTextContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(getTextContent(c))
	}
	return b.String()
}

func isBlockElement(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Aside,
		atom.Blockquote, atom.Ul, atom.Ol, atom.Table, atom.Tr,
		atom.Main, atom.Figure, atom.Figcaption, atom.Hr:
		return true
	}
	return false
}

// cleanWhitespace normalizes spacing outside code fences: runs of
// spaces collapse, blank lines never stack. Fenced blocks pass through
// verbatim so extracted code keeps its indentation.
func cleanWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	prevEmpty := false
	inFence := false
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			out = append(out, line)
			prevEmpty = false
			continue
		}
		if inFence {
			out = append(out, line)
			continue
		}
		cleaned := strings.Join(strings.Fields(line), " ")
		if cleaned == "" {
			if prevEmpty {
				continue
			}
			prevEmpty = true
			out = append(out, "")
			continue
		}
		prevEmpty = false
		out = append(out, cleaned)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// stripTags is a fallback for unparseable HTML: drop tags, keep text.
func stripTags(rawHTML string) string {
	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(rawHTML))
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			text := strings.TrimSpace(string(tokenizer.Text()))
			if text != "" {
				b.WriteString(text)
				b.WriteString("\n")
			}
		}
	}
	return cleanWhitespace(b.String())
}
