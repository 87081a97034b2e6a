// internal/sanitize/sanitize.go
// Package sanitize turns pasted debate text into plain text.
package sanitize

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	htmlTag    = regexp.MustCompile(`(?i)<(html|body|p|div|br|span|a|b|i|em|strong|ul|ol|li|h[1-6]|blockquote|script|style|table|tr|td)(\s[^>]*)?/?>`)
	blankLines = regexp.MustCompile(`\n{3,}`)
	trailingWS = regexp.MustCompile(`[ \t]+\n`)
)

// block elements end a line in the extracted text.
var block = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true,
}

// LooksLikeHTML reports whether s contains markup from a web page paste.
func LooksLikeHTML(s string) bool {
	return htmlTag.MatchString(s)
}

// PlainText trims input and, when it contains HTML, replaces it with the
// text of its nodes. Script and style content is dropped. Text that is not
// HTML, including text that merely contains angle brackets, is only trimmed.
func PlainText(input string) string {
	s := strings.TrimSpace(input)
	if !LooksLikeHTML(s) {
		return s
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && block[n.DataAtom] {
			buf.WriteString("\n")
		}
	}
	walk(doc)

	out := trailingWS.ReplaceAllString(buf.String(), "\n")
	out = blankLines.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
