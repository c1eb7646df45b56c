// SPDX-License-Identifier: GPL-3.0-or-later
package tokenizer

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// stripHtml returns the visible text of an html document plus link targets, script and style
// contents are dropped.
func stripHtml(document string) string {
	z := html.NewTokenizer(strings.NewReader(document))
	b := &strings.Builder{}
	skip := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken, html.SelfClosingTagToken:
			t := z.Token()
			if t.DataAtom == atom.Script || t.DataAtom == atom.Style {
				if tt == html.StartTagToken {
					skip++
				}
				continue
			}
			for _, a := range t.Attr {
				if a.Key == "href" || a.Key == "src" || a.Key == "alt" || a.Key == "title" {
					b.WriteString(" ")
					b.WriteString(a.Val)
					b.WriteString(" ")
				}
			}
		case html.EndTagToken:
			t := z.Token()
			if (t.DataAtom == atom.Script || t.DataAtom == atom.Style) && skip > 0 {
				skip--
			}
			b.WriteString(" ")
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}
