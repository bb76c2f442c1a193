package model

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kiwix/kiwix-reader/internal/application/port"
	"github.com/kiwix/kiwix-reader/internal/cli/styles"
)

// blockSelector lists the elements rendered as paragraphs.
const blockSelector = "h1, h2, h3, h4, h5, h6, p, li, pre, blockquote, dt, dd, figcaption"

// Page is an archive entry rendered as terminal text.
type Page struct {
	URL   string
	Title string
	Text  string
	// Links holds resolved link targets; link n is shown as [n] in Text.
	Links []string
}

// Link returns the target of the 1-based link number n.
func (p Page) Link(n int) (string, bool) {
	if n < 1 || n > len(p.Links) {
		return "", false
	}
	return p.Links[n-1], true
}

// RenderPage converts fetched content into readable text.
func RenderPage(c *port.Content) Page {
	page := Page{URL: c.URL}
	switch {
	case strings.HasPrefix(c.MimeType, "text/html"), strings.HasPrefix(c.MimeType, "application/xhtml"):
		renderHTML(&page, c.Data)
	case strings.HasPrefix(c.MimeType, "text/"):
		page.Text = string(c.Data)
	default:
		page.Text = fmt.Sprintf("[%s, %s]", c.MimeType, styles.FormatBytes(int64(len(c.Data))))
	}
	return page
}

func renderHTML(page *Page, data []byte) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		page.Text = string(data)
		return
	}
	page.Title = strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("script, style, noscript, head").Remove()

	base, _ := url.Parse(page.URL)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		target, ok := resolveLink(base, href)
		if !ok {
			return
		}
		page.Links = append(page.Links, target)
		a.AppendHtml(fmt.Sprintf("[%d]", len(page.Links)))
	})

	var paragraphs []string
	doc.Find(blockSelector).
		FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.ParentsFiltered(blockSelector).Length() == 0
		}).
		Each(func(_ int, s *goquery.Selection) {
			if text := blockText(s); text != "" {
				paragraphs = append(paragraphs, text)
			}
		})
	if len(paragraphs) == 0 {
		paragraphs = append(paragraphs, collapse(doc.Find("body").Text()))
	}
	page.Text = strings.Join(paragraphs, "\n\n")
}

func blockText(s *goquery.Selection) string {
	name := goquery.NodeName(s)
	switch name {
	case "pre":
		return strings.TrimRight(s.Text(), "\n")
	case "h1", "h2", "h3", "h4", "h5", "h6":
		text := collapse(s.Text())
		if text == "" {
			return ""
		}
		return strings.Repeat("#", int(name[1]-'0')) + " " + text
	case "li":
		if text := collapse(s.Text()); text != "" {
			return "• " + text
		}
		return ""
	case "dd", "blockquote":
		if text := collapse(s.Text()); text != "" {
			return "  " + text
		}
		return ""
	}
	return collapse(s.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func resolveLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	switch ref.Scheme {
	case "", "http", "https":
	default:
		return "", false
	}
	if base == nil {
		return ref.String(), true
	}
	return base.ResolveReference(ref).String(), true
}
