// Package htmlconv converts HTML into content for Discord messages.
package htmlconv

import (
	"fmt"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

var converter = md.NewConverter("", true, nil)

func init() {
	removeIMGTags := md.Rule{
		Filter: []string{"img"},
		Replacement: func(_ string, _ *goquery.Selection, _ *md.Options) *string {
			return md.String("")
		},
	}
	sanitizeInvalidLinks := md.Rule{
		Filter: []string{"a"},
		Replacement: func(content string, selec *goquery.Selection, options *md.Options) *string {
			_, err := url.ParseRequestURI(content)
			if err == nil {
				href := selec.AttrOr("href", "#")
				return md.String("[Link](" + href + ")")
			}
			return nil
		},
	}
	converter.AddRules(removeIMGTags, sanitizeInvalidLinks)
}

// ToMarkdown converts HTML to markdown as supported by Discord.
// Images are removed, since Discord does not show them inline.
func ToMarkdown(html string) (string, error) {
	s, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert HTML to markdown: %w", err)
	}
	return s, nil
}

// ImageURLs returns the sources of all images in HTML in order of appearance.
// Duplicates and sources which are not absolute HTTP URLs are skipped.
func ImageURLs(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	urls := make([]string, 0)
	seen := make(map[string]bool)
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if src == "" || seen[src] {
			return
		}
		u, err := url.Parse(src)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return
		}
		seen[src] = true
		urls = append(urls, src)
	})
	return urls, nil
}
