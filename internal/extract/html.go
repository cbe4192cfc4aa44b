package extract

import (
	"context"
	"os"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

var excessiveLinesRe = regexp.MustCompile(`\n{3,}`)

type htmlExtractor struct {
	conv *md.Converter
}

func newHTMLExtractor() *htmlExtractor {
	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())
	conv.Remove("script", "style", "noscript")
	return &htmlExtractor{conv: conv}
}

func (h *htmlExtractor) Extract(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	content := decodeUTF8(data)
	markdown, err := h.conv.ConvertString(content)
	if err != nil {
		return "", err
	}
	markdown = strings.TrimSpace(excessiveLinesRe.ReplaceAllString(markdown, "\n\n"))

	if title := htmlTitle(content); title != "" && !strings.Contains(markdown, title) {
		return title + "\n\n" + markdown, nil
	}
	return markdown, nil
}

// htmlTitle returns the text of the first <title> element.
func htmlTitle(content string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return ""
	}
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}
