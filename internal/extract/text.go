package extract

import (
	"bytes"
	"context"
	"os"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

func extractText(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return decodeUTF8(data), nil
}

// extractMarkdown strips YAML front matter and prepends its title, if any.
func extractMarkdown(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	fm, body := splitFrontmatter(data)
	title, _ := fm["title"].(string)
	if title = strings.TrimSpace(title); title != "" {
		return title + "\n\n" + body, nil
	}
	return body, nil
}

// splitFrontmatter separates YAML front matter (between leading --- delimiters)
// from the body. Missing or invalid front matter leaves the content untouched.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, decodeUTF8(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, decodeUTF8(data)
	}

	var fm map[string]any
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return nil, decodeUTF8(data)
	}
	body := strings.TrimLeft(decodeUTF8(rest[idx+1+len(delim):]), "\n\r")
	return fm, body
}

// decodeUTF8 replaces invalid byte sequences so downstream tokenizers see valid text.
func decodeUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "�")
}
