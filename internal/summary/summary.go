// Package summary produces short extractive summaries for graph nodes.
package summary

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// Empty is returned for blank input.
	Empty = "No readable content found."

	shortTextRunes = 150
	fallbackRunes  = 200
	sentenceCount  = 2

	// MaxRunes bounds the summary stored in the graph artifact.
	MaxRunes = 400
	ellipsis = "..."
)

// Summarize returns text verbatim when short, otherwise the highest-scoring
// sentences in document order.
func Summarize(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return Empty
	}
	if utf8.RuneCountInString(text) < shortTextRunes {
		return text
	}

	sentences := splitSentences(text)
	if len(sentences) <= sentenceCount {
		if s := strings.Join(sentences, " "); s != "" && s != text {
			return s
		}
		return truncate(text, fallbackRunes)
	}

	freq := make(map[string]int)
	for _, s := range sentences {
		for _, w := range words(s) {
			freq[w]++
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, 0, len(sentences))
	for i, s := range sentences {
		ws := words(s)
		if len(ws) == 0 {
			continue
		}
		total := 0
		for _, w := range ws {
			total += freq[w]
		}
		ranked = append(ranked, scored{idx: i, score: float64(total) / float64(len(ws))})
	}
	if len(ranked) == 0 {
		return truncate(text, fallbackRunes)
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > sentenceCount {
		ranked = ranked[:sentenceCount]
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].idx < ranked[j].idx })

	parts := make([]string, len(ranked))
	for i, r := range ranked {
		parts[i] = sentences[r.idx]
	}
	return strings.Join(parts, " ")
}

// ForGraph collapses line breaks and bounds the summary to MaxRunes.
func ForGraph(summary string) string {
	s := strings.Join(strings.FieldsFunc(summary, func(r rune) bool { return r == '\n' || r == '\r' }), " ")
	if utf8.RuneCountInString(s) <= MaxRunes {
		return s
	}
	r := []rune(s)
	return string(r[:MaxRunes-len(ellipsis)]) + ellipsis
}

func truncate(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + ellipsis
}

// splitSentences breaks on ., ! or ? followed by whitespace, and on blank lines.
func splitSentences(text string) []string {
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if s := strings.Join(strings.Fields(cur.String()), " "); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}
	runes := []rune(text)
	for i, r := range runes {
		cur.WriteRune(r)
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}
		switch {
		case (r == '.' || r == '!' || r == '?') && (next == 0 || unicode.IsSpace(next)):
			flush()
		case r == '\n' && next == '\n':
			flush()
		}
	}
	flush()
	return out
}

func words(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 2 {
			out = append(out, f)
		}
	}
	return out
}
