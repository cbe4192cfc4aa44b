package summary

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSummarizeBlank(t *testing.T) {
	if got := Summarize("  \n "); got != Empty {
		t.Errorf("got %q", got)
	}
}

func TestSummarizeShortVerbatim(t *testing.T) {
	in := "Rocket launch orbital trajectory"
	if got := Summarize(in); got != in {
		t.Errorf("got %q", got)
	}
}

func TestSummarizePicksTwoSentencesInOrder(t *testing.T) {
	in := "The rocket launch was delayed. Weather was cloudy in the morning. " +
		"The rocket launch window reopened at noon and the rocket launch succeeded. " +
		"Spectators brought sandwiches. The crowd went home afterwards with great memories of the day."
	got := Summarize(in)
	first := strings.Index(got, "The rocket launch was delayed.")
	second := strings.Index(got, "The rocket launch window reopened")
	if first < 0 || second < 0 || first > second {
		t.Errorf("unexpected summary %q", got)
	}
	if strings.Contains(got, "sandwiches") {
		t.Errorf("low scoring sentence kept: %q", got)
	}
}

func TestSummarizeFallbackTruncates(t *testing.T) {
	in := strings.Repeat("x", 300)
	got := Summarize(in)
	if utf8.RuneCountInString(got) != 203 || !strings.HasSuffix(got, "...") {
		t.Errorf("got %d runes: %q", utf8.RuneCountInString(got), got)
	}
}

func TestForGraph(t *testing.T) {
	if got := ForGraph("line one\nline two\r\nthree"); got != "line one line two three" {
		t.Errorf("got %q", got)
	}
	long := strings.Repeat("é", 500)
	got := ForGraph(long)
	if utf8.RuneCountInString(got) != MaxRunes || !strings.HasSuffix(got, "...") {
		t.Errorf("got %d runes", utf8.RuneCountInString(got))
	}
	exact := strings.Repeat("a", MaxRunes)
	if ForGraph(exact) != exact {
		t.Error("text at the limit must not be truncated")
	}
}
