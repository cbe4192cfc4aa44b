// Package organize names clusters and moves files into their cluster folders.
package organize

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/starford/sefs/internal/cluster"
	"github.com/starford/sefs/internal/models"
)

// Miscellaneous names a cluster whose text has no qualifying tokens.
const Miscellaneous = "MISCELLANEOUS"

// minNameTokenRunes is exclusive: tokens must be longer than this.
const minNameTokenRunes = 4

var stopWords = map[string]struct{}{
	"about": {}, "their": {}, "there": {}, "these": {}, "would": {},
	"could": {}, "should": {}, "extraction": {}, "content": {},
}

// NameCluster derives a folder name from the two most frequent qualifying
// tokens of texts. Ties keep first-seen order.
func NameCluster(texts []string) string {
	if len(texts) == 0 {
		return models.Unassigned
	}

	counts := make(map[string]int)
	var order []string
	for _, tok := range strings.Fields(strings.ToLower(strings.Join(texts, " "))) {
		if !qualifies(tok) {
			continue
		}
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}
	if len(order) == 0 {
		return Miscellaneous
	}

	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > 2 {
		order = order[:2]
	}
	return strings.ToUpper(strings.Join(order, "_"))
}

func qualifies(tok string) bool {
	if utf8.RuneCountInString(tok) <= minNameTokenRunes {
		return false
	}
	if _, stop := stopWords[tok]; stop {
		return false
	}
	for _, r := range tok {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// NameClusters maps every label to a folder name. Noise maps to Unassigned.
// Labels are named in ascending order; a name already taken by a lower label
// (case-insensitively) gets the label appended.
func NameClusters(labels []int, texts []string) map[int]string {
	members := make(map[int][]string)
	for i, l := range labels {
		members[l] = append(members[l], texts[i])
	}
	ids := make([]int, 0, len(members))
	for l := range members {
		ids = append(ids, l)
	}
	sort.Ints(ids)

	names := make(map[int]string, len(ids))
	taken := make(map[string]struct{})
	for _, l := range ids {
		name := models.Unassigned
		if l != cluster.Noise {
			name = NameCluster(members[l])
		}
		if _, dup := taken[strings.ToLower(name)]; dup {
			name = fmt.Sprintf("%s_%d", name, l)
		}
		taken[strings.ToLower(name)] = struct{}{}
		names[l] = name
	}
	return names
}
