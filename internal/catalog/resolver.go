package catalog

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ffstudios/pantrybot/internal/domain"
)

// DefaultThreshold is the minimum similarity a candidate must reach to be
// accepted. 0.60 keeps common one-letter typos while rejecting unrelated
// names.
const DefaultThreshold = 0.60

// Resolver performs case- and diacritic-insensitive fuzzy matching of
// free-text names against a reference snapshot.
type Resolver struct {
	snap      *Snapshot
	threshold float64
}

// NewResolver builds a resolver over a snapshot. A non-positive threshold
// falls back to DefaultThreshold.
func NewResolver(snap *Snapshot, threshold float64) *Resolver {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Resolver{snap: snap, threshold: threshold}
}

// Snapshot exposes the underlying reference data.
func (r *Resolver) Snapshot() *Snapshot {
	return r.snap
}

// Resolve maps a free-text name to the id of the best-matching entry of the
// class. Ties are broken by exact-match precedence, then shortest edit
// distance, then lowest id. Returns domain.ErrNotFound when no candidate
// clears the similarity threshold.
func (r *Resolver) Resolve(class domain.EntityClass, name string) (int64, error) {
	target := Normalize(name)
	if target == "" {
		return 0, fmt.Errorf("%s %q: %w", class, name, domain.ErrNotFound)
	}

	type candidate struct {
		id    int64
		exact bool
		score float64
		dist  int
	}
	best := candidate{dist: 1 << 30, score: -1}

	for _, e := range r.snap.entries(class) {
		norm := Normalize(e.Name)
		if norm == "" {
			continue
		}
		if norm == target {
			if !best.exact || e.ID < best.id {
				best = candidate{id: e.ID, exact: true, score: 1, dist: 0}
			}
			continue
		}
		if best.exact {
			continue
		}
		dist := editDistance(target, norm)
		score := similarity(target, norm, dist)
		if score < r.threshold {
			continue
		}
		better := score > best.score ||
			(score == best.score && dist < best.dist) ||
			(score == best.score && dist == best.dist && (best.id == 0 || e.ID < best.id))
		if better {
			best = candidate{id: e.ID, score: score, dist: dist}
		}
	}

	if best.id == 0 {
		return 0, fmt.Errorf("%s %q: %w", class, name, domain.ErrNotFound)
	}
	return best.id, nil
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, strips diacritics, and collapses everything except
// letters, digits, and single spaces.
func Normalize(s string) string {
	folded, _, err := transform.String(foldTransformer, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := true
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// similarity is a Levenshtein ratio over normalized strings: 1 - d/maxLen.
func similarity(a, b string, dist int) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	max := la
	if lb > max {
		max = lb
	}
	if max == 0 {
		return 0
	}
	return 1 - float64(dist)/float64(max)
}

// editDistance computes the Levenshtein distance between two strings using a
// single rolling row.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr := prev[0]
		prev[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			next := min3(prev[j]+1, prev[j-1]+1, curr+cost)
			curr = prev[j]
			prev[j] = next
		}
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
