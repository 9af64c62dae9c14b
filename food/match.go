package food

import (
	"errors"
	"math/rand"
	"regexp"
	"strings"
	"sync"
)

// ErrNotFound is returned when no catalog entry matches a query.
var ErrNotFound = errors.New("food not found")

var annotationRe = regexp.MustCompile(`\(.+\)`)

// Canonicalize converts a food name to its standardized form: lowercase,
// parenthesized annotations such as "(2 slices)" removed, surrounding
// whitespace trimmed.
func Canonicalize(name string) string {
	name = strings.ToLower(name)
	name = annotationRe.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// Matcher selects catalog entries for free-form queries. Randomness is
// injectable so the "random" shortcut and tie-breaks are reproducible in
// tests; construct with NewMatcher or NewSeededMatcher.
type Matcher struct {
	catalog *Catalog
	intn    func(n int) int
}

// NewMatcher returns a Matcher backed by the shared math/rand source, which
// is safe for concurrent use.
func NewMatcher(catalog *Catalog) *Matcher {
	return &Matcher{catalog: catalog, intn: rand.Intn}
}

// NewSeededMatcher returns a Matcher with its own deterministic source. The
// source is serialized with a mutex so the matcher stays safe for concurrent
// use.
func NewSeededMatcher(catalog *Catalog, seed int64) *Matcher {
	rng := rand.New(rand.NewSource(seed))
	var mu sync.Mutex
	return &Matcher{catalog: catalog, intn: func(n int) int {
		mu.Lock()
		defer mu.Unlock()
		return rng.Intn(n)
	}}
}

// CatalogLen returns the number of entries the matcher searches.
func (m *Matcher) CatalogLen() int { return m.catalog.Len() }

// Match finds the catalog entry best matching query. The query does not have
// to match a name exactly: both sides are canonicalized and split into word
// sets, and the entry sharing the most words with the query wins. Ties at the
// best score are broken uniformly at random. The literal query "random" picks
// any entry uniformly. Returns ErrNotFound when the query is empty or shares
// no words with any entry.
func (m *Matcher) Match(query string) (Entry, error) {
	canon := Canonicalize(query)
	if canon == "" {
		return Entry{}, ErrNotFound
	}
	if canon == "random" {
		if m.catalog.Len() == 0 {
			return Entry{}, ErrNotFound
		}
		return m.catalog.entries[m.intn(m.catalog.Len())], nil
	}

	queryWords := wordSet(canon)
	var best []Entry
	bestScore := 0
	for _, e := range m.catalog.entries {
		score := overlap(wordSet(Canonicalize(e.Name)), queryWords)
		switch {
		case score > bestScore:
			bestScore = score
			best = best[:0]
			best = append(best, e)
		case score == bestScore && score > 0:
			best = append(best, e)
		}
	}
	if len(best) == 0 {
		return Entry{}, ErrNotFound
	}
	return best[m.intn(len(best))], nil
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(s)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func overlap(a, b map[string]struct{}) int {
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}
