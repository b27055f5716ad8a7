package searchindex

import "sort"

// Options configures Search's ranking, defaulting to spec.md §4.5's values.
type Options struct {
	MaxTypeMatches         int
	MaxPathsPerType        int
	ParentMatchBoostFactor float64
	ShortPathBoostFactor   float64
}

// DefaultOptions returns spec.md §4.5's documented defaults.
func DefaultOptions() Options {
	return Options{
		MaxTypeMatches:         10,
		MaxPathsPerType:        3,
		ParentMatchBoostFactor: 0.2,
		ShortPathBoostFactor:   0.5,
	}
}

// Path is a root-rooted path expressed leaf-first (the matched type through
// its referencers out to a root), with its final boosted score.
type Path struct {
	Types []string
	Score float64
}

type match struct {
	name  string
	score float64
}

// Search scores every indexed type against terms (boolean-should, any token
// match counts), then walks the top MaxTypeMatches types back to a root and
// applies the parent-match and short-path boosts.
func (idx *Index) Search(terms []string, opts Options) []Path {
	matches := idx.scoreDocs(terms)
	if len(matches) == 0 {
		return nil
	}

	scoreByName := make(map[string]float64, len(matches))
	hit := make(map[string]bool, len(matches))
	for _, m := range matches {
		scoreByName[m.name] = m.score
		hit[m.name] = true
	}

	maxTypeMatches := opts.MaxTypeMatches
	if maxTypeMatches <= 0 {
		maxTypeMatches = DefaultOptions().MaxTypeMatches
	}
	if maxTypeMatches > len(matches) {
		maxTypeMatches = len(matches)
	}
	maxPathsPerType := opts.MaxPathsPerType
	if maxPathsPerType <= 0 {
		maxPathsPerType = DefaultOptions().MaxPathsPerType
	}

	var paths []Path
	for _, m := range matches[:maxTypeMatches] {
		for _, p := range idx.walkToRoot(m.name, maxPathsPerType) {
			base := m.score
			for _, intermediate := range p[1:] {
				if hit[intermediate] {
					base += opts.ParentMatchBoostFactor * scoreByName[intermediate]
				}
			}
			paths = append(paths, Path{Types: p, Score: base})
		}
	}
	if len(paths) == 0 {
		return nil
	}

	applyShortPathBoost(paths, opts.ShortPathBoostFactor)

	sort.SliceStable(paths, func(i, j int) bool { return paths[i].Score > paths[j].Score })
	return paths
}

// applyShortPathBoost normalises each path's score by its length relative to
// the shortest/longest path observed in this result set. If every path is
// the same length (or the factor is zero) this is a no-op — preserving the
// spec's explicit "no boost when lengths are equal" early return rather than
// dividing by zero.
func applyShortPathBoost(paths []Path, factor float64) {
	if factor == 0 {
		return
	}
	minLen, maxLen := len(paths[0].Types), len(paths[0].Types)
	for _, p := range paths[1:] {
		if l := len(p.Types); l < minLen {
			minLen = l
		} else if l > maxLen {
			maxLen = l
		}
	}
	if minLen == maxLen {
		return
	}
	for i := range paths {
		normalized := float64(len(paths[i].Types)-minLen) / float64(maxLen-minLen)
		paths[i].Score *= 1 + factor*(1-normalized)
	}
}

func (idx *Index) scoreDocs(terms []string) []match {
	tokens := map[string]bool{}
	for _, t := range terms {
		for _, tok := range analyze(t) {
			tokens[tok] = true
		}
	}
	if len(tokens) == 0 {
		return nil
	}

	var matches []match
	for _, name := range idx.order {
		doc := idx.docs[name]
		score := 3*countHits(doc.typeNameTokens, tokens) +
			2*countHits(doc.fieldsTokens, tokens) +
			countHits(doc.descriptionTokens, tokens)
		if score > 0 {
			matches = append(matches, match{name: name, score: score})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if len(matches) > 100 {
		matches = matches[:100]
	}
	return matches
}

func countHits(tokens []string, wanted map[string]bool) float64 {
	var n float64
	for _, t := range tokens {
		if wanted[t] {
			n++
		}
	}
	return n
}

// walkToRoot breadth-first-walks back along each type's referencers,
// returning up to maxPaths complete paths from name to a root (a type with
// no referencers). A per-path visited set rejects cycles; the first root
// reached on a given path terminates it.
func (idx *Index) walkToRoot(name string, maxPaths int) [][]string {
	type item struct {
		path    []string
		visited map[string]bool
	}

	queue := []item{{path: []string{name}, visited: map[string]bool{name: true}}}
	var results [][]string

	for len(queue) > 0 && len(results) < maxPaths {
		cur := queue[0]
		queue = queue[1:]

		last := cur.path[len(cur.path)-1]
		doc := idx.docs[last]
		if doc == nil || len(doc.referencers) == 0 {
			results = append(results, cur.path)
			continue
		}

		for _, ref := range doc.referencers {
			if cur.visited[ref] {
				continue
			}
			visited := make(map[string]bool, len(cur.visited)+1)
			for k := range cur.visited {
				visited[k] = true
			}
			visited[ref] = true

			path := make([]string, len(cur.path)+1)
			copy(path, cur.path)
			path[len(cur.path)] = ref

			queue = append(queue, item{path: path, visited: visited})
		}
	}

	return results
}
