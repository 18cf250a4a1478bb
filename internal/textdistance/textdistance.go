// Package textdistance implements Levenshtein edit distance and the
// nearest-candidate lookup used to build "did you mean" suggestions.
package textdistance

// Levenshtein returns the edit distance between a and b.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)

	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min3(del, ins, sub)
		}
		prev, curr = curr, prev
	}

	return prev[lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// FindSimilarName returns the name in names closest to target by edit
// distance. Ties break by first occurrence. Returns "" if names is empty.
func FindSimilarName(names []string, target string) string {
	if len(names) == 0 {
		return ""
	}

	best := names[0]
	bestDist := Levenshtein(names[0], target)
	for _, n := range names[1:] {
		if d := Levenshtein(n, target); d < bestDist {
			best, bestDist = n, d
		}
	}
	return best
}

// FindSimilarNameFromMap is FindSimilarName over a map's keys.
func FindSimilarNameFromMap[V any](names map[string]V, target string) string {
	if len(names) == 0 {
		return ""
	}
	keys := make([]string, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}
	return FindSimilarName(keys, target)
}
