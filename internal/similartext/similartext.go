// Package similartext builds "did you mean" suggestions for unresolved
// identifiers, callable names, scale/data names, and dialect function
// names, using edit-distance nearest-neighbour lookup.
package similartext

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vegafusion-go/vf/internal/textdistance"
)

// maxDistance bounds how different a candidate may be before it is no
// longer considered a plausible typo of target.
const maxDistance = 3

// Find returns a ", maybe you mean X or Y?" suffix for the names closest
// to target, or "" if target is empty or nothing is close enough.
func Find(names []string, target string) string {
	if target == "" || len(names) == 0 {
		return ""
	}

	best := maxDistance + 1
	var matches []string
	for _, n := range names {
		d := textdistance.Levenshtein(n, target)
		switch {
		case d > maxDistance:
			continue
		case d < best:
			best = d
			matches = []string{n}
		case d == best:
			matches = append(matches, n)
		}
	}

	if len(matches) == 0 {
		return ""
	}
	return fmt.Sprintf(", maybe you mean %s?", strings.Join(matches, " or "))
}

// FindFromMap is Find over a map's keys.
func FindFromMap[V any](names map[string]V, target string) string {
	keys := make([]string, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return Find(keys, target)
}
