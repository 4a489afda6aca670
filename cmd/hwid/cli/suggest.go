// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"

	"github.com/spf13/pflag"
)

// maxSuggestionDistance is the largest edit distance still reported as
// a "did you mean" suggestion. Three edits cover a transposition plus
// a dropped character; anything further is more often a different
// word than a typo.
const maxSuggestionDistance = 3

// closest returns the candidate nearest to word by edit distance, or ""
// when none is within maxSuggestionDistance. Ties go to the earlier
// candidate, so callers list the most common names first.
func closest(word string, candidates []string) string {
	best := ""
	bestDistance := maxSuggestionDistance + 1
	for _, candidate := range candidates {
		if distance := levenshtein(word, candidate); distance < bestDistance {
			best, bestDistance = candidate, distance
		}
	}
	return best
}

// suggestFlag finds the first flag in args that flagSet does not define
// and returns the closest long flag, as "--name", or "".
//
// Only the first unknown flag is considered: pflag stops at it, so any
// later flag has not been checked yet and may be perfectly valid.
func suggestFlag(args []string, flagSet *pflag.FlagSet) string {
	var names []string
	flagSet.VisitAll(func(flag *pflag.Flag) {
		names = append(names, flag.Name)
	})

	for _, arg := range args {
		if arg == "--" {
			return ""
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			continue
		}
		name, _, _ := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if flagSet.Lookup(name) != nil {
			continue
		}
		if len(name) == 1 && flagSet.ShorthandLookup(name) != nil {
			continue
		}
		if suggestion := closest(name, names); suggestion != "" {
			return "--" + suggestion
		}
		return ""
	}
	return ""
}

// levenshtein returns the edit distance between a and b, counting
// insertions, deletions and substitutions of runes.
func levenshtein(a, b string) int {
	source, target := []rune(a), []rune(b)
	if len(source) > len(target) {
		source, target = target, source
	}

	// Two rows of the distance matrix, indexed by position in the
	// shorter string, swapped after each row of the longer one.
	previous := make([]int, len(source)+1)
	current := make([]int, len(source)+1)
	for i := range previous {
		previous[i] = i
	}
	for j, targetRune := range target {
		current[0] = j + 1
		for i, sourceRune := range source {
			substitution := previous[i]
			if sourceRune != targetRune {
				substitution++
			}
			current[i+1] = min(previous[i+1]+1, current[i]+1, substitution)
		}
		previous, current = current, previous
	}
	return previous[len(source)]
}
