package summary

import (
	"regexp"
	"strings"
)

const maxFoodLen = 60

var (
	// Introductory phrases like "You could receive items such as ...".
	introPattern  = regexp.MustCompile(`(?i)(?:such as|e\.g\.,?|like|include)\s+(.*)`)
	eitherPattern = regexp.MustCompile(`(?is)either:\s*(.*)`)
	// Comma, the word "or", slashes, and the full-width list separator.
	fragmentSplit = regexp.MustCompile(`,|\bor\b|/|、`)
	leadingAnd    = regexp.MustCompile(`(?i)^and\s+`)
)

// ExtractFoods pulls candidate food names out of a listing's free-text
// description. Heuristic, not a grammar: it keys off an introductory
// phrase, splits the remainder into fragments, and normalizes each one.
// When nothing survives but a description exists, the raw description is
// returned as the sole entry.
func ExtractFoods(desc string) []string {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return nil
	}

	candidates := desc
	if m := introPattern.FindStringSubmatch(desc); m != nil {
		if strings.HasSuffix(strings.TrimSpace(m[1]), ":") {
			// "... one of the following, either: a, b, c"
			if em := eitherPattern.FindStringSubmatch(desc); em != nil {
				candidates = strings.TrimSpace(em[1])
			}
		} else {
			candidates = m[1]
		}
	}

	var foods []string
	seen := make(map[string]struct{})
	for _, part := range fragmentSplit.Split(candidates, -1) {
		part = strings.ToLower(strings.Trim(part, " .!?:;"))
		if part == "" {
			continue
		}
		part = leadingAnd.ReplaceAllString(part, "")
		if strings.HasPrefix(part, "please note") {
			continue
		}
		if part == "" || len(part) > maxFoodLen {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		foods = append(foods, part)
	}

	if len(foods) == 0 {
		return []string{desc}
	}
	return foods
}
