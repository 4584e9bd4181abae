package rules

import (
	"fmt"
	"regexp"
	"strings"
)

// Match evaluates input against a list of candidate match strings under the
// given search options. It returns the matched substrings (index 0 is the
// whole match; for the regex method, later indexes are capture groups), or
// nil when the predicate is not satisfied. A nil result uniformly means "not
// satisfied" for both negated and non-negated configurations.
//
// An empty candidate list trivially passes when negated (there is nothing to
// avoid) and fails otherwise. When negation flips a miss into a pass, the
// returned value is the empty-match sentinel [""] so placeholder expansion
// still has something to substitute.
//
// An unrecognized search method is a contract violation: schema validation
// makes it unreachable for parsed rules, so it is reported as an error
// rather than a silent miss.
func Match(input string, candidates []string, options *SearchOptions) ([]string, error) {
	var opts SearchOptions
	if options != nil {
		opts = *options
	}

	if len(candidates) == 0 {
		if opts.Negate {
			return []string{""}, nil
		}
		return nil, nil
	}

	result, err := runSearch(input, candidates, opts)
	if err != nil {
		return nil, err
	}

	if opts.Negate {
		if result != nil {
			return nil, nil
		}
		return []string{""}, nil
	}
	return result, nil
}

func runSearch(input string, candidates []string, opts SearchOptions) ([]string, error) {
	if opts.Method() == MethodRegex {
		for _, candidate := range candidates {
			expr := candidate
			if !opts.CaseSensitive {
				expr = "(?i)" + expr
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("invalid regex %q: %w", candidate, err)
			}
			if matches := re.FindStringSubmatch(input); matches != nil {
				return matches, nil
			}
		}
		return nil, nil
	}

	folded := normalizeCase(input, opts.CaseSensitive)
	for _, candidate := range candidates {
		foldedCandidate := normalizeCase(candidate, opts.CaseSensitive)

		var matched bool
		switch opts.Method() {
		case MethodIncludes:
			matched = strings.Contains(folded, foldedCandidate)
		case MethodIncludesWord:
			re, err := regexp.Compile(`\b` + regexp.QuoteMeta(foldedCandidate) + `\b`)
			if err != nil {
				return nil, fmt.Errorf("word match for %q: %w", candidate, err)
			}
			matched = re.MatchString(folded)
		case MethodStartsWith:
			matched = strings.HasPrefix(folded, foldedCandidate)
		case MethodEndsWith:
			matched = strings.HasSuffix(folded, foldedCandidate)
		case MethodFullExact:
			matched = folded == foldedCandidate
		default:
			return nil, fmt.Errorf("unexpected search method %q", opts.SearchMethod)
		}

		if matched {
			// Non-regex methods report the candidate itself as the
			// whole-match capture.
			return []string{candidate}, nil
		}
	}
	return nil, nil
}

func normalizeCase(input string, caseSensitive bool) string {
	if caseSensitive {
		return input
	}
	return strings.ToLower(input)
}
