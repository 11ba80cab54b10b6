// Package keyword detects mode trigger words in user prompts. Triggers are
// glob patterns matched case-insensitively: single-word patterns match
// individual prompt tokens, patterns containing whitespace match against
// the whole prompt.
package keyword

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Rule maps trigger patterns to the mode they activate.
type Rule struct {
	Mode     string
	Patterns []string
}

// Match is one detected trigger.
type Match struct {
	Mode    string
	Trigger string
}

type compiledPattern struct {
	mode       string
	raw        string
	wholeMatch bool
	g          glob.Glob
}

// Detector matches prompts against a fixed rule set. It is immutable after
// construction and safe for concurrent use.
type Detector struct {
	patterns []compiledPattern
}

// NewDetector compiles the rule set. An invalid glob pattern fails
// construction rather than being silently skipped.
func NewDetector(rules []Rule) (*Detector, error) {
	d := &Detector{}
	for _, rule := range rules {
		for _, raw := range rule.Patterns {
			pattern := strings.ToLower(strings.TrimSpace(raw))
			if pattern == "" {
				continue
			}
			g, err := glob.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("keyword: compile trigger %q for mode %s: %w", raw, rule.Mode, err)
			}
			d.patterns = append(d.patterns, compiledPattern{
				mode:       rule.Mode,
				raw:        pattern,
				wholeMatch: strings.ContainsAny(pattern, " \t"),
				g:          g,
			})
		}
	}
	return d, nil
}

// Detect returns the matched modes, at most one match per mode, in rule
// order. Token matching strips surrounding punctuation so triggers match at
// sentence boundaries.
func (d *Detector) Detect(prompt string) []Match {
	lowered := strings.ToLower(prompt)
	tokens := strings.Fields(lowered)
	for i, tok := range tokens {
		tokens[i] = strings.Trim(tok, ".,;:!?\"'()[]{}")
	}

	seen := make(map[string]bool)
	var matches []Match
	for _, p := range d.patterns {
		if seen[p.mode] {
			continue
		}
		if p.wholeMatch {
			if p.g.Match(lowered) {
				seen[p.mode] = true
				matches = append(matches, Match{Mode: p.mode, Trigger: p.raw})
			}
			continue
		}
		for _, tok := range tokens {
			if tok != "" && p.g.Match(tok) {
				seen[p.mode] = true
				matches = append(matches, Match{Mode: p.mode, Trigger: p.raw})
				break
			}
		}
	}
	return matches
}
