/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package generator

import (
	"regexp"
	"strings"

	"pgedge-nlq-agent/internal/logging"
)

// Signal word lists shared by the classifiers
var (
	commonWords = []string{"the", "a", "an", "in", "on", "at", "to", "for",
		"with", "by", "about", "from"}

	questionWords = []string{"what", "who", "where", "when", "why", "how",
		"which", "show", "list", "tell", "find", "get"}

	specificIndicators = []string{"where", "when", "how many", "which", "who",
		"top", "most", "least"}

	vagueIndicators = []string{"what", "show", "list", "tell", "everything",
		"all", "data"}

	aggregationWords = []string{"count", "average", "avg", "sum", "total", "how many"}

	rankingWords = []string{"top", "most", "highest", "least", "lowest", "best", "worst"}

	filterPhrases = []string{"where", "only", "that have", "with more than",
		"with less than", "at least", "at most", "between", "before", "after", "since"}

	topNPattern      = regexp.MustCompile(`\btop\s+\d+\b`)
	betweenPattern   = regexp.MustCompile(`\bbetween\b.+\band\b`)
	shortVagueCutoff = 15
)

// Scoring weights for the nonsense classifier. The exact values are not
// derived from anything; they are tuned so that garbage input loses and
// any plausible question wins.
const (
	pointsDomainTerm    = 3
	pointsQuestionWord  = 2
	pointsPatternPhrase = 2
	pointsCommonWord    = 1
	pointsLongEnough    = 2

	penaltyRepeatedRun   = 4
	penaltyNoSpaceToken  = 4
	penaltyShortNoSignal = 3

	// Short questions must clear a higher bar than long ones
	shortScoreThreshold = 3
	longScoreThreshold  = 1
)

// Classifier inspects the shape of a question before any model call
type Classifier struct {
	domainTerms    []string
	entityKeywords map[string]string
}

// NewClassifier builds a classifier over the active schema's vocabulary
func NewClassifier(domainTerms []string, entityKeywords map[string]string) *Classifier {
	return &Classifier{
		domainTerms:    domainTerms,
		entityKeywords: entityKeywords,
	}
}

// NonsenseScore totals the positive and negative shape signals of a
// question. Higher is more plausible.
func (c *Classifier) NonsenseScore(question string) int {
	lower := strings.ToLower(strings.TrimSpace(question))
	score := 0

	if containsAny(lower, c.domainTerms) {
		score += pointsDomainTerm
	}
	if containsAny(lower, questionWords) {
		score += pointsQuestionWord
	}
	if topNPattern.MatchString(lower) || betweenPattern.MatchString(lower) ||
		containsAny(lower, aggregationWords) {
		score += pointsPatternPhrase
	}
	if containsAnyWord(lower, commonWords) {
		score += pointsCommonWord
	}
	if len(question) > 15 {
		score += pointsLongEnough
	}

	if hasRepeatedRun(lower) || hasRepeatedSubstring(lower) {
		score -= penaltyRepeatedRun
	}
	if len(lower) > 5 && !strings.Contains(lower, " ") && !containsAny(lower, c.domainTerms) {
		score -= penaltyNoSpaceToken
	}
	if len(lower) < 10 && score <= 0 {
		score -= penaltyShortNoSignal
	}

	return score
}

// IsNonsensical reports whether a question should be rejected outright.
// Questions under 15 characters must clear a stricter threshold.
func (c *Classifier) IsNonsensical(question string) bool {
	score := c.NonsenseScore(question)
	threshold := longScoreThreshold
	if len(strings.TrimSpace(question)) < 15 {
		threshold = shortScoreThreshold
	}
	if score < threshold {
		logging.Warn("Rejected nonsensical input", "question", question, "score", score)
		return true
	}
	return false
}

// IsVague reports whether a question is too unspecific to answer
// precisely. Vague questions get a relaxed prompt, not a rejection.
func (c *Classifier) IsVague(question string) bool {
	lower := strings.ToLower(question)

	if len(question) < shortVagueCutoff {
		return true
	}

	if containsAny(lower, vagueIndicators) {
		if !containsAny(lower, specificIndicators) {
			return true
		}
	}

	return false
}

// IsComplex reports whether a question spans enough entities and
// conditions that the model should decompose the query into CTEs.
func (c *Classifier) IsComplex(question string) bool {
	lower := strings.ToLower(question)

	entities := make(map[string]bool)
	for keyword, table := range c.entityKeywords {
		if strings.Contains(lower, keyword) {
			entities[table] = true
		}
	}

	filters := 0
	for _, phrase := range filterPhrases {
		if strings.Contains(lower, phrase) {
			filters++
		}
	}

	conjunctions := 0
	for _, w := range strings.Fields(lower) {
		if w == "and" || w == "or" || w == "but" {
			conjunctions++
		}
	}

	aggAndRank := containsAny(lower, aggregationWords) && containsAny(lower, rankingWords)

	score := len(entities) + filters + conjunctions
	if aggAndRank {
		score += 2
	}
	if len(question) > 80 {
		score++
	}

	return len(entities) >= 2 && score >= 4
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}

// containsAnyWord matches whole words only, so "a" does not fire on every
// question containing the letter
func containsAnyWord(s string, words []string) bool {
	fields := strings.Fields(s)
	for _, f := range fields {
		f = strings.Trim(f, ".,?!;:'\"")
		for _, w := range words {
			if f == w {
				return true
			}
		}
	}
	return false
}

// hasRepeatedRun reports whether any character repeats three or more
// times in a row ("zzz", "aaaa")
func hasRepeatedRun(s string) bool {
	run := 1
	var prev rune
	for i, r := range s {
		if i > 0 && r == prev {
			run++
			if run >= 3 {
				return true
			}
		} else {
			run = 1
		}
		prev = r
	}
	return false
}

// hasRepeatedSubstring reports whether a chunk of two or more characters
// repeats back to back within a word ("asdasd", "blahblah"). The regexp
// package has no backreferences, so this is an explicit scan.
func hasRepeatedSubstring(s string) bool {
	for _, word := range strings.Fields(s) {
		for i := 0; i < len(word); i++ {
			for l := 2; i+2*l <= len(word); l++ {
				if word[i:i+l] == word[i+l:i+2*l] {
					return true
				}
			}
		}
	}
	return false
}
