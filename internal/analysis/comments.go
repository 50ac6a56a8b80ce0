package analysis

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxVideoSamples    = 3
	maxReportSamples   = 10
	maxSampleRunes     = 100
	sampleEllipsis     = "..."
	problemRateEpsilon = 1e-6
)

// CommentClassifier counts demand and problem signals in raw comment text.
// Patterns are compiled once and shared read-only.
type CommentClassifier struct {
	demand  *regexp.Regexp
	problem *regexp.Regexp
}

// NewCommentClassifier compiles the demand and problem keyword lists. Empty
// lists never match.
func NewCommentClassifier(keywords map[KeywordCategory][]string) *CommentClassifier {
	return &CommentClassifier{
		demand:  compileKeywords(keywords[KeywordDemand]),
		problem: compileKeywords(keywords[KeywordProblem]),
	}
}

func compileKeywords(words []string) *regexp.Regexp {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(w))
	}
	if len(quoted) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`)
}

// Classify counts matching comments. Non-string entries are skipped but still
// count toward TotalAnalyzedComments.
func (c *CommentClassifier) Classify(comments []any) CommentAnalysis {
	result := CommentAnalysis{
		TotalAnalyzedComments: len(comments),
		DemandSamples:         []string{},
		ProblemSamples:        []string{},
	}

	for _, raw := range comments {
		text, ok := raw.(string)
		if !ok {
			continue
		}

		if c.demand != nil && c.demand.MatchString(text) {
			result.DemandCount++
			if len(result.DemandSamples) < maxVideoSamples {
				result.DemandSamples = append(result.DemandSamples, truncateSample(text))
			}
		}

		if c.problem != nil && c.problem.MatchString(text) {
			result.ProblemCount++
			if len(result.ProblemSamples) < maxVideoSamples {
				result.ProblemSamples = append(result.ProblemSamples, truncateSample(text))
			}
		}
	}

	return result
}

func truncateSample(text string) string {
	if utf8.RuneCountInString(text) <= maxSampleRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxSampleRunes]) + sampleEllipsis
}

// collectSamples merges per-video samples in order, dropping duplicates
func collectSamples(perVideo [][]string, limit int) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, limit)
	for _, samples := range perVideo {
		for _, s := range samples {
			if len(out) >= limit {
				return out
			}
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
