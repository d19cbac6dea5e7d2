package orchestrator

import (
	"regexp"
	"strings"
	"unicode"
)

// operationWeights score the kinds of work a task description implies.
// Each regexp match adds its weight; a description can match a pattern
// several times.
var operationWeights = []struct {
	re     *regexp.Regexp
	weight float64
}{
	{regexp.MustCompile(`calculate|compute|evaluate`), 1.0},
	{regexp.MustCompile(`search|find|look up`), 1.0},
	{regexp.MustCompile(`(count|process|analyze|transform)\s+text`), 1.0},
	{regexp.MustCompile(`run\s+code|execute`), 1.5},
	{regexp.MustCompile(`compare|contrast`), 2.0},
	{regexp.MustCompile(`optimize|improve|enhance`), 2.5},
	{regexp.MustCompile(`\b(and|then|after|before)\b`), 1.0},
	{regexp.MustCompile(`\b(if|when|unless|otherwise)\b`), 1.5},
	{regexp.MustCompile(`\b(all|every|each)\b`), 1.0},
	{regexp.MustCompile(`\b(most|best|optimal)\b`), 1.5},
	{regexp.MustCompile(`create\s+(api|endpoint|component|class|model)`), 2.0},
	{regexp.MustCompile(`generate\s+(api|endpoint|component|class|model)`), 2.0},
	{regexp.MustCompile(`design|architect`), 3.0},
	{regexp.MustCompile(`debug|troubleshoot|fix`), 2.5},
	{regexp.MustCompile(`full\s+stack|end-to-end|complete`), 3.0},
	{regexp.MustCompile(`database|storage|persistence`), 2.0},
	{regexp.MustCompile(`authentication|security|encryption`), 2.5},
	{regexp.MustCompile(`deploy|release|publish`), 2.0},
	{regexp.MustCompile(`test|validate|verify`), 1.5},
	{regexp.MustCompile(`front-?end|back-?end|\bui\b|\bux\b`), 1.5},
}

// toolFamilies detect how many distinct capability areas a task
// touches; each area found adds 1.5.
var toolFamilies = map[string][]string{
	"calculator": {"calculate", "compute", "evaluate", "math"},
	"search":     {"search", "find", "look up", "query"},
	"text":       {"text", "string", "characters", "words"},
	"component":  {"react", "component", "ui", "frontend"},
	"api":        {"api", "endpoint", "backend", "rest"},
	"database":   {"database", "model", "schema", "orm"},
	"shell":      {"script", "shell", "bash", "deploy"},
}

// AssessComplexity scores a task description on [0, 10]. The score is
// the sum of matched operation weights, 0.1 per word, 0.05 per special
// character, and 1.5 per capability area touched.
func AssessComplexity(description string) float64 {
	lower := strings.ToLower(description)
	score := 0.0

	for _, op := range operationWeights {
		score += op.weight * float64(len(op.re.FindAllString(lower, -1)))
	}

	score += float64(len(strings.Fields(description))) * 0.1

	for _, r := range description {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			score += 0.05
		}
	}

	for _, keywords := range toolFamilies {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				score += 1.5
				break
			}
		}
	}

	if score > 10 {
		return 10
	}
	return score
}
