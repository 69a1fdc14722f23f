package cleanup

import (
	"context"
	"regexp"
	"strings"

	"github.com/voxtype/voxtype/pkg/logger"
)

// fillerWords are stripped wherever they appear. Multi-word entries
// must come before their single-word prefixes so the whole phrase is
// removed in one pass.
var fillerWords = []string{
	"you know",
	"i mean",
	"sort of",
	"kind of",
	"um", "uh", "uhm", "umm", "ah", "er", "hmm", "hm",
	"like", "so",
	"basically", "actually", "literally",
}

// RuleBasedCleaner is the deterministic cleanup strategy: strip filler
// words, normalize whitespace and punctuation spacing, terminate and
// capitalize sentences. It is idempotent.
type RuleBasedCleaner struct {
	logger         *logger.Logger
	fillerPatterns []*regexp.Regexp
}

var (
	multiSpaceRe       = regexp.MustCompile(`\s+`)
	spaceBeforePunctRe = regexp.MustCompile(`\s+([.,!?;:])`)
	missingSpaceRe     = regexp.MustCompile(`([.,!?;:])([A-Za-z])`)
	sentenceSplitRe    = regexp.MustCompile(`([.!?]\s*)`)
)

// NewRuleBasedCleaner creates the rule-based cleaner.
func NewRuleBasedCleaner(log *logger.Logger) *RuleBasedCleaner {
	patterns := make([]*regexp.Regexp, len(fillerWords))
	for i, w := range fillerWords {
		patterns[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return &RuleBasedCleaner{
		logger:         log.Named("cleanup-rules"),
		fillerPatterns: patterns,
	}
}

// Clean applies all transformations in order. The pre/post text pair
// is logged for traceability.
func (c *RuleBasedCleaner) Clean(_ context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	out := text
	for _, p := range c.fillerPatterns {
		out = p.ReplaceAllString(out, "")
	}
	out = cleanWhitespace(out)
	out = addTerminalPunctuation(out)
	out = capitalizeSentences(out)
	out = strings.TrimSpace(out)

	c.logger.Debug("Cleaned utterance text",
		String("original", text),
		String("cleaned", out))

	return out
}

func cleanWhitespace(text string) string {
	text = multiSpaceRe.ReplaceAllString(text, " ")
	text = spaceBeforePunctRe.ReplaceAllString(text, "$1")
	text = missingSpaceRe.ReplaceAllString(text, "$1 $2")
	return strings.TrimSpace(text)
}

func addTerminalPunctuation(text string) string {
	if text == "" {
		return text
	}
	last := text[len(text)-1]
	if last != '.' && last != '!' && last != '?' {
		text += "."
	}
	return text
}

func capitalizeSentences(text string) string {
	parts := splitKeepingDelimiters(text)
	var b strings.Builder
	for _, part := range parts {
		if part != "" {
			r := []rune(part)
			if isLetter(r[0]) {
				r[0] = toUpper(r[0])
			}
			b.WriteString(string(r))
		}
	}
	return b.String()
}

// splitKeepingDelimiters splits on sentence-ending punctuation while
// keeping the delimiters, so rejoining reproduces the input.
func splitKeepingDelimiters(text string) []string {
	var parts []string
	last := 0
	for _, loc := range sentenceSplitRe.FindAllStringIndex(text, -1) {
		parts = append(parts, text[last:loc[0]], text[loc[0]:loc[1]])
		last = loc[1]
	}
	parts = append(parts, text[last:])
	return parts
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}
