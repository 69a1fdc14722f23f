package cleanup

import (
	"context"
	"testing"

	"github.com/voxtype/voxtype/pkg/logger"
)

func TestRuleBasedCleanerBasicScenario(t *testing.T) {
	c := NewRuleBasedCleaner(logger.NewNop())

	got := c.Clean(context.Background(), "um  so the meeting is at noon")
	if got != "The meeting is at noon." {
		t.Errorf("Clean = %q, want %q", got, "The meeting is at noon.")
	}
}

func TestRuleBasedCleanerFillerRemoval(t *testing.T) {
	c := NewRuleBasedCleaner(logger.NewNop())

	cases := map[string]string{
		"uh hello world":                       "Hello world.",
		"I was like thinking you know":         "I was thinking.",
		"UM okay":                              "Okay.",
		"this is sort of kind of done":         "This is done.",
		"basically we actually literally went": "We went.",
	}
	for in, want := range cases {
		if got := c.Clean(context.Background(), in); got != want {
			t.Errorf("Clean(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRuleBasedCleanerWordBoundaries(t *testing.T) {
	c := NewRuleBasedCleaner(logger.NewNop())

	// "umbrella" contains "um", "also" contains "so"; neither may be
	// touched.
	got := c.Clean(context.Background(), "the umbrella is also here")
	if got != "The umbrella is also here." {
		t.Errorf("Clean = %q", got)
	}
}

func TestRuleBasedCleanerPunctuationSpacing(t *testing.T) {
	c := NewRuleBasedCleaner(logger.NewNop())

	got := c.Clean(context.Background(), "hello , world .it works")
	if got != "Hello, world. It works." {
		t.Errorf("Clean = %q, want %q", got, "Hello, world. It works.")
	}
}

func TestRuleBasedCleanerTerminalPunctuation(t *testing.T) {
	c := NewRuleBasedCleaner(logger.NewNop())

	if got := c.Clean(context.Background(), "is it done?"); got != "Is it done?" {
		t.Errorf("existing terminal punctuation changed: %q", got)
	}
	if got := c.Clean(context.Background(), "done"); got != "Done." {
		t.Errorf("missing period not added: %q", got)
	}
}

func TestRuleBasedCleanerCapitalizesEachSentence(t *testing.T) {
	c := NewRuleBasedCleaner(logger.NewNop())

	got := c.Clean(context.Background(), "first sentence. second one! third")
	if got != "First sentence. Second one! Third." {
		t.Errorf("Clean = %q", got)
	}
}

func TestRuleBasedCleanerIdempotent(t *testing.T) {
	c := NewRuleBasedCleaner(logger.NewNop())

	inputs := []string{
		"um  so the meeting is at noon",
		"hello , world .it works",
		"first sentence. second one! third",
		"I was like thinking you know",
		"",
		"   ",
		"um uh er",
	}
	for _, in := range inputs {
		once := c.Clean(context.Background(), in)
		twice := c.Clean(context.Background(), once)
		if once != twice {
			t.Errorf("not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestRuleBasedCleanerBlankInputUnchanged(t *testing.T) {
	c := NewRuleBasedCleaner(logger.NewNop())

	if got := c.Clean(context.Background(), "  "); got != "  " {
		t.Errorf("whitespace-only input changed: %q", got)
	}
}
