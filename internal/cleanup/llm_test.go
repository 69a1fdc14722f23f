package cleanup

import (
	"context"
	"errors"
	"testing"

	"github.com/voxtype/voxtype/internal/ai"
	"github.com/voxtype/voxtype/pkg/logger"
)

type fakeProvider struct {
	response string
	err      error

	gotMessages []ai.ChatMessage
	gotConfig   ai.ChatConfig
}

func (f *fakeProvider) ChatCompletion(_ context.Context, messages []ai.ChatMessage, config ai.ChatConfig) (string, error) {
	f.gotMessages = messages
	f.gotConfig = config
	return f.response, f.err
}

func newTestLLMCleaner(p ai.ChatProvider) *LLMCleaner {
	return NewLLMCleaner(p, LLMCleanerConfig{Model: "test-model"}, logger.NewNop())
}

func TestLLMCleanerReturnsRewrite(t *testing.T) {
	p := &fakeProvider{response: "  The meeting is at noon.  "}
	c := newTestLLMCleaner(p)

	got := c.Clean(context.Background(), "um so the meeting is at noon")
	if got != "The meeting is at noon." {
		t.Errorf("Clean = %q", got)
	}

	if len(p.gotMessages) != 2 || p.gotMessages[0].Role != "system" {
		t.Fatalf("unexpected messages: %+v", p.gotMessages)
	}
	if p.gotMessages[1].Content != "um so the meeting is at noon" {
		t.Errorf("user message = %q", p.gotMessages[1].Content)
	}
	if p.gotConfig.Temperature != 0.3 {
		t.Errorf("temperature = %v, want default 0.3", p.gotConfig.Temperature)
	}
}

func TestLLMCleanerFallbackOnError(t *testing.T) {
	p := &fakeProvider{err: errors.New("timeout")}
	c := newTestLLMCleaner(p)

	in := "raw spoken text"
	if got := c.Clean(context.Background(), in); got != in {
		t.Errorf("Clean = %q, want original on provider error", got)
	}
}

func TestLLMCleanerFallbackOnEmptyResponse(t *testing.T) {
	p := &fakeProvider{response: "   "}
	c := newTestLLMCleaner(p)

	in := "raw spoken text"
	if got := c.Clean(context.Background(), in); got != in {
		t.Errorf("Clean = %q, want original on empty response", got)
	}
}

func TestLLMCleanerSkipsBlankInput(t *testing.T) {
	p := &fakeProvider{response: "should not be used"}
	c := newTestLLMCleaner(p)

	if got := c.Clean(context.Background(), "  "); got != "  " {
		t.Errorf("Clean = %q, blank input must pass through", got)
	}
	if p.gotMessages != nil {
		t.Error("provider called for blank input")
	}
}

func TestNoopCleaner(t *testing.T) {
	var c NoopCleaner
	if got := c.Clean(context.Background(), "um text"); got != "um text" {
		t.Errorf("NoopCleaner changed text: %q", got)
	}
}
