package transcription

import (
	"context"
	"errors"
	"testing"

	"github.com/voxtype/voxtype/pkg/logger"
)

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewProcessor(ctx, Config{Language: "en"}, nil, logger.NewNop())
}

func TestHandleEventDelta(t *testing.T) {
	p := newTestProcessor(t)

	var partials []string
	p.OnPartial = func(text string) { partials = append(partials, text) }

	p.handleEvent(`{"type":"conversation.item.input_audio_transcription.delta","delta":"hel"}`)
	p.handleEvent(`{"type":"conversation.item.input_audio_transcription.delta","delta":"lo"}`)

	if len(partials) != 2 || partials[0] != "hel" || partials[1] != "lo" {
		t.Errorf("partials = %v", partials)
	}

	select {
	case frag := <-p.fragments:
		t.Errorf("delta events must not produce fragments, got %+v", frag)
	default:
	}
}

func TestHandleEventCompleted(t *testing.T) {
	p := newTestProcessor(t)

	p.handleEvent(`{"type":"conversation.item.input_audio_transcription.completed","transcript":"hello world"}`)

	select {
	case frag := <-p.fragments:
		if frag.Text != "hello world" {
			t.Errorf("fragment text = %q", frag.Text)
		}
		if frag.SpeakerID != "mic" {
			t.Errorf("fragment speaker = %q", frag.SpeakerID)
		}
		if frag.LanguageTag != "en" {
			t.Errorf("fragment language = %q", frag.LanguageTag)
		}
		if frag.SessionTimestamp.IsZero() {
			t.Error("fragment missing timestamp")
		}
	default:
		t.Fatal("completed event did not produce a fragment")
	}
}

func TestHandleEventMalformed(t *testing.T) {
	p := newTestProcessor(t)

	// None of these should panic or emit fragments.
	p.handleEvent(`not json`)
	p.handleEvent(`{"no_type":true}`)
	p.handleEvent(`{"type":"conversation.item.input_audio_transcription.delta"}`)
	p.handleEvent(`{"type":"conversation.item.input_audio_transcription.completed"}`)
	p.handleEvent(`{"type":"something.unknown"}`)

	select {
	case frag := <-p.fragments:
		t.Errorf("malformed events produced a fragment: %+v", frag)
	default:
	}
}

func TestIsReconnectableError(t *testing.T) {
	cases := []struct {
		err  string
		want bool
	}{
		{"websocket: close 1006 (abnormal closure): unexpected EOF", true},
		{"read tcp: connection reset by peer", true},
		{"unexpected EOF", true},
		{"read tcp: i/o timeout", true},
		{"invalid session configuration", false},
		{"401 unauthorized", false},
	}
	for _, tc := range cases {
		if got := isReconnectableError(errors.New(tc.err)); got != tc.want {
			t.Errorf("isReconnectableError(%q) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
