package transcription

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxtype/voxtype/pkg/logger"
)

// Consolidator accumulates transcript fragments into a single buffer
// and flushes them as one Utterance at end of utterance. Exactly one
// buffer is alive at a time; it is cleared on every flush.
type Consolidator struct {
	logger *logger.Logger

	mu              sync.Mutex
	accumulatedText string
	fragmentCount   int
	lastSpeakerID   string
	lastLanguageTag string
}

// NewConsolidator creates an empty consolidator.
func NewConsolidator(log *logger.Logger) *Consolidator {
	return &Consolidator{logger: log.Named("consolidator")}
}

// Append adds a fragment to the buffer. Fragment texts are concatenated
// exactly as the recognizer produced them; the recognizer already
// includes whatever spacing it intends, so no separator is inserted.
func (c *Consolidator) Append(frag TranscriptFragment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.accumulatedText += frag.Text
	c.fragmentCount++
	if frag.SpeakerID != "" {
		c.lastSpeakerID = frag.SpeakerID
	}
	if frag.LanguageTag != "" {
		c.lastLanguageTag = frag.LanguageTag
	}

	c.logger.Debug("Fragment appended",
		String("text", frag.Text),
		Int("buffer_len", len(c.accumulatedText)))
}

// Flush produces one Utterance from the buffered fragments and resets
// the buffer. A flush on an empty or whitespace-only buffer is a no-op
// and returns ok=false; no downstream event should be emitted.
func (c *Consolidator) Flush() (Utterance, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	text := strings.TrimSpace(c.accumulatedText)
	speaker := c.lastSpeakerID
	lang := c.lastLanguageTag
	fragments := c.fragmentCount

	c.accumulatedText = ""
	c.fragmentCount = 0
	c.lastSpeakerID = ""
	c.lastLanguageTag = ""

	if text == "" {
		c.logger.Debug("Flush with empty buffer, skipping")
		return Utterance{}, false
	}

	u := Utterance{
		ID:            uuid.New().String(),
		Text:          text,
		SpeakerID:     speaker,
		LanguageTag:   lang,
		FragmentCount: fragments,
		FlushedAt:     time.Now().UTC(),
	}

	c.logger.Debug("Buffer flushed",
		String("utterance_id", u.ID),
		Int("text_len", len(u.Text)))

	return u, true
}

// Pending reports whether the buffer currently holds any text.
func (c *Consolidator) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.TrimSpace(c.accumulatedText) != ""
}
