package telemetry

import (
	"time"

	"github.com/voxtype/voxtype/internal/storage/sqlite"
	"github.com/voxtype/voxtype/internal/transcription"
	"github.com/voxtype/voxtype/pkg/logger"
)

// SessionStore persists session records. Implemented by sqlite.SessionStorage.
type SessionStore interface {
	StoreSession(record *sqlite.SessionRecord) error
}

// Recorder fans each finished session out to the CSV writer and the
// session store. Either sink may be nil; recording failures are logged
// and never propagate into the dictation pipeline.
type Recorder struct {
	writer      *CSVWriter
	store       SessionStore
	cleanupMode string
	triggerMode string
	logger      *logger.Logger
}

// NewRecorder creates a recorder for the given sinks.
func NewRecorder(writer *CSVWriter, store SessionStore, cleanupMode, triggerMode string, log *logger.Logger) *Recorder {
	return &Recorder{
		writer:      writer,
		store:       store,
		cleanupMode: cleanupMode,
		triggerMode: triggerMode,
		logger:      log.Named("telemetry"),
	}
}

// Record stores the stats of one completed session.
func (r *Recorder) Record(u transcription.Utterance, cleaned string, cleanupDuration time.Duration) {
	cleanupMs := cleanupDuration.Milliseconds()

	if r.writer != nil {
		stats := SessionStats{
			Timestamp:    u.FlushedAt,
			SessionID:    u.ID,
			Speaker:      u.SpeakerID,
			Language:     u.LanguageTag,
			Fragments:    u.FragmentCount,
			RawChars:     len(u.Text),
			CleanedChars: len(cleaned),
			CleanupMode:  r.cleanupMode,
			CleanupMs:    cleanupMs,
			TriggerMode:  r.triggerMode,
		}
		if err := r.writer.Write(stats); err != nil {
			r.logger.Error("Failed to write session stats CSV", Error(err))
		}
	}

	if r.store != nil {
		record := &sqlite.SessionRecord{
			ID:           u.ID,
			FlushedAt:    u.FlushedAt,
			Speaker:      u.SpeakerID,
			Language:     u.LanguageTag,
			Fragments:    u.FragmentCount,
			RawChars:     len(u.Text),
			CleanedChars: len(cleaned),
			CleanupMode:  r.cleanupMode,
			CleanupMs:    cleanupMs,
			TriggerMode:  r.triggerMode,
		}
		if err := r.store.StoreSession(record); err != nil {
			r.logger.Error("Failed to store session record", Error(err))
		}
	}

	r.logger.Debug("Recorded session",
		String("session_id", u.ID),
		Int("raw_chars", len(u.Text)),
		Int("cleaned_chars", len(cleaned)))
}
