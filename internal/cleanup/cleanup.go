// Package cleanup normalizes flushed utterance text before it is
// typed. Cleanup is best-effort: whatever happens, the caller always
// gets usable text back, falling back to the raw input on any failure.
package cleanup

import (
	"context"

	"github.com/voxtype/voxtype/pkg/logger"
)

var (
	String = logger.String
	Int    = logger.Int
	Error  = logger.Error
)

// Cleaner normalizes one utterance's text. Implementations never
// return an error; failures degrade to returning the input unchanged.
type Cleaner interface {
	Clean(ctx context.Context, text string) string
}

// NoopCleaner passes text through untouched (cleanup mode "off").
type NoopCleaner struct{}

func (NoopCleaner) Clean(_ context.Context, text string) string {
	return text
}
