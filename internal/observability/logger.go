package observability

import (
	"github.com/danmuck/fastmon/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the process logger and returns a child tagged with
// the run id.
func InitLogger(runID string) zerolog.Logger {
	logging.ConfigureRuntime()
	return log.With().Str("run", runID).Logger()
}
