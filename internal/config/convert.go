package config

import (
	"github.com/danmuck/fastmon/internal/processor"
	"github.com/danmuck/fastmon/internal/source"
)

// ProcessorConfig maps the run config onto the event loop settings.
func (c RunConfig) ProcessorConfig(runID string) processor.Config {
	pc := processor.DefaultConfig()
	pc.RunID = runID
	pc.MaxEvents = c.MaxEvents
	pc.ProgressEvery = c.ProgressEvery
	pc.Clock = c.Clock
	pc.Limits = c.Limits
	if c.DumpErrors {
		input := c.Input
		if c.Format == source.FormatNATS {
			input = c.NATS.Stream
		}
		pc.DumpPath = processor.DumpPath(c.DumpDir, input)
	}
	return pc
}
