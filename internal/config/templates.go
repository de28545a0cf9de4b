package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/fastmon/internal/schema"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "run":
		return runTemplate, nil
	case "schema":
		return string(schema.DefaultTOML()), nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o644)
}

const runTemplate = `input = "run.ldf"
format = "raw"
# schema = "schema.toml"
disable_groups = []
output = "events.jsonl"
output_fields = []
report = "report.toml"
max_events = 0
progress_every = 100
dump_errors = true
dump_dir = "."
status_addr = ""
max_record_bytes = 16777216

[clock]
tick_rollover_period = 33554432
tick_duration = 5e-8
hack_rollover_period = 128.0

[nats]
url = "nats://127.0.0.1:4222"
stream = "READOUT"
subject = "readout.>"
consumer = "fastmon"
batch = 32
idle_timeout = "5s"
`
