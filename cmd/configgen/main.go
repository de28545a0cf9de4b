package main

import (
	"flag"
	"log"

	"github.com/danmuck/fastmon/internal/config"
	"github.com/danmuck/fastmon/internal/fields"
	"github.com/danmuck/fastmon/internal/schema"
)

func main() {
	kind := flag.String("kind", "run", "template kind: run|schema")
	output := flag.String("output", "", "output path for the template")
	validate := flag.Bool("validate", false, "validate an existing file")
	input := flag.String("input", "", "path for validation (defaults to the per-kind path)")
	force := flag.Bool("force", false, "overwrite an existing file")
	flag.Parse()

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath(*kind)
		}
		switch *kind {
		case "run":
			cfg, err := config.LoadRunConfig(path)
			if err != nil {
				log.Fatal(err)
			}
			if err := cfg.Validate(); err != nil {
				log.Fatal(err)
			}
		case "schema":
			doc, err := schema.Load(path)
			if err != nil {
				log.Fatal(err)
			}
			if err := schema.Declare(fields.NewRegistry(), doc); err != nil {
				log.Fatal(err)
			}
		default:
			log.Fatalf("unknown kind: %s", *kind)
		}
		log.Printf("Validated %s file at %s", *kind, path)
		return
	}

	target := *output
	if target == "" {
		target = defaultPath(*kind)
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s template to %s", *kind, target)
}

func defaultPath(kind string) string {
	switch kind {
	case "run":
		return "fastmon.toml"
	case "schema":
		return "schema.toml"
	default:
		log.Fatalf("unknown kind: %s", kind)
		return ""
	}
}
