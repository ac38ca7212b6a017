package app

import (
	"fmt"

	"github.com/rbright/meowspeak/internal/translate"
	"gopkg.in/yaml.v3"
)

type catalogRecord struct {
	Sound   string `yaml:"sound"`
	Meaning string `yaml:"meaning"`
	Mood    string `yaml:"mood"`
	Emoji   string `yaml:"emoji"`
}

func (r Runner) commandCatalog() int {
	entries := translate.Catalog()
	records := make([]catalogRecord, 0, len(entries))
	for _, entry := range entries {
		records = append(records, catalogRecord{
			Sound:   entry.Sound,
			Meaning: entry.Meaning,
			Mood:    string(entry.Mood),
			Emoji:   entry.Mood.Emoji(),
		})
	}

	enc := yaml.NewEncoder(r.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		fmt.Fprintf(r.Stderr, "error: encode catalog: %v\n", err)
		return 1
	}
	if err := enc.Close(); err != nil {
		fmt.Fprintf(r.Stderr, "error: encode catalog: %v\n", err)
		return 1
	}
	return 0
}
