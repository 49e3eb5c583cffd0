// Package config holds cmd/dragonflynode's startup configuration, parsed
// from flags the way the teacher's store/main.go parses cluster/port
// flags before constructing its node.
package config

import "flag"

// Config is the process-wide startup configuration for a dragonflynode
// instance.
type Config struct {
	NumShards   int
	AdminAddr   string
	JournalSize int
	RunDemo     bool
}

// Parse builds a Config from command-line flags, with the defaults this
// repository's demo binary runs under when invoked with no arguments.
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("dragonflynode", flag.ContinueOnError)
	cfg := &Config{}
	fs.IntVar(&cfg.NumShards, "shards", 4, "number of execution shards")
	fs.StringVar(&cfg.AdminAddr, "admin", ":6380", "control-plane HTTP listen address")
	fs.IntVar(&cfg.JournalSize, "journal-size", 1024, "in-memory journal ring buffer capacity")
	fs.BoolVar(&cfg.RunDemo, "demo", true, "run the scripted demo workload at startup")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}
