package main

import (
	"flag"
	"fmt"
	"os"

	"log/slog"

	"github.com/runbooklabs/inlinegen/pkg/config"
	"github.com/runbooklabs/inlinegen/pkg/logger"
)

func main() {
	mode := flag.String("mode", "remote", "Session service mode (remote|mock)")
	configPath := flag.String("config", "", "Config file path (default ~/.inlinegen/config.json)")
	endpoint := flag.String("endpoint", "", "Generator websocket endpoint (overrides config)")
	runbookID := flag.String("runbook", "", "Runbook ID to attribute sessions to")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	path := *configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "resolve config path: %v\n", err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *debug {
		cfg.Log.Level = "debug"
	}
	if *endpoint != "" {
		cfg.Generator.Endpoint = *endpoint
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()
	slog.SetDefault(log.Slog())

	if err := runHost(cfg, *mode, *runbookID); err != nil {
		slog.Error("host error", "error", err)
		os.Exit(1)
	}
}
