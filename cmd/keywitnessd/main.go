// Command keywitnessd is the live call site of the analysis pipeline.
//
// It reads an NDJSON event stream from a capture front-end, drives the
// live analyzer for one session, logs each completed window vector and
// anomaly alert as it arrives, and appends the events to the session
// store so the batch certifier can replay them later.
//
// Usage:
//
//	keywitnessd -session <id> [flags] [events.ndjson]
//
// With no file argument the event stream is read from stdin.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"keywitness/internal/anomaly"
	"keywitness/internal/config"
	"keywitness/internal/eventlog"
	"keywitness/internal/live"
	"keywitness/internal/logging"
	"keywitness/internal/store"
	"keywitness/internal/window"
)

func main() {
	configPath := flag.String("config", "", "configuration file (toml, yaml, or json)")
	sessionID := flag.String("session", "", "session id (required)")
	dbPath := flag.String("db", "", "session store path (overrides config)")
	chunkSize := flag.Int("chunk", 64, "events per append batch")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "keywitnessd - live keystroke-dynamics analyzer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s -session <id> [flags] [events.ndjson]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *sessionID == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*configPath, *sessionID, *dbPath, *chunkSize, flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "keywitnessd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, sessionID, dbPath string, chunkSize int, inputPath string) error {
	cfg := config.Default()
	if configPath != "" {
		loader := config.NewLoader(configPath)
		loaded, err := loader.Load()
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}

	logger, err := logging.New(&logging.Config{
		Level:     logging.ParseLevel(cfg.Logging.Level),
		Format:    logging.ParseFormat(cfg.Logging.Format),
		Output:    cfg.Logging.Output,
		FilePath:  cfg.Logging.FilePath,
		Component: "keywitnessd",
	})
	if err != nil {
		return err
	}

	var input io.Reader = os.Stdin
	if inputPath != "" {
		f, err := os.Open(inputPath)
		if err != nil {
			return fmt.Errorf("open event stream: %w", err)
		}
		defer f.Close()
		input = f
	}

	decoder, err := eventlog.NewDecoder()
	if err != nil {
		return err
	}
	log, err := decoder.Decode(input)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.CreateSession(sessionID, time.Now().UnixMilli()); err != nil {
		return err
	}

	analyzer := live.New(live.Config{
		WindowSizeMs:      cfg.Window.SizeMs,
		RecentWindowCount: cfg.Anomaly.RecentWindowCount,
		Logger:            logger,
		OnWindow: func(v window.Vector) {
			logger.Info("window completed",
				"start_ms", v.WindowStart,
				"keystrokes", v.KeystrokeCount,
				"wpm", v.AvgWpm,
				"errors", v.ErrorCount,
				"pauses", v.PauseCount,
			)
		},
		OnAlert: func(a anomaly.Alert) {
			logger.Warn("anomaly detected",
				"type", string(a.Type),
				"severity", string(a.Severity),
				"confidence", a.Confidence,
				"message", a.Message,
			)
		},
	})
	defer analyzer.Close()

	if len(log.Edits) > 0 {
		analyzer.Append(nil, log.Edits)
		if err := st.AppendEdits(sessionID, log.Edits); err != nil {
			return err
		}
	}

	// Feed the stream in batches, as a transport layer would deliver
	// it, persisting each batch as it is analyzed.
	for start := 0; start < len(log.Keystrokes); start += chunkSize {
		end := start + chunkSize
		if end > len(log.Keystrokes) {
			end = len(log.Keystrokes)
		}
		batch := log.Keystrokes[start:end]

		analyzer.Append(batch, nil)
		if err := st.AppendKeystrokes(sessionID, batch); err != nil {
			return err
		}
	}

	preview := analyzer.Preview(cfg.Scoring)
	logger.Info("session preview",
		"session", sessionID,
		"score", preview.OverallScore,
		"grade", preview.Grade,
		"label", preview.Label,
	)

	if err := st.CloseSession(sessionID, time.Now().UnixMilli()); err != nil {
		return err
	}
	return nil
}
