// Command kwcertify is the batch call site of the analysis pipeline.
//
// At certificate-issuance time it loads a session's complete event log
// - from the session store by id, or from an NDJSON file - runs the
// one-shot aggregate/extract/score chain, and prints the scoring
// payload for the issuing collaborator as JSON.
//
// Usage:
//
//	kwcertify -db keywitness.db -session <id>
//	kwcertify -log events.ndjson
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"keywitness/internal/batch"
	"keywitness/internal/config"
	"keywitness/internal/eventlog"
	"keywitness/internal/store"
)

// payload is the JSON document handed to the certificate issuer.
type payload struct {
	SessionID   string          `json:"session_id,omitempty"`
	WindowCount int             `json:"window_count"`
	PasteRatio  float64         `json:"paste_ratio"`
	AlertCount  int             `json:"alert_count"`
	Result      json.RawMessage `json:"result"`
}

func main() {
	configPath := flag.String("config", "", "configuration file (toml, yaml, or json)")
	dbPath := flag.String("db", "", "session store path")
	sessionID := flag.String("session", "", "session id to certify from the store")
	logPath := flag.String("log", "", "NDJSON event log file to certify")
	verbose := flag.Bool("verbose", false, "include features and alerts in the output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "kwcertify - compute the certification score for a session\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s -db <path> -session <id>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s -log <events.ndjson>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(*configPath, *dbPath, *sessionID, *logPath, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "kwcertify: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, dbPath, sessionID, logPath string, verbose bool) error {
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

	certifier := batch.New(cfg.Window.SizeMs, cfg.Scoring)

	var (
		cert batch.Certification
		err  error
	)
	switch {
	case sessionID != "":
		st, openErr := store.Open(cfg.Storage.Path)
		if openErr != nil {
			return openErr
		}
		defer st.Close()
		cert, err = certifier.CertifySession(st, sessionID)
		if err != nil {
			return err
		}

	case logPath != "":
		decoder, decErr := eventlog.NewDecoder()
		if decErr != nil {
			return decErr
		}
		f, openErr := os.Open(logPath)
		if openErr != nil {
			return fmt.Errorf("open event log: %w", openErr)
		}
		defer f.Close()
		log, decodeErr := decoder.Decode(f)
		if decodeErr != nil {
			return decodeErr
		}
		cert = certifier.Certify(log.Keystrokes, log.Edits)

	default:
		flag.Usage()
		os.Exit(2)
	}

	return emit(os.Stdout, sessionID, cert, verbose)
}

// emit writes the issuance payload.
func emit(w *os.File, sessionID string, cert batch.Certification, verbose bool) error {
	result, err := json.Marshal(cert.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	out := payload{
		SessionID:   sessionID,
		WindowCount: len(cert.Windows),
		PasteRatio:  cert.PasteRatio,
		AlertCount:  len(cert.Alerts),
		Result:      result,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if !verbose {
		return enc.Encode(out)
	}

	full := struct {
		payload
		Features any `json:"features"`
		Alerts   any `json:"alerts"`
	}{payload: out, Features: cert.Features, Alerts: cert.Alerts}
	return enc.Encode(full)
}
