package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/httpfetch/packages/config"
	"github.com/abdul-hamid-achik/httpfetch/packages/history"
	"github.com/abdul-hamid-achik/httpfetch/packages/metrics"
	"github.com/abdul-hamid-achik/httpfetch/packages/request"
	"github.com/abdul-hamid-achik/httpfetch/packages/session"
	"github.com/abdul-hamid-achik/httpfetch/packages/transfer"
)

// WatchDebounceDelay coalesces bursts of file events into one resend.
const WatchDebounceDelay = 250 * time.Millisecond

func runFetch(cmd *cobra.Command, args []string) error {
	rawURL := args[0]

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	formatter := newFormatter(cmd.OutOrStdout(), flagNoColor || cfg.GetNoColor(), flagVerbose || cfg.GetVerbose())

	var store *history.Store
	recordPath := flagRecord
	if recordPath == "" {
		recordPath = cfg.HistoryPath
	}
	if recordPath != "" {
		store, err = history.Open(recordPath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	recorder := metrics.NewRecorder()
	opts := []session.Option{session.WithRecorder(recorder)}
	if cfg.RateLimit > 0 {
		opts = append(opts, session.WithRateLimit(cfg.RateLimit, 1))
	}
	sess := session.New(opts...)

	// One handle for the whole invocation so watch-mode resends reuse
	// pooled connections.
	handle := transfer.New()

	send := func() error {
		req, err := buildRequest(rawURL, cfg, handle)
		if err != nil {
			return err
		}
		method, reqURL := methodAndURL(req)

		start := time.Now()
		future := req.Send(cmd.Context(), sess)
		resp, err := future.Wait(cmd.Context())
		elapsed := time.Since(start)

		if store != nil {
			entry := history.Entry{
				HandleID: handle.ID().String(),
				Method:   method,
				URL:      reqURL,
				Duration: elapsed,
			}
			if err != nil {
				entry.Error = err.Error()
			} else {
				entry.Status = resp.StatusCode()
			}
			if rerr := store.Record(entry); rerr != nil {
				formatter.warnf("history: %v", rerr)
			}
		}

		if err != nil {
			return err
		}
		handle = resp.Reuse()

		formatter.printResponse(resp, elapsed, flagHeadersOnly, flagExtract)

		if flagSchema != "" {
			problems, err := validateSchema(resp.Body(), flagSchema)
			if err != nil {
				return err
			}
			formatter.printSchema(flagSchema, problems)
			if len(problems) > 0 {
				return fmt.Errorf("response body does not match schema %s", flagSchema)
			}
		}
		return nil
	}

	if !flagWatch {
		err := send()
		if flagVerbose {
			formatter.printMetrics(recorder.Snapshot())
		}
		return err
	}

	if flagDataFile == "" {
		return fmt.Errorf("--watch requires --data-file")
	}
	return watchAndResend(cmd, formatter, send)
}

// watchAndResend fires the request once, then again on every write to the
// body file until the command context ends.
func watchAndResend(cmd *cobra.Command, formatter *outputFormatter, send func() error) error {
	if err := send(); err != nil {
		formatter.errorf("%v", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file on save.
	if err := watcher.Add(filepath.Dir(flagDataFile)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", flagDataFile, err)
	}
	target := filepath.Clean(flagDataFile)
	formatter.printWatching(target)

	var debounce *time.Timer
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(WatchDebounceDelay, func() {
				if err := send(); err != nil {
					formatter.errorf("%v", err)
				}
			})
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			formatter.warnf("watcher: %v", werr)
		}
	}
}

// buildRequest assembles a fresh descriptor. Descriptors are consumed by
// submission, so watch mode rebuilds one per send.
func buildRequest(rawURL string, cfg *config.Config, handle *transfer.Handle) (*request.Request, error) {
	var body []byte
	if flagDataFile != "" {
		data, err := os.ReadFile(flagDataFile)
		if err != nil {
			return nil, fmt.Errorf("read body file: %w", err)
		}
		body = data
	} else if flagData != "" {
		body = []byte(flagData)
	}

	method := strings.ToUpper(strings.TrimSpace(flagMethod))
	if method == "" {
		if body != nil {
			method = string(request.POST)
		} else {
			method = string(request.GET)
		}
	}

	req, err := request.Parse(rawURL, request.Custom(method))
	if err != nil {
		return nil, err
	}

	for name, value := range cfg.Headers {
		req.SetHeader(name, value)
	}
	for _, h := range flagHeaders {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return nil, fmt.Errorf("malformed header %q, want 'Name: Value'", h)
		}
		req.SetHeader(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	for _, p := range flagParams {
		name, value, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("malformed query parameter %q, want name=value", p)
		}
		req.AddParam(name, value)
	}

	if body != nil {
		req.SetBody(body)
	}
	if flagJSON {
		req.SetHeader("Content-Type", "application/json")
	}

	if flagTimeout > 0 {
		req.Timeout(flagTimeout)
	} else if cfg.GetTimeout() > 0 {
		req.Timeout(cfg.GetTimeout())
	}

	if flagNoFollow || !cfg.GetFollowRedirects() {
		req.FollowRedirects(false)
	}
	if flagMaxRedirects >= 0 {
		req.MaxRedirects(flagMaxRedirects)
	} else if cfg.MaxRedirects > 0 {
		req.MaxRedirects(cfg.MaxRedirects)
	}

	if flagLowSpeedLimit > 0 && flagLowSpeedWindow > 0 {
		req.LowSpeedLimit(flagLowSpeedLimit, flagLowSpeedWindow)
	} else if cfg.LowSpeedLimit > 0 && cfg.GetLowSpeedWindow() > 0 {
		req.LowSpeedLimit(cfg.LowSpeedLimit, cfg.GetLowSpeedWindow())
	}

	return req.UseHandle(handle), nil
}

func methodAndURL(req *request.Request) (string, string) {
	line := req.String()
	method, u, _ := strings.Cut(line, " ")
	return method, u
}
