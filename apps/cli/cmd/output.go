package cmd

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/xeipuuv/gojsonschema"

	"github.com/abdul-hamid-achik/httpfetch/packages/metrics"
	"github.com/abdul-hamid-achik/httpfetch/packages/response"
)

type outputFormatter struct {
	writer  io.Writer
	verbose bool
}

func newFormatter(w io.Writer, noColor, verbose bool) *outputFormatter {
	if noColor {
		color.NoColor = true
	}
	return &outputFormatter{writer: w, verbose: verbose}
}

func statusColor(code int) *color.Color {
	switch {
	case code >= 200 && code <= 299:
		return color.New(color.FgGreen, color.Bold)
	case code >= 300 && code <= 399:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func (f *outputFormatter) printResponse(resp *response.Response, elapsed time.Duration, headersOnly bool, extract string) {
	code := resp.StatusCode()
	fmt.Fprintf(f.writer, "%s %s", statusColor(code).Sprintf("%d", code), http.StatusText(code))
	if f.verbose {
		fmt.Fprintf(f.writer, "  %s", color.New(color.Faint).Sprintf("(%s)", elapsed.Round(time.Millisecond)))
	}
	fmt.Fprintln(f.writer)

	if f.verbose || headersOnly {
		name := color.New(color.FgCyan)
		for _, h := range resp.Headers() {
			fmt.Fprintf(f.writer, "%s: %s\n", name.Sprint(h.Name), h.Value)
		}
	}
	if headersOnly {
		return
	}

	if extract != "" {
		result := resp.JSONPath(extract)
		if !result.Exists() {
			f.warnf("path %q not found in response body", extract)
			return
		}
		fmt.Fprintln(f.writer, result.String())
		return
	}

	if len(resp.Body()) > 0 {
		fmt.Fprintln(f.writer)
		if text, err := resp.BodyString(); err == nil {
			fmt.Fprintln(f.writer, text)
		} else {
			fmt.Fprintf(f.writer, "<%d bytes of binary data>\n", len(resp.Body()))
		}
	}
}

func (f *outputFormatter) printSchema(schemaPath string, problems []string) {
	if len(problems) == 0 {
		fmt.Fprintf(f.writer, "%s body matches %s\n", color.GreenString("✓"), filepath.Base(schemaPath))
		return
	}
	fmt.Fprintf(f.writer, "%s body violates %s:\n", color.RedString("✗"), filepath.Base(schemaPath))
	for _, p := range problems {
		fmt.Fprintf(f.writer, "  - %s\n", p)
	}
}

func (f *outputFormatter) printMetrics(s metrics.Snapshot) {
	faint := color.New(color.Faint)
	fmt.Fprintln(f.writer, faint.Sprintf("transfers: %d (%d ok, %d failed) across %d handle(s)",
		s.Total, s.Succeeded, s.Failed, s.Handles))
	fmt.Fprintln(f.writer, faint.Sprintf("latency: p50=%s p95=%s p99=%s max=%s",
		s.P50.Round(time.Millisecond), s.P95.Round(time.Millisecond),
		s.P99.Round(time.Millisecond), s.Max.Round(time.Millisecond)))
}

func (f *outputFormatter) printWatching(path string) {
	fmt.Fprintln(f.writer, color.New(color.Faint).Sprintf("watching %s, Ctrl-C to stop", path))
}

func (f *outputFormatter) errorf(format string, args ...any) {
	fmt.Fprintf(f.writer, "%s %s\n", color.RedString("error:"), fmt.Sprintf(format, args...))
}

func (f *outputFormatter) warnf(format string, args ...any) {
	fmt.Fprintf(f.writer, "%s %s\n", color.YellowString("warning:"), fmt.Sprintf(format, args...))
}

// validateSchema checks the response body against a JSON schema file and
// returns one message per violation.
func validateSchema(body []byte, schemaPath string) ([]string, error) {
	abs, err := filepath.Abs(schemaPath)
	if err != nil {
		return nil, err
	}
	schemaLoader := gojsonschema.NewReferenceLoader("file://" + abs)
	documentLoader := gojsonschema.NewBytesLoader(body)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return problems, nil
}
