package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	flagMethod         string
	flagHeaders        []string
	flagParams         []string
	flagData           string
	flagDataFile       string
	flagJSON           bool
	flagTimeout        time.Duration
	flagNoFollow       bool
	flagMaxRedirects   int
	flagLowSpeedLimit  int64
	flagLowSpeedWindow time.Duration
	flagExtract        string
	flagSchema         string
	flagRecord         string
	flagWatch          bool
	flagConfig         string
	flagNoColor        bool
	flagVerbose        bool
	flagHeadersOnly    bool
)

var rootCmd = &cobra.Command{
	Use:   "httpfetch <url>",
	Short: "Fire one HTTP request, asynchronously, from the command line",
	Long: `httpfetch builds a request descriptor from the command line, submits it
to an asynchronous session and prints the assembled response.

Examples:
  httpfetch https://example.test/get
  httpfetch -X POST -d '{"a":1}' --json https://example.test/post
  httpfetch -H "Authorization: Bearer t" -q a=1 -q b=2 https://example.test/get
  httpfetch --data-file body.json --watch https://example.test/post
  httpfetch --extract user.name https://example.test/user
  httpfetch --schema user.schema.json https://example.test/user`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

// Execute runs the CLI.
func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&flagMethod, "method", "X", "", "HTTP method (default GET, or POST when a body is given)")
	rootCmd.Flags().StringArrayVarP(&flagHeaders, "header", "H", nil, "request header as 'Name: Value' (repeatable)")
	rootCmd.Flags().StringArrayVarP(&flagParams, "param", "q", nil, "query parameter as name=value (repeatable)")
	rootCmd.Flags().StringVarP(&flagData, "data", "d", "", "request body")
	rootCmd.Flags().StringVar(&flagDataFile, "data-file", "", "read request body from file")
	rootCmd.Flags().BoolVar(&flagJSON, "json", false, "set Content-Type: application/json")
	rootCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "hard transfer timeout (0 disables)")
	rootCmd.Flags().BoolVar(&flagNoFollow, "no-follow", false, "do not follow redirects")
	rootCmd.Flags().IntVar(&flagMaxRedirects, "max-redirects", -1, "redirect cap when following (-1 keeps the default)")
	rootCmd.Flags().Int64Var(&flagLowSpeedLimit, "low-speed-limit", 0, "abort below this many bytes per window (0 keeps the default)")
	rootCmd.Flags().DurationVar(&flagLowSpeedWindow, "low-speed-window", 0, "low-speed measurement window")
	rootCmd.Flags().StringVar(&flagExtract, "extract", "", "print only this gjson path of the response body")
	rootCmd.Flags().StringVar(&flagSchema, "schema", "", "validate the response body against a JSON schema file")
	rootCmd.Flags().StringVar(&flagRecord, "record", "", "append the transfer to this SQLite history file")
	rootCmd.Flags().BoolVar(&flagWatch, "watch", false, "resend whenever --data-file changes")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path")
	rootCmd.Flags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "show transfer details and session metrics")
	rootCmd.Flags().BoolVarP(&flagHeadersOnly, "headers-only", "I", false, "print status and headers only")

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}
