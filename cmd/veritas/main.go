// Package main implements the veritas CLI, a client for the veritasd HTTP API.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/veritas/internal/geo"
	"github.com/fyrsmithlabs/veritas/internal/lang"
)

var (
	// serverURL is the base URL of the veritasd server
	serverURL  string
	language   string
	timeout    time.Duration
	outputJSON bool

	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "veritas",
	Short: "CLI for the veritas fact-check service",
	Long: `veritas is a command-line client for a veritasd server.
It fact-checks claims, scans images for deepfakes, forecasts virality
and chats with the assistant.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if language != "" && !lang.Language(language).Valid() {
			return fmt.Errorf("unsupported language %q (want en or ru)", language)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("VERITAS_SERVER", "http://localhost:9191"), "veritasd server URL")
	rootCmd.PersistentFlags().StringVar(&language, "lang", "", "response language: en or ru (defaults to the server's choice)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 3*time.Minute, "request timeout")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output results as JSON")
}

func newClient() *apiClient {
	return newAPIClient(serverURL, language, timeout)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// readText joins args, or reads stdin when there are none or the only arg is "-".
func readText(in io.Reader, args []string) (string, error) {
	var text string
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		text = string(data)
	} else {
		text = strings.Join(args, " ")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("no text to analyze")
	}
	return text, nil
}

// locationFlags holds --lat/--lng. Both must be given for a location to be sent.
type locationFlags struct {
	lat, lng float64
}

func (f *locationFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "latitude for location-aware checks")
	cmd.Flags().Float64Var(&f.lng, "lng", 0, "longitude for location-aware checks")
	cmd.MarkFlagsRequiredTogether("lat", "lng")
}

func (f *locationFlags) location(cmd *cobra.Command) (*geo.Location, error) {
	if !cmd.Flags().Changed("lat") {
		return nil, nil
	}
	loc := geo.Location{Latitude: f.lat, Longitude: f.lng}
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	return &loc, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
