package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/veritas/internal/analysis"
)

var (
	checkLoc  locationFlags
	verifyLoc locationFlags
	scanNote  string
)

func init() {
	checkLoc.register(checkCmd)
	verifyLoc.register(verifyCmd)
	scanCmd.Flags().StringVar(&scanNote, "note", "", "optional context about the image")

	rootCmd.AddCommand(checkCmd, verifyCmd, viralityCmd, scanCmd, healthCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check [text...]",
	Short: "Fact-check a claim and forecast its virality",
	Long: `Fact-check a claim and forecast how far it will spread.

Examples:
  # Check a claim
  veritas check "The Eiffel Tower was sold for scrap in 1925"

  # Check from stdin, answering in Russian
  pbpaste | veritas check --lang ru -

  # Check with a location for nearby sources
  veritas check --lat 55.75 --lng 37.62 "Metro closed today"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readText(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		loc, err := checkLoc.location(cmd)
		if err != nil {
			return err
		}
		report, err := newClient().Check(cmd.Context(), text, loc)
		if err != nil {
			return err
		}
		if outputJSON {
			return writeJSON(cmd.OutOrStdout(), report)
		}
		printAnalysis(cmd.OutOrStdout(), report.Analysis)
		fmt.Fprintln(cmd.OutOrStdout())
		printVirality(cmd.OutOrStdout(), report.Virality)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify [text...]",
	Short: "Fact-check a claim",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readText(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		loc, err := verifyLoc.location(cmd)
		if err != nil {
			return err
		}
		result, err := newClient().Verify(cmd.Context(), text, loc)
		if err != nil {
			return err
		}
		if outputJSON {
			return writeJSON(cmd.OutOrStdout(), result)
		}
		printAnalysis(cmd.OutOrStdout(), result)
		return nil
	},
}

var viralityCmd = &cobra.Command{
	Use:   "virality [text...]",
	Short: "Forecast how far a text will spread",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readText(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		pred, err := newClient().Virality(cmd.Context(), text)
		if err != nil {
			return err
		}
		if outputJSON {
			return writeJSON(cmd.OutOrStdout(), pred)
		}
		printVirality(cmd.OutOrStdout(), pred)
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan <image>",
	Short: "Scan an image for deepfake manipulation",
	Long: `Scan an image file for signs of AI generation or manipulation.

Examples:
  veritas scan photo.jpg
  veritas scan --note "posted as a press photo" photo.png`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read image %s: %w", args[0], err)
		}
		mimeType := imageType(args[0], data)
		if !strings.HasPrefix(mimeType, "image/") {
			return fmt.Errorf("%s does not look like an image (%s)", filepath.Base(args[0]), mimeType)
		}
		result, err := newClient().Scan(cmd.Context(), data, mimeType, scanNote)
		if err != nil {
			return err
		}
		if outputJSON {
			return writeJSON(cmd.OutOrStdout(), result)
		}
		printDeepfake(cmd.OutOrStdout(), result)
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check veritasd server health",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := newClient().Health(cmd.Context())
		if err != nil {
			return err
		}
		if outputJSON {
			return writeJSON(cmd.OutOrStdout(), h)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Server Status: %s\n", h.Status)
		fmt.Fprintf(out, "Server URL: %s\n", serverURL)
		if h.Version != "" {
			fmt.Fprintf(out, "Version: %s\n", h.Version)
		}
		if h.Provider != "" {
			fmt.Fprintf(out, "Provider: %s\n", h.Provider)
		}
		fmt.Fprintf(out, "Chat Sessions: %d\n", h.ChatSessions)
		return nil
	},
}

// imageType sniffs the content, trusting the extension only when sniffing
// gives up.
func imageType(path string, data []byte) string {
	detected := http.DetectContentType(data)
	if detected != "application/octet-stream" {
		return detected
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".heic":
		return "image/heic"
	case ".avif":
		return "image/avif"
	}
	return detected
}

func printAnalysis(w io.Writer, r analysis.AnalysisResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Verdict:\t%s\n", r.Verdict)
	fmt.Fprintf(tw, "Score:\t%d/100\n", r.Score)
	fmt.Fprintf(tw, "Risk:\t%s\n", r.RiskLevel)
	fmt.Fprintf(tw, "Impact:\t%s\n", r.RiskImpact)
	tw.Flush()
	fmt.Fprintf(w, "\n%s\n", r.Explanation)
	if len(r.Sources) > 0 {
		fmt.Fprintln(w, "\nSources:")
		for _, s := range r.Sources {
			fmt.Fprintf(w, "  - %s (%s)\n", s.Title, s.URI)
		}
	}
}

func printVirality(w io.Writer, p analysis.ViralityPrediction) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Virality:\t%d/100\n", p.ViralityScore)
	fmt.Fprintf(tw, "Reach:\t%s\n", p.EstimatedReach)
	fmt.Fprintf(tw, "Velocity:\t%s\n", p.Velocity)
	tw.Flush()
	fmt.Fprintf(w, "\n%s\n", p.Reasoning)
}

func printDeepfake(w io.Writer, r analysis.DeepfakeResult) {
	verdict := "no manipulation detected"
	if r.IsDeepfake {
		verdict = "likely manipulated"
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Result:\t%s\n", verdict)
	fmt.Fprintf(tw, "Confidence:\t%d%%\n", r.Confidence)
	tw.Flush()
	if len(r.Indicators) > 0 {
		fmt.Fprintln(w, "\nIndicators:")
		for _, ind := range r.Indicators {
			fmt.Fprintf(w, "  - %s\n", ind)
		}
	}
	fmt.Fprintf(w, "\n%s\n", r.TechnicalAnalysis)
}
