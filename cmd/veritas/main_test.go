package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/veritas/internal/analysis"
	"github.com/fyrsmithlabs/veritas/internal/chat"
	"github.com/fyrsmithlabs/veritas/internal/genai"
	"github.com/fyrsmithlabs/veritas/internal/geo"
	httpapi "github.com/fyrsmithlabs/veritas/internal/http"
	"github.com/fyrsmithlabs/veritas/internal/logging"
	"github.com/fyrsmithlabs/veritas/internal/prompt"
)

// modelGenerator answers each analysis with a canned reply and echoes chat
// turns. Deepfake scans are recognized by their image part, since the scan
// and chat share a model by default.
type modelGenerator struct{}

func (modelGenerator) Generate(_ context.Context, req genai.Request) (*genai.Response, error) {
	last := req.Contents[len(req.Contents)-1]
	for _, p := range last.Parts {
		if p.InlineData != nil {
			return &genai.Response{Text: "IS_DEEPFAKE: YES\nCONFIDENCE: 77\nINDICATORS: mismatched earrings\nANALYSIS: Lighting is inconsistent."}, nil
		}
	}

	models := prompt.DefaultConfig()
	switch req.Model {
	case models.FactCheck.Model:
		return &genai.Response{
			Text: "VERDICT: FAKE\nSCORE: 8\nRISK_LEVEL: HIGH\nIMPACT: panic buying\nEXPLANATION: No such decree exists.",
			GroundingChunks: []genai.GroundingChunk{
				{Web: &genai.WebRef{URI: "https://example.org/decree", Title: "Decree registry"}},
			},
		}, nil
	case models.Virality.Model:
		return &genai.Response{Text: "SCORE: 81\nREACH: 100k+\nVELOCITY: Explosive\nREASONING: Fear sells."}, nil
	}
	return &genai.Response{Text: "echo: " + last.Parts[len(last.Parts)-1].Text}, nil
}

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	gen := modelGenerator{}
	builder := prompt.NewBuilder(prompt.DefaultConfig())
	svc := analysis.NewService(gen, builder, analysis.WithLocator(geo.None))
	srv, err := httpapi.NewServer(svc, chat.NewStore(gen, builder), logging.Nop(), nil)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// executeCommand runs the root command with fresh global flag values.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	language, outputJSON, scanNote, timeout = "", false, "", 10*time.Second

	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestReadText(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		args    []string
		want    string
		wantErr bool
	}{
		{"args joined", "", []string{"moon", "is", "cheese"}, "moon is cheese", false},
		{"stdin when no args", "  from stdin \n", nil, "from stdin", false},
		{"dash reads stdin", "piped", []string{"-"}, "piped", false},
		{"blank stdin", "   ", nil, "", true},
		{"blank args", "", []string{" "}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readText(strings.NewReader(tt.stdin), tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocationFlags(t *testing.T) {
	newCmd := func() (*cobra.Command, *locationFlags) {
		var lf locationFlags
		cmd := &cobra.Command{Use: "x", RunE: func(*cobra.Command, []string) error { return nil }}
		lf.register(cmd)
		return cmd, &lf
	}

	cmd, lf := newCmd()
	require.NoError(t, cmd.ParseFlags(nil))
	loc, err := lf.location(cmd)
	require.NoError(t, err)
	assert.Nil(t, loc)

	cmd, lf = newCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--lat", "55.75", "--lng", "37.62"}))
	loc, err = lf.location(cmd)
	require.NoError(t, err)
	assert.Equal(t, &geo.Location{Latitude: 55.75, Longitude: 37.62}, loc)

	cmd, lf = newCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--lat", "95", "--lng", "0"}))
	_, err = lf.location(cmd)
	assert.Error(t, err)
}

func TestCheckCommand(t *testing.T) {
	ts := newTestAPI(t)

	out, err := executeCommand(t, "", "check", "--server", ts.URL, "Bread", "is", "banned")
	require.NoError(t, err)

	assert.Contains(t, out, "FAKE")
	assert.Contains(t, out, "8/100")
	assert.Contains(t, out, "No such decree exists.")
	assert.Contains(t, out, "Decree registry (https://example.org/decree)")
	assert.Contains(t, out, "81/100")
	assert.Contains(t, out, "Explosive")
}

func TestVerifyCommand_JSON(t *testing.T) {
	ts := newTestAPI(t)

	out, err := executeCommand(t, "Bread is banned", "verify", "--server", ts.URL, "--json", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"verdict": "FAKE"`)
	assert.Contains(t, out, `"riskLevel": "HIGH"`)
}

func TestViralityCommand(t *testing.T) {
	ts := newTestAPI(t)

	out, err := executeCommand(t, "", "virality", "--server", ts.URL, "--lang", "ru", "SHOCK")
	require.NoError(t, err)
	assert.Contains(t, out, "100k+")
	assert.Contains(t, out, "Fear sells.")
}

func TestScanCommand(t *testing.T) {
	ts := newTestAPI(t)
	dir := t.TempDir()

	png := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n0000"), 0o600))
	out, err := executeCommand(t, "", "scan", "--server", ts.URL, "--note", "press photo", png)
	require.NoError(t, err)
	assert.Contains(t, out, "likely manipulated")
	assert.Contains(t, out, "77%")
	assert.Contains(t, out, "mismatched earrings")

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("plain text"), 0o600))
	_, err = executeCommand(t, "", "scan", "--server", ts.URL, txt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not look like an image")
}

func TestHealthCommand(t *testing.T) {
	ts := newTestAPI(t)

	out, err := executeCommand(t, "", "health", "--server", ts.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Server Status: ok")
	assert.Contains(t, out, "Chat Sessions: 0")
}

func TestInvalidLanguage(t *testing.T) {
	_, err := executeCommand(t, "", "verify", "--lang", "de", "claim")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported language")
}

func TestAPIError(t *testing.T) {
	ts := newTestAPI(t)
	c := newAPIClient(ts.URL, "", 5*time.Second)

	_, err := c.Verify(context.Background(), "   ", nil)
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Status)
	assert.Equal(t, "text field is required", apiErr.Message)

	_, err = c.GetSession(context.Background(), "nope")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Status)
}

func TestRunChat(t *testing.T) {
	ts := newTestAPI(t)
	c := newAPIClient(ts.URL, "en", 5*time.Second)

	var out bytes.Buffer
	in := strings.NewReader("hello\n\n/history\n/lang ru\nпривет\n/quit\nnever sent\n")
	require.NoError(t, runChat(context.Background(), c, in, &out))

	got := out.String()
	assert.Contains(t, got, "you: hello")
	assert.Contains(t, got, "veritas: echo: hello")
	assert.Contains(t, got, "veritas: echo: привет")
	assert.NotContains(t, got, "never sent")

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Zero(t, h.ChatSessions, "session is deleted on exit")
}
