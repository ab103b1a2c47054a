package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/trustlayer/internal/application/emergency"
	"github.com/bryanwahyu/trustlayer/internal/domain/analysis"
)

const testConfig = `
logging:
  level: error
analysis:
  provider: mock
  mockLatency: 1ms
contextCheck:
  stepDelay: 1ms
session:
  backend: memory
`

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// execute runs one command tree against a temp mock-provider config.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfg := writeFile(t, t.TempDir(), "config.yaml", []byte(testConfig))

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", cfg}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestChambersCommand(t *testing.T) {
	out, err := execute(t, "chambers")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 10)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.True(t, strings.HasPrefix(lines[1], "image_auth"))
}

func TestAnalyzeCommand_TextAI(t *testing.T) {
	essay := writeFile(t, t.TempDir(), "essay.txt", []byte("The committee published its annual statement on Tuesday."))

	out, err := execute(t, "analyze", essay, "--chamber", "text_ai")
	require.NoError(t, err)

	assert.Contains(t, out, "text/plain")
	assert.Contains(t, out, "AI probability:")
	assert.Contains(t, out, "Text analysis shows natural language patterns")
	assert.NotContains(t, out, "TRUSTLAYER VERIFICATION REPORT")
}

func TestAnalyzeCommand_TextAIJSON(t *testing.T) {
	essay := writeFile(t, t.TempDir(), "essay.txt", []byte("A short human essay about rivers."))

	out, err := execute(t, "analyze", essay, "--chamber", "text_ai", "--json")
	require.NoError(t, err)

	var res analysis.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, analysis.ContentText, res.ContentType)
	assert.GreaterOrEqual(t, res.AIGeneratedProbability, 15)
	assert.Less(t, res.AIGeneratedProbability, 65)
}

func TestAnalyzeCommand_RejectsZip(t *testing.T) {
	archive := writeFile(t, t.TempDir(), "archive.zip", []byte("PK\x03\x04\x14\x00\x00\x00\x08\x00"))

	out, err := execute(t, "analyze", archive, "--chamber", "image_auth")
	require.Error(t, err)
	var verr *analysis.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Please upload an Image, Video, Audio, or Text file.", verr.Message)
	assert.Empty(t, out)
}

func TestAnalyzeCommand_ModerationPrintsReport(t *testing.T) {
	post := writeFile(t, t.TempDir(), "post.txt", []byte("see you at the meetup"))

	out, err := execute(t, "analyze", post, "--chamber", "moderation")
	require.NoError(t, err)
	assert.Contains(t, out, "TRUSTLAYER VERIFICATION REPORT")
}

func TestAnalyzeCommand_UnknownChamber(t *testing.T) {
	essay := writeFile(t, t.TempDir(), "essay.txt", []byte("hello"))

	_, err := execute(t, "analyze", essay, "--chamber", "context_news")
	assert.ErrorIs(t, err, analysis.ErrUnknownChamber)
}

func TestCheckClaimCommand(t *testing.T) {
	_, err := execute(t, "check-claim", "too", "short")
	var verr *analysis.ValidationError
	assert.ErrorAs(t, err, &verr)

	out, err := execute(t, "check-claim", "The", "official", "report", "announced", "new", "evidence", "today")
	require.NoError(t, err)
	assert.Contains(t, out, "Credibility:")
	assert.Contains(t, out, "Sentiment:")
}

func TestEmergencyCommand(t *testing.T) {
	out, err := execute(t, "emergency")
	require.NoError(t, err)
	assert.Contains(t, out, emergency.FallbackMessage)
	assert.Contains(t, out, "Cybercrime Hotline")

	out, err = execute(t, "emergency", "--lat", "40.7", "--lng=-74.0")
	require.NoError(t, err)
	assert.NotContains(t, out, emergency.FallbackMessage)
	assert.Contains(t, out, "Central Police Precinct")

	_, err = execute(t, "emergency", "--lat", "123", "--lng", "0")
	assert.Error(t, err)
}
