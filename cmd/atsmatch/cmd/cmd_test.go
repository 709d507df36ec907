package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"ats-match-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, resumePath, jobPath, pretty = "", "", "", false
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestAnalyzeCommand(t *testing.T) {
	dir := t.TempDir()
	resume := writeFile(t, dir, "resume.txt", "Python developer with SQL experience")
	job := writeFile(t, dir, "job.txt", "Require 3+ years Python, SQL, and AWS. Must have strong communication skills.")

	out, err := run(t, "analyze", "--resume", resume, "--job", job)
	require.NoError(t, err)

	var result types.MatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 4, result.KeywordAnalysis.TotalJobKeywords)
	assert.InDelta(t, 50.0, result.KeywordAnalysis.MatchPercentage, 0.01)
}

func TestAnalyzeCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	empty := writeFile(t, dir, "empty.txt", "   ")

	_, err := run(t, "analyze", "--resume", empty, "--job", empty)
	assert.Error(t, err)

	_, err = run(t, "analyze", "--resume", filepath.Join(dir, "missing.txt"), "--job", empty)
	assert.Error(t, err)

	_, err = run(t, "analyze", "--resume", "-", "--job", "-")
	assert.Error(t, err)
}

func TestLexiconCheck(t *testing.T) {
	out, err := run(t, "lexicon", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "lexicon OK")

	dir := t.TempDir()
	bad := writeFile(t, dir, "synonyms.yaml", "groups: [")
	cfgFile := writeFile(t, dir, "config.yaml", "lexicon:\n  synonyms_file: "+bad+"\n")
	_, err = run(t, "lexicon", "check", "--config", cfgFile)
	assert.Error(t, err)
}
