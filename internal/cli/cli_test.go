package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haowjy/meridian-tutor/internal/config"
)

func setup(t *testing.T) string {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, k := range []string{config.EnvConfigPath, config.EnvAddr, config.EnvLogLevel, config.EnvEnableLorem, config.EnvOllamaHost, config.EnvOpenAIAPIKey, config.EnvAnthropicAPIKey} {
		t.Setenv(k, "")
	}

	path := filepath.Join(t.TempDir(), "tutor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: error
providers:
  lorem:
    enabled: true
    model: lorem-instant
    params:
      max_tokens: 6
`), 0o600))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestExplainCommand_Stdin(t *testing.T) {
	cfgPath := setup(t)

	out, err := run(t, "print('hi')\n", "explain", "--config", cfgPath, "--lang", "py", "--model", "lorem")
	require.NoError(t, err)
	assert.Len(t, strings.Fields(out), 6)
}

func TestExplainCommand_File(t *testing.T) {
	cfgPath := setup(t)
	src := filepath.Join(t.TempDir(), "main.c")
	require.NoError(t, os.WriteFile(src, []byte("int main(void) { return 0; }\n"), 0o600))

	out, err := run(t, "", "explain", "-c", cfgPath, "-l", "c", "-m", "Lorem", src)
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))
}

func TestExplainCommand_Errors(t *testing.T) {
	cfgPath := setup(t)

	_, err := run(t, "x", "explain", "--config", cfgPath, "--lang", "rust", "--model", "lorem")
	assert.ErrorContains(t, err, "unsupported language")

	_, err = run(t, "x", "explain", "--config", cfgPath, "--model", "GPT")
	assert.ErrorContains(t, err, config.EnvOpenAIAPIKey)

	_, err = run(t, "", "explain", "--config", cfgPath, "--model", "lorem", filepath.Join(t.TempDir(), "missing.py"))
	assert.Error(t, err)
}

func TestModelsCommand(t *testing.T) {
	cfgPath := setup(t)

	out, err := run(t, "", "models", "--config", cfgPath)
	require.NoError(t, err)

	assert.Contains(t, out, "MODEL")
	assert.Contains(t, out, "GPT")
	assert.Contains(t, out, "unavailable: OPENAI_API_KEY is not set")
	assert.Contains(t, out, "lorem-instant")
}
