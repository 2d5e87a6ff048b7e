package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const italian = `[Event "Repertoire"]
[Result "*"]

1. e4 e5 2. Nf3 Nc6 3. Bc4 *
`

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("REPERTOIRE_LOG_MODE", "prod")

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestImportThenQuery(t *testing.T) {
	dir := t.TempDir()
	base := []string{"--data-dir", dir, "--user", "alice"}

	out, err := run(t, italian, append([]string{"import", "--color", "white"}, base...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 games: 5 moves, 5 new")

	out, err = run(t, "", append([]string{"lines", "white"}, base...)...)
	require.NoError(t, err)
	var groups []struct {
		Fen   string `json:"fen"`
		Moves []struct {
			Edge struct {
				Move string `json:"move"`
			} `json:"edge"`
		} `json:"moves"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &groups), out)
	require.Len(t, groups, 1)
	assert.Equal(t, "e4", groups[0].Moves[0].Edge.Move)

	out, err = run(t, "", append([]string{"lines", "black"}, base...)...)
	require.NoError(t, err)
	assert.Equal(t, "null\n", out)

	out, err = run(t, "", append([]string{"lines", "recommended"}, base...)...)
	require.NoError(t, err)
	assert.Contains(t, out, `"recommendation"`)

	out, err = run(t, "", append([]string{"roadmap", "--color", "white"}, base...)...)
	require.NoError(t, err)
	var entries []struct {
		Move         string `json:"move"`
		OurMoveCount int    `json:"our_move_count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &entries), out)
	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].OurMoveCount)

	out, err = run(t, "", append([]string{"line", "3"}, base...)...)
	require.NoError(t, err)
	assert.Contains(t, out, `"move": "Nf3"`)

	_, err = run(t, "", append([]string{"line", "99"}, base...)...)
	assert.Error(t, err)

	out, err = run(t, "", append([]string{"next", "1"}, base...)...)
	require.NoError(t, err)
	var next []struct {
		PriorMoves []string `json:"prior_moves"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &next), out)
	require.Len(t, next, 1)
	assert.Equal(t, []string{"e4", "e5"}, next[0].PriorMoves)
	assert.Contains(t, out, `"move": "Nf3"`)
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, italian, "import", "--color", "green", "--data-dir", dir)
	assert.Error(t, err)

	_, err = run(t, "", "lines", "sideways", "--data-dir", dir)
	assert.Error(t, err)

	_, err = run(t, "", "roadmap", "--mode", "zigzag", "--data-dir", dir)
	assert.Error(t, err)

	_, err = run(t, "", "line", "abc", "--data-dir", dir)
	assert.Error(t, err)

	_, err = run(t, "", "next", "abc", "--data-dir", dir)
	assert.Error(t, err)

	_, err = run(t, "", "lines", "white", "--config", writeBadConfig(t))
	assert.Error(t, err)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repertoire.yaml")
	out, err := run(t, "", "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend: memory")
}

func writeBadConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  backend: carrier-pigeon\n"), 0644))
	return path
}
