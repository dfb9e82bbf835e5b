package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scenepart "github.com/arloliu/scenepart"
	"github.com/arloliu/scenepart/protocol"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(t.Context())

	return out.String(), err
}

// smallScene keeps run and plan tests fast.
var smallScene = []string{"--spheres", "64", "--sphere-shards", "6", "--volume-dim", "0"}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "scenepart", cmd.Use)
	assert.Contains(t, cmd.Long, "sentinel")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"run", "plan", "session"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			require.NotNil(t, sub)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "session", "--format", "yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("boom")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))

	inner := errors.New("no such file")
	wrapped := WrapExitError(ExitCommandError, "failed to load config", inner)
	assert.ErrorIs(t, wrapped, inner)
	assert.Equal(t, "failed to load config: no such file", wrapped.Error())
}

func TestSessionCommand(t *testing.T) {
	out, err := execute(t, "session", "-n", "3")
	require.NoError(t, err)

	lines := strings.Fields(out)
	require.Len(t, lines, 3)
	for _, id := range lines {
		_, err := uuid.Parse(id)
		require.NoError(t, err)
	}
	require.NotEqual(t, lines[0], lines[1])

	out, err = execute(t, "session", "--format", "json")
	require.NoError(t, err)

	var resp map[string][]string
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp["sessions"], 1)

	_, err = execute(t, "session", "-n", "0")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPlanCommand(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		args := append([]string{"plan", "--ranks", "3", "--groups", "6", "--format", "json"}, smallScene...)
		out, err := execute(t, args...)
		require.NoError(t, err)

		var report planReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		require.Equal(t, "lpt", report.Strategy)
		require.Equal(t, 6, report.Items)
		require.Equal(t, 3, report.Workers)
		require.Len(t, report.Groups, 6)
		require.InDelta(t, report.TotalCost, sumCosts(report.Groups), 1e-9)
		for _, g := range report.Groups {
			require.Equal(t, []int{g.ID / 2}, g.Ranks)
		}
	})

	t.Run("text", func(t *testing.T) {
		args := append([]string{"plan", "--ranks", "2", "--groups", "2"}, smallScene...)
		out, err := execute(t, args...)
		require.NoError(t, err)
		require.Contains(t, out, "strategy lpt")
		require.Contains(t, out, "GROUP")
	})

	t.Run("passive head shifts owners", func(t *testing.T) {
		args := append([]string{"plan", "--ranks", "3", "--groups", "2", "--passive-head", "--format", "json"}, smallScene...)
		out, err := execute(t, args...)
		require.NoError(t, err)

		var report planReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		require.Equal(t, 2, report.Workers)
		require.Equal(t, []int{1}, report.Groups[0].Ranks)
		require.Equal(t, []int{2}, report.Groups[1].Ranks)
	})

	t.Run("unsupported mapping", func(t *testing.T) {
		args := append([]string{"plan", "--ranks", "3", "--groups", "4"}, smallScene...)
		_, err := execute(t, args...)
		require.ErrorIs(t, err, scenepart.ErrUnsupportedMapping)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("partial mapping", func(t *testing.T) {
		args := append([]string{"plan", "--ranks", "3", "--groups", "4", "--allow-partial-mapping", "--format", "json"}, smallScene...)
		out, err := execute(t, args...)
		require.NoError(t, err)

		var report planReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		require.Equal(t, []int{0, 2}, report.Groups[0].Ranks)
	})
}

func sumCosts(groups []planGroup) float64 {
	total := 0.0
	for _, g := range groups {
		total += g.Cost
	}

	return total
}

func TestRunCommand_Local(t *testing.T) {
	args := append([]string{"run", "--local", "3", "--groups", "3", "--frames", "2", "--format", "json"}, smallScene...)
	out, err := execute(t, args...)
	require.NoError(t, err)

	var report jobReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Equal(t, "local", report.Session)
	require.Equal(t, 3, report.Ranks)
	require.Equal(t, 3, report.Groups)
	require.Equal(t, 2, report.Frames)
	require.Len(t, report.Assignment, 3)

	// resize, lights, transfer function, then camera+reset+render per frame.
	require.Equal(t, uint32(protocol.SentinelBase)+9, report.Sentinel)

	// Spheres sit on a shell of radius 10.
	require.InDelta(t, -10, report.BoundsMin[1], 0.5)
	require.InDelta(t, 10, report.BoundsMax[1], 0.5)
}

func TestRunCommand_Screenshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	args := append([]string{
		"run", "--local", "2", "--groups", "2", "--passive-head", "--allow-partial-mapping",
		"--frames", "1", "--width", "16", "--height", "8", "--screenshot", path,
	}, smallScene...)
	out, err := execute(t, args...)
	require.NoError(t, err)
	require.Contains(t, out, "screenshot:")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	require.Equal(t, 16, img.Bounds().Dx())
	require.Equal(t, 8, img.Bounds().Dy())
}

func TestRunCommand_Embedded(t *testing.T) {
	args := append([]string{
		"run", "--embedded", "--size", "2", "--groups", "2", "--frames", "1", "--format", "json",
	}, smallScene...)
	out, err := execute(t, args...)
	require.NoError(t, err)

	var report jobReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Equal(t, 2, report.Ranks)
	_, err = uuid.Parse(report.Session)
	require.NoError(t, err, "embedded runs mint a session id")
}

func TestRunCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"local and embedded", []string{"run", "--local", "2", "--embedded"}, ExitCommandError},
		{"negative local", []string{"run", "--local", "-1"}, ExitCommandError},
		{"bad strategy", []string{"run", "--local", "2", "--strategy", "best"}, ExitCommandError},
		{"bad log level", []string{"run", "--local", "1", "--log-level", "chatty"}, ExitCommandError},
		{"remote without session", []string{"run", "--size", "2"}, ExitCommandError},
		{"missing config", []string{"run", "--config", "/nonexistent/scenepart.yaml"}, ExitCommandError},
		{"unsupported mapping", append([]string{"run", "--local", "3", "--groups", "4"}, smallScene...), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, GetExitCode(err))
		})
	}
}

func TestRunCommand_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenepart.yaml")
	require.NoError(t, os.WriteFile(path, []byte("groups: 2\nstrategy: round_robin\nlogLevel: warn\n"), 0o600))

	args := append([]string{"run", "--config", path, "--local", "2", "--frames", "0", "--format", "json"}, smallScene...)
	out, err := execute(t, args...)
	require.NoError(t, err)

	var report jobReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Equal(t, "round_robin", report.Strategy)
	require.Equal(t, 2, report.Groups)
}
