package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/buildcfg/internal/loader"
)

func TestCompileText(t *testing.T) {
	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), buildCUE)
	require.NoError(t, err)

	assert.Contains(t, out, "OK Compiled")
	assert.Contains(t, out, "1 plugin(s)")
	assert.Contains(t, out, "2 mutation(s)")
	assert.Contains(t, out, "Script hash: ")
	assert.Contains(t, out, "apply_plugin")
	assert.Contains(t, out, "java")
}

func TestCompileJSON(t *testing.T) {
	tests := []struct {
		path    string
		surface loader.Surface
	}{
		{buildCUE, loader.SurfaceCUE},
		{buildHCL, loader.SurfaceHCL},
		{buildStar, loader.SurfaceStarlark},
	}
	for _, tt := range tests {
		t.Run(string(tt.surface), func(t *testing.T) {
			out, err := execute(t, NewCompileCommand(&RootOptions{Format: "json"}), tt.path)
			require.NoError(t, err)

			resp := decodeResponse(t, out)
			assert.Equal(t, "ok", resp.Status)

			var result CompilationResult
			decodeData(t, resp, &result)
			assert.Equal(t, tt.path, result.Source)
			assert.Equal(t, tt.surface, result.Surface)
			assert.Len(t, result.ScriptHash, 64)

			var decls []map[string]any
			require.NoError(t, json.Unmarshal(result.Declarations, &decls))
			assert.NotEmpty(t, decls)
		})
	}
}

func TestCompileDoesNotNeedPlugins(t *testing.T) {
	// greeter is only known to a plugin catalog; compiling never looks it up
	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), greeterHCL)
	require.NoError(t, err)
	assert.Contains(t, out, "greeter")
}

func TestCompileOutputToFile(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "compiled.json")

	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), buildCUE, "--output", outputFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote declarations to "+outputFile)

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)

	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, loader.SurfaceCUE, result.Surface)
	assert.NotEmpty(t, result.Declarations)
}

func TestCompileOutputWriteFailure(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "missing", "dir", "compiled.json")
	blocker := filepath.Dir(filepath.Dir(outputFile))
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0644))

	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "json"}), buildCUE, "-o", outputFile)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	resp := decodeResponse(t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeWriteFailed, resp.Error.Code)
}

func TestCompileHashIsStable(t *testing.T) {
	hash := func(path string) string {
		out, err := execute(t, NewCompileCommand(&RootOptions{Format: "json"}), path)
		require.NoError(t, err)
		var result CompilationResult
		decodeData(t, decodeResponse(t, out), &result)
		return result.ScriptHash
	}

	assert.Equal(t, hash(buildCUE), hash(buildCUE))
}

func TestCompileNonExistentFile(t *testing.T) {
	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), "/nonexistent/build.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeNotFound+"]")
}

func TestCompileMalformedCoordinate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.star")
	require.NoError(t, os.WriteFile(path, []byte(`dependency("implementation", "guava")`+"\n"), 0644))

	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "json"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	resp := decodeResponse(t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeEvaluationFailed, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "MALFORMED_COORDINATE")
}
