package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalText(t *testing.T) {
	out, err := execute(t, NewEvalCommand(&RootOptions{Format: "text"}), buildCUE)
	require.NoError(t, err)

	assert.Contains(t, out, "OK Evaluated "+buildCUE)
	assert.Contains(t, out, "Fingerprint: ")
	assert.Contains(t, out, "Identity: group=com.ivankatalenic version=1.0-SNAPSHOT")
	assert.Contains(t, out, "Plugins: ")
	assert.Contains(t, out, "mavenCentral")
	assert.Contains(t, out, "compileJava (JavaCompile) from java")
	assert.Contains(t, out, "platform org.junit:junit-bom:5.10.0")
	assert.Contains(t, out, "name=test matched 1: test")
	assert.Contains(t, out, "type=JavaCompile matched 2")
	assert.NotContains(t, out, "Steps:")
}

func TestEvalVerboseShowsSteps(t *testing.T) {
	out, err := execute(t, NewEvalCommand(&RootOptions{Format: "text", Verbose: true}), buildCUE)
	require.NoError(t, err)

	assert.Contains(t, out, "Steps:")
	assert.Contains(t, out, "[1] identity")
	assert.Contains(t, out, "finalize")
}

func TestEvalJSON(t *testing.T) {
	out, err := execute(t, NewEvalCommand(&RootOptions{Format: "json"}), buildCUE)
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.EvaluationID)

	var eval EvalOutput
	decodeData(t, resp, &eval)
	assert.Equal(t, resp.EvaluationID, eval.ID)
	assert.Equal(t, buildCUE, eval.Source)
	assert.Len(t, eval.Fingerprint, 64)
	assert.Contains(t, string(eval.Configuration), `"junit-platform"`)
	assert.Len(t, eval.Mutations, 2)
	assert.Empty(t, eval.Steps)
	assert.Zero(t, eval.JournalSeq)
}

func TestEvalSurfacesAgree(t *testing.T) {
	fingerprint := func(path string) string {
		out, err := execute(t, NewEvalCommand(&RootOptions{Format: "json"}), path)
		require.NoError(t, err, "eval %s", path)
		var eval EvalOutput
		decodeData(t, decodeResponse(t, out), &eval)
		return eval.Fingerprint
	}

	cue := fingerprint(buildCUE)
	assert.Equal(t, cue, fingerprint(buildStar), "starlark descriptor")
}

func TestEvalIDsAreFresh(t *testing.T) {
	ids := map[string]bool{}
	for i := 0; i < 3; i++ {
		out, err := execute(t, NewEvalCommand(&RootOptions{Format: "json"}), buildCUE)
		require.NoError(t, err)
		ids[decodeResponse(t, out).EvaluationID] = true
	}
	assert.Len(t, ids, 3)
}

func TestEvalCatalogPlugins(t *testing.T) {
	out, err := execute(t, NewEvalCommand(&RootOptions{Format: "text", Plugins: []string{pluginsDir}}), greeterHCL)
	require.NoError(t, err)
	assert.Contains(t, out, "greet (Exec) from greeter")
	assert.Contains(t, out, "dependencies: com.example:toolkit:0.4.0")
}

func TestEvalUnknownPlugin(t *testing.T) {
	out, err := execute(t, NewEvalCommand(&RootOptions{Format: "json"}), greeterHCL)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeEvaluationFailed, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "UNKNOWN_PLUGIN")
	assert.Contains(t, resp.Error.Message, "greeter")
}

func TestEvalCommandErrors(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "build.txt")
	require.NoError(t, os.WriteFile(txt, []byte("plugins: []\n"), 0644))
	broken := filepath.Join(dir, "broken.cue")
	require.NoError(t, os.WriteFile(broken, []byte("plugins: [\n"), 0644))

	tests := []struct {
		name     string
		path     string
		wantCode string
	}{
		{"missing descriptor", filepath.Join(dir, "nope.cue"), ErrCodeNotFound},
		{"unknown surface", txt, ErrCodeUnknownSurface},
		{"syntax error", broken, ErrCodeParseFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewEvalCommand(&RootOptions{Format: "json"}), tt.path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			resp := decodeResponse(t, out)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestEvalMissingPluginCatalog(t *testing.T) {
	opts := &RootOptions{Format: "text", Plugins: []string{filepath.Join(t.TempDir(), "missing")}}
	out, err := execute(t, NewEvalCommand(opts), buildCUE)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodePluginCatalog+"]")
}

func TestEvalRequiresOneArgument(t *testing.T) {
	_, err := execute(t, NewEvalCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
}
