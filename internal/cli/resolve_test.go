package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/buildcfg/internal/ir"
	"github.com/roach88/buildcfg/internal/settings"
)

func TestResolveText(t *testing.T) {
	out, err := execute(t, NewResolveCommand(&RootOptions{Format: "text"}), buildCUE, "--catalog", resolverCatalog)
	require.NoError(t, err)

	assert.Contains(t, out, "OK Resolved")
	assert.Contains(t, out, "testImplementation")
	assert.Contains(t, out, "org.junit.jupiter:junit-jupiter:5.10.0 from mavenCentral via org.junit:junit-bom:5.10.0")
	assert.Contains(t, out, "org.junit.platform:junit-platform-launcher:1.10.0 from mavenCentral")
}

func TestResolveJSON(t *testing.T) {
	out, err := execute(t, NewResolveCommand(&RootOptions{Format: "json"}), buildCUE, "--catalog", resolverCatalog)
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.EvaluationID)

	var scopes []ScopeResolution
	decodeData(t, resp, &scopes)
	require.NotEmpty(t, scopes)

	byScope := map[ir.Scope]ScopeResolution{}
	for _, sr := range scopes {
		byScope[sr.Scope] = sr
	}
	runtime, ok := byScope["testRuntimeOnly"]
	require.True(t, ok, "scopes: %+v", scopes)
	var resolved []string
	for _, a := range runtime.Artifacts {
		assert.Equal(t, "mavenCentral", a.Repository)
		resolved = append(resolved, a.Resolved.String())
	}
	assert.Contains(t, resolved, "org.junit.platform:junit-platform-launcher:1.10.0")
}

func TestResolveCatalogFromSettings(t *testing.T) {
	s := settings.Default()
	s.Catalog = resolverCatalog
	opts := &RootOptions{Format: "text", Settings: s}

	out, err := execute(t, NewResolveCommand(opts), buildCUE)
	require.NoError(t, err)
	assert.Contains(t, out, "OK Resolved")
}

func TestResolveWithoutCatalog(t *testing.T) {
	out, err := execute(t, NewResolveCommand(&RootOptions{Format: "json"}), buildCUE)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeResolverCatalog, resp.Error.Code)
}

func TestResolveBadCatalog(t *testing.T) {
	catalog := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(catalog, []byte("repositories:\n  mavenCentral:\n    mirrors: true\n"), 0644))

	_, err := execute(t, NewResolveCommand(&RootOptions{Format: "text"}), buildCUE, "--catalog", catalog)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestResolveUnavailableModule(t *testing.T) {
	catalog := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(catalog, []byte("repositories:\n  mavenCentral:\n    modules: {}\n"), 0644))

	out, err := execute(t, NewResolveCommand(&RootOptions{Format: "json"}), buildCUE, "--catalog", catalog)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeResolutionFailed, resp.Error.Code)
}
