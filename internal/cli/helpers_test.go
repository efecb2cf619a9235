package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const (
	buildCUE        = "../compiler/testdata/build.cue"
	buildStar       = "../starlarkconf/testdata/build.star"
	buildHCL        = "../hclconf/testdata/build.hcl"
	greeterHCL      = "../harness/testdata/descriptors/greeter.hcl"
	unknownHCL      = "../harness/testdata/descriptors/unknown.hcl"
	pluginsDir      = "../harness/testdata/plugins"
	resolverCatalog = "../harness/testdata/catalog.yaml"
	scenariosDir    = "../harness/testdata/scenarios"
)

// execute runs cmd with args and returns what it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	if args == nil {
		args = []string{} // nil makes cobra read os.Args
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// response is CLIResponse with the payload left undecoded.
type response struct {
	Status       string          `json:"status"`
	Data         json.RawMessage `json:"data"`
	Error        *CLIError       `json:"error"`
	EvaluationID string          `json:"evaluation_id"`
}

func decodeResponse(t *testing.T, out string) response {
	t.Helper()
	var resp response
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}

func decodeData(t *testing.T, resp response, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Data, v), "data: %s", resp.Data)
}
