package starlarkconf

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/buildcfg/internal/compiler"
	"github.com/roach88/buildcfg/internal/engine"
	"github.com/roach88/buildcfg/internal/ir"
	"github.com/roach88/buildcfg/internal/plugin"
)

func evaluate(t *testing.T, src string) *engine.Result {
	t.Helper()
	script, err := Exec("inline.star", []byte(src))
	require.NoError(t, err)
	res, err := engine.New(plugin.NewDefaultRegistry()).Evaluate(script)
	require.NoError(t, err)
	return res
}

func property(t *testing.T, res *engine.Result, task, key string) ir.Value {
	t.Helper()
	tk, ok := res.Graph.Task(task)
	require.True(t, ok, "task %s", task)
	v, _ := tk.Property(key)
	return v
}

func TestLoadFile(t *testing.T) {
	script, err := LoadFile("testdata/build.star")
	require.NoError(t, err)

	assert.Equal(t, "testdata/build.star", script.Source)
	var kinds []ir.DeclKind
	for _, d := range script.Declarations {
		kinds = append(kinds, d.Kind)
	}
	assert.Equal(t, []ir.DeclKind{
		ir.DeclSetIdentity,
		ir.DeclApplyPlugin,
		ir.DeclAddRepository,
		ir.DeclAddPlatform,
		ir.DeclAddDependency,
		ir.DeclAddPlatform,
		ir.DeclAddDependency,
		ir.DeclMutateTasks,
		ir.DeclMutateTasks,
	}, kinds)

	d := script.Declarations
	assert.Equal(t, "1.0-SNAPSHOT", *d[0].Version)
	assert.Equal(t, ir.MavenCentral(), *d[2].Repository)
	assert.True(t, d[4].Dependency.Managed)
	assert.Equal(t, ir.TaskFilter{Name: "test"}, d[7].Mutation.Filter)
	assert.Equal(t, "use_junit", d[7].Mutation.Description)
	assert.Equal(t, ir.TaskFilter{Type: "JavaCompile"}, d[8].Mutation.Filter)
	assert.NotNil(t, d[8].Mutation.Func)

	assert.True(t, strings.HasPrefix(d[1].Origin, "testdata/build.star:3:"), d[1].Origin)
	assert.True(t, strings.HasPrefix(d[8].Origin, "testdata/build.star:20:"), d[8].Origin)
}

func TestLoadFileMatchesCUE(t *testing.T) {
	fromStar, err := LoadFile("testdata/build.star")
	require.NoError(t, err)
	fromCUE, err := compiler.LoadDescriptorFile("../compiler/testdata/build.cue")
	require.NoError(t, err)

	ev := engine.New(plugin.NewDefaultRegistry())
	a, err := ev.Evaluate(fromStar)
	require.NoError(t, err)
	b, err := ev.Evaluate(fromCUE)
	require.NoError(t, err)

	assert.Equal(t, b.Fingerprint, a.Fingerprint)
	assert.Equal(t, ir.Strings("-Xlint:unchecked"), property(t, a, "compileJava", "compilerArgs"))
	assert.Equal(t, ir.String("junit-platform"), property(t, a, "test", "testFramework"))
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("testdata/nope.star")
	assert.Error(t, err)
}

func TestTaskMethods(t *testing.T) {
	res := evaluate(t, `
plugin("application")

def configure_run(task):
    task.set("kind", task.type)
    task.set("mainClass", "app.Main")
    task.set("env", {"DEBUG": "1", "RETRIES": 3, "TRACE": False})
    task.append("args", ["--port", "8080"])
    task.append("args", "--verbose")
    task.remove("args", "--port")
    task.set("seen", task.get("mainClass") + "@" + task.name)
    task.set("fallback", task.get("missing", "none"))

task_named("run", configure_run)
`)
	assert.Equal(t, ir.String("JavaExec"), property(t, res, "run", "kind"))
	assert.Equal(t, ir.String("app.Main"), property(t, res, "run", "mainClass"))
	assert.Equal(t, ir.Map{"DEBUG": ir.String("1"), "RETRIES": ir.Int(3), "TRACE": ir.Bool(false)}, property(t, res, "run", "env"))
	assert.Equal(t, ir.Strings("8080", "--verbose"), property(t, res, "run", "args"))
	assert.Equal(t, ir.String("app.Main@run"), property(t, res, "run", "seen"))
	assert.Equal(t, ir.String("none"), property(t, res, "run", "fallback"))
}

func TestTasksMatching(t *testing.T) {
	res := evaluate(t, `
plugin("java")

def tag(task):
    task.set("tagged", True)

tasks_matching(tag, type = "JavaCompile")
tasks_matching(lambda task: task.unset("tagged"), name = "compileTestJava")
`)
	assert.Equal(t, ir.Bool(true), property(t, res, "compileJava", "tagged"))
	assert.Nil(t, property(t, res, "compileTestJava", "tagged"))
	assert.Nil(t, property(t, res, "test", "tagged"))
	require.Len(t, res.Mutations, 2)
	assert.Equal(t, "lambda", res.Mutations[1].Description)
}

func TestMutationRunsPerEvaluation(t *testing.T) {
	script, err := Exec("inline.star", []byte(`
plugin("java")
tasks_with_type("JavaCompile", lambda task: task.append("compilerArgs", "-g"))
`))
	require.NoError(t, err)

	ev := engine.New(plugin.NewDefaultRegistry())
	var wg sync.WaitGroup
	results := make([]*engine.Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := ev.Evaluate(script)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, ir.Strings("-g"), property(t, res, "compileJava", "compilerArgs"))
		assert.Equal(t, results[0].Fingerprint, res.Fingerprint)
	}
}

func TestMutationFailure(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"script error", `task.set("ratio", 1 // 0)`},
		{"none property", `task.set("ratio", None)`},
		{"append to non-list", `task.append("encoding", "x")`},
		{"unknown platform", `task.use_platform("spock")`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "plugin(\"java\")\n\ndef broken(task):\n    " + tt.body + "\n\ntask_named(\"compileJava\", broken)\n"
			script, err := Exec("inline.star", []byte(src))
			require.NoError(t, err)

			_, err = engine.New(plugin.NewDefaultRegistry()).Evaluate(script)
			require.Error(t, err)
			assert.Equal(t, ir.ErrCodeMutationFailed, ir.CodeOf(err))
			assert.Contains(t, err.Error(), "compileJava")
		})
	}
}

func TestExecErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantCode ir.ErrorCode
		wantErr  string
	}{
		{"malformed coordinate", "dependency(\"implementation\", \"a:b\")", ir.ErrCodeMalformedCoordinate, "inline.star:1:"},
		{"versionless unmanaged", "platform(\"test\", \"org.junit:junit-bom\")", ir.ErrCodeMalformedCoordinate, "junit-bom"},
		{"empty plugin", "plugin(\"\")", ir.ErrCodeInvalidDeclaration, "inline.star:1:"},
		{"empty project", "project()", ir.ErrCodeInvalidDeclaration, "inline.star:1:"},
		{"bad arguments", "plugin(1)", "", "plugin"},
		{"syntax", "plugin(", "", "inline.star"},
		{"not a function", "task_named(\"test\", 3)", "", "task_named"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Exec("inline.star", []byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, ir.CodeOf(err))
			}
		})
	}
}

func TestBuiltinsOnlyAtTopLevel(t *testing.T) {
	script, err := Exec("inline.star", []byte("plugin(\"java\")\ntask_named(\"test\", lambda task: plugin(\"base\"))\n"))
	require.NoError(t, err)

	_, err = engine.New(plugin.NewDefaultRegistry()).Evaluate(script)
	require.Error(t, err)
	assert.Equal(t, ir.ErrCodeMutationFailed, ir.CodeOf(err))
	assert.Contains(t, err.Error(), "top level")
}

func TestPrintGoesToLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	_, err := Exec("inline.star", []byte(`print("hello from the script")`), WithLogger(logger))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "hello from the script")
	assert.Contains(t, buf.String(), "thread=main")
}
