package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/buildcfg/internal/ir"
	"github.com/roach88/buildcfg/internal/plugin"
	"github.com/roach88/buildcfg/internal/project"
	"github.com/roach88/buildcfg/internal/resolve"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEvaluator(t *testing.T, opts ...Option) *Evaluator {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger()), WithIDGenerator(NewFixedGenerator("eval-1"))}, opts...)
	return New(plugin.NewDefaultRegistry(), opts...)
}

func coord(t *testing.T, s string) ir.Coordinate {
	t.Helper()
	c, err := ir.ParseCoordinate(s)
	require.NoError(t, err)
	return c
}

func managed(t *testing.T, s string) ir.Coordinate {
	t.Helper()
	c, err := ir.ParseManagedCoordinate(s)
	require.NoError(t, err)
	return c
}

func appendArg(arg string) ir.EffectSpec {
	return ir.EffectSpec{Op: ir.OpAppend, Property: "compilerArgs", Value: ir.String(arg)}
}

func TestEvaluateJavaLibraryScenario(t *testing.T) {
	script := ir.NewScript("build.cue",
		ir.ApplyPlugin(plugin.JavaLibrary).At("build.cue:1:1"),
		ir.AddRepository(ir.MavenCentral()).At("build.cue:2:1"),
		ir.AddDependency(coord(t, "org.junit:junit-jupiter:5.10.0"), ir.ScopeTest).At("build.cue:3:1"),
		ir.MutateTasks(ir.TaskFilter{Type: "JavaCompile"}, appendArg("-Xlint:unchecked")).At("build.cue:4:1"),
	)

	res, err := newEvaluator(t).Evaluate(script)
	require.NoError(t, err)

	task, ok := res.Graph.Task("compileJava")
	require.True(t, ok)
	assert.Equal(t, "JavaCompile", task.Type)
	args, _ := task.Property("compilerArgs")
	assert.Equal(t, ir.Strings("-Xlint:unchecked"), args)

	count := 0
	for _, name := range res.Graph.Names() {
		if name == "compileJava" {
			count++
		}
	}
	assert.Equal(t, 1, count)

	assert.Equal(t, []ir.Coordinate{coord(t, "org.junit:junit-jupiter:5.10.0")}, res.Descriptor.Coordinates(ir.ScopeTest))
	assert.Equal(t, []ir.Repository{ir.MavenCentral()}, res.Descriptor.Repositories())

	require.Len(t, res.Mutations, 1)
	assert.Equal(t, []string{"compileJava", "compileTestJava"}, res.Mutations[0].Matched)
	assert.Equal(t, "eval-1", res.ID)
	assert.Equal(t, "build.cue", res.Source)
	assert.NotEmpty(t, res.Fingerprint)
}

func TestEvaluateUnknownPlugin(t *testing.T) {
	script := ir.NewScript("build.cue",
		ir.ApplyPlugin(plugin.Java).At("build.cue:1:1"),
		ir.ApplyPlugin("kotlin-multiplatform").At("build.cue:2:1"),
	)

	res, err := newEvaluator(t).Evaluate(script)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, ir.IsUnknownPlugin(err))

	var ierr *ir.Error
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, "build.cue:2:1", ierr.Origin)
	assert.Equal(t, "kotlin-multiplatform", ierr.Subject)
}

func TestEvaluateConflictingTaskTypes(t *testing.T) {
	reg := plugin.NewRegistry()
	require.NoError(t, reg.Register(ir.PluginDefinition{
		ID:    "lifecycle",
		Tasks: []ir.TaskContribution{{Name: "build", Type: "Lifecycle"}},
	}))
	require.NoError(t, reg.Register(ir.PluginDefinition{
		ID:    "docker",
		Tasks: []ir.TaskContribution{{Name: "build", Type: "DockerBuild"}},
	}))

	script := ir.NewScript("build.cue",
		ir.ApplyPlugin("lifecycle").At("build.cue:1:1"),
		ir.ApplyPlugin("docker").At("build.cue:2:1"),
	)
	res, err := New(reg, WithLogger(quietLogger())).Evaluate(script)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, ir.IsConflictingTask(err))

	var ierr *ir.Error
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, "build", ierr.Subject)
	assert.Equal(t, "build.cue:2:1", ierr.Origin)
	assert.Contains(t, ierr.Message, "lifecycle")
	assert.Contains(t, ierr.Message, "docker")
}

func TestEvaluateRepeatedApplyIsIdempotent(t *testing.T) {
	e := newEvaluator(t)

	once, err := e.Evaluate(ir.NewScript("", ir.ApplyPlugin(plugin.Java)))
	require.NoError(t, err)
	twice, err := e.Evaluate(ir.NewScript("",
		ir.ApplyPlugin(plugin.Java),
		ir.ApplyPlugin(plugin.Java),
	))
	require.NoError(t, err)

	assert.Equal(t, once.Graph.Snapshot(), twice.Graph.Snapshot())
	assert.Equal(t, once.Fingerprint, twice.Fingerprint)
	assert.Equal(t, []string{plugin.Base, plugin.Java}, twice.Descriptor.PluginIDs())
}

func TestEvaluateMutationsRunInDeclarationOrder(t *testing.T) {
	filter := ir.TaskFilter{Name: "compileJava"}
	script := ir.NewScript("",
		ir.ApplyPlugin(plugin.Java),
		ir.MutateTasks(filter, ir.EffectSpec{Op: ir.OpSet, Property: "P", Value: ir.Int(1)}),
		ir.MutateTasks(filter, ir.EffectSpec{Op: ir.OpSet, Property: "P", Value: ir.Int(2)}),
	)

	res, err := newEvaluator(t).Evaluate(script)
	require.NoError(t, err)

	task, _ := res.Graph.Task("compileJava")
	p, _ := task.Property("P")
	assert.Equal(t, ir.Int(2), p)
	require.Len(t, res.Mutations, 2)
	assert.Less(t, res.Mutations[0].Seq, res.Mutations[1].Seq)
}

func TestEvaluateMutationBeforeApplySeesClosedTaskSet(t *testing.T) {
	// the mutation is declared before any plugin contributes a JavaCompile task
	script := ir.NewScript("",
		ir.MutateTasks(ir.TaskFilter{Type: "JavaCompile"}, appendArg("-parameters")),
		ir.ApplyPlugin(plugin.Java),
	)

	res, err := newEvaluator(t).Evaluate(script)
	require.NoError(t, err)

	for _, task := range res.Graph.TasksOfType("JavaCompile") {
		args, _ := task.Property("compilerArgs")
		assert.Equal(t, ir.Strings("-parameters"), args, task.Name)
	}
	assert.Len(t, res.Graph.TasksOfType("JavaCompile"), 2)
}

func TestEvaluateZeroMatchMutationIsNoop(t *testing.T) {
	script := ir.NewScript("",
		ir.ApplyPlugin(plugin.Base),
		ir.MutateTasks(ir.TaskFilter{Type: "JavaCompile"}, appendArg("-g")),
	)
	res, err := newEvaluator(t).Evaluate(script)
	require.NoError(t, err)
	require.Len(t, res.Mutations, 1)
	assert.Empty(t, res.Mutations[0].Matched)
}

func TestEvaluateLogsThroughConfiguredLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	script := ir.NewScript("",
		ir.ApplyPlugin(plugin.Base),
		ir.MutateTasks(ir.TaskFilter{Type: "JavaCompile"}, appendArg("-g")),
	)
	res, err := New(plugin.NewDefaultRegistry(), WithLogger(logger)).Evaluate(script)
	require.NoError(t, err)
	_, err = ResolveDependencies(context.Background(), res, resolverFunc(func(context.Context, resolve.Request) (*resolve.Resolution, error) {
		return nil, nil
	}))
	require.NoError(t, err)

	out := buf.String()
	for _, msg := range []string{"plugin applied", "task graph materialized", "mutation matched no tasks", "resolving dependencies"} {
		assert.Contains(t, out, `"msg":"`+msg+`"`)
	}
}

func TestEvaluateFunctionMutation(t *testing.T) {
	var seen []string
	script := ir.NewScript("",
		ir.ApplyPlugin(plugin.JUnitPlatform),
		ir.MutateTasksFunc(ir.TaskFilter{Type: "Test"}, "fork tests", func(task ir.TaskInfo, props ir.Map) error {
			seen = append(seen, task.Name)
			props["maxParallelForks"] = ir.Int(4)
			return nil
		}),
	)
	res, err := newEvaluator(t).Evaluate(script)
	require.NoError(t, err)

	assert.Equal(t, []string{"test"}, seen)
	task, _ := res.Graph.Task("test")
	forks, _ := task.Property("maxParallelForks")
	assert.Equal(t, ir.Int(4), forks)
	framework, _ := task.Property("testFramework")
	assert.Equal(t, ir.String("junit-platform"), framework)
	assert.Equal(t, "fork tests", res.Mutations[0].Description)
}

func TestEvaluateMutationFailure(t *testing.T) {
	script := ir.NewScript("build.cue",
		ir.ApplyPlugin(plugin.Java).At("build.cue:1:1"),
		ir.MutateTasks(ir.TaskFilter{Name: "compileJava"},
			ir.EffectSpec{Op: ir.OpAppend, Property: "encoding", Value: ir.String("x")}).At("build.cue:2:1"),
	)
	res, err := newEvaluator(t).Evaluate(script)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, ir.IsCode(err, ir.ErrCodeMutationFailed))

	var ierr *ir.Error
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, "compileJava", ierr.Subject)
	assert.Equal(t, "build.cue:2:1", ierr.Origin)
}

func TestEvaluateUnknownPlatformFailsAtDeclaration(t *testing.T) {
	script := ir.NewScript("build.cue",
		ir.ApplyPlugin(plugin.Java).At("build.cue:1:1"),
		ir.MutateTasks(ir.TaskFilter{Name: "test"},
			ir.EffectSpec{Op: ir.OpUsePlatform, Platform: "spock"}).At("build.cue:5:3"),
	)
	_, err := newEvaluator(t).Evaluate(script)
	require.Error(t, err)
	assert.True(t, ir.IsCode(err, ir.ErrCodeUnknownPlatform))

	var ierr *ir.Error
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, "build.cue:5:3", ierr.Origin)
}

func TestEvaluateUsePlatform(t *testing.T) {
	script := ir.NewScript("",
		ir.ApplyPlugin(plugin.Java),
		ir.MutateTasks(ir.TaskFilter{Name: "test"}, ir.EffectSpec{Op: ir.OpUsePlatform, Platform: "junit5"}),
	)
	res, err := newEvaluator(t).Evaluate(script)
	require.NoError(t, err)

	task, _ := res.Graph.Task("test")
	framework, _ := task.Property("testFramework")
	assert.Equal(t, ir.String("junit-platform"), framework)
}

func TestEvaluateDependencyLastWriteWins(t *testing.T) {
	script := ir.NewScript("",
		ir.ApplyPlugin(plugin.Java),
		ir.AddDependency(coord(t, "com.google.guava:guava:32.1.3-jre"), ir.ScopeCompile),
		ir.AddDependency(coord(t, "org.slf4j:slf4j-api:2.0.9"), ir.ScopeCompile),
		ir.AddDependency(coord(t, "com.google.guava:guava:33.0.0-jre"), "implementation"),
	)
	res, err := newEvaluator(t).Evaluate(script)
	require.NoError(t, err)

	assert.Equal(t, []ir.Coordinate{
		coord(t, "com.google.guava:guava:33.0.0-jre"),
		coord(t, "org.slf4j:slf4j-api:2.0.9"),
	}, res.Descriptor.Coordinates(ir.ScopeCompile))
}

func TestEvaluateDependencyPolicies(t *testing.T) {
	script := func() *ir.Script {
		return ir.NewScript("",
			ir.ApplyPlugin(plugin.Java),
			ir.AddDependency(coord(t, "org.slf4j:slf4j-api:2.0.12"), ir.ScopeCompile),
			ir.AddDependency(coord(t, "org.slf4j:slf4j-api:1.7.36"), ir.ScopeCompile),
		)
	}

	res, err := newEvaluator(t, WithDependencyPolicy(project.DependencyHighestVersion)).Evaluate(script())
	require.NoError(t, err)
	assert.Equal(t, []ir.Coordinate{coord(t, "org.slf4j:slf4j-api:2.0.12")}, res.Descriptor.Coordinates(ir.ScopeCompile))

	_, err = newEvaluator(t, WithDependencyPolicy(project.DependencyFailOnConflict)).Evaluate(script())
	assert.True(t, ir.IsCode(err, ir.ErrCodeVersionConflict))
}

func TestEvaluateIdentityPolicies(t *testing.T) {
	script := ir.NewScript("",
		ir.SetIdentity(ir.Ptr("com.ivankatalenic"), ir.Ptr("1.0-SNAPSHOT")),
		ir.SetIdentity(nil, ir.Ptr("1.0")),
	)

	res, err := newEvaluator(t).Evaluate(script)
	require.NoError(t, err)
	id := res.Descriptor.Identity()
	assert.Equal(t, "com.ivankatalenic", id.GroupOr(""))
	assert.Equal(t, "1.0", id.VersionOr(""))

	_, err = newEvaluator(t, WithIdentityPolicy(project.IdentityReject)).Evaluate(script)
	assert.True(t, ir.IsCode(err, ir.ErrCodeIdentityReassigned))
}

func TestEvaluateStrictScopes(t *testing.T) {
	script := ir.NewScript("build.cue",
		ir.AddDependency(coord(t, "org.junit:junit-jupiter:5.10.0"), ir.ScopeTest).At("build.cue:1:1"),
	)

	_, err := newEvaluator(t).Evaluate(script)
	require.Error(t, err)
	assert.True(t, ir.IsCode(err, ir.ErrCodeUnknownScope))
	var ierr *ir.Error
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, "build.cue:1:1", ierr.Origin)

	res, err := newEvaluator(t, WithStrictScopes(false)).Evaluate(script)
	require.NoError(t, err)
	assert.Len(t, res.Descriptor.Coordinates(ir.ScopeTest), 1)
}

func TestEvaluateScopeBoundByLaterPlugin(t *testing.T) {
	script := ir.NewScript("",
		ir.AddDependency(coord(t, "org.slf4j:slf4j-api:2.0.9"), ir.ScopeAPI),
		ir.ApplyPlugin(plugin.JavaLibrary),
	)
	_, err := newEvaluator(t).Evaluate(script)
	require.NoError(t, err)

	// api is only bound by java-library
	_, err = newEvaluator(t).Evaluate(ir.NewScript("",
		ir.ApplyPlugin(plugin.Java),
		ir.AddDependency(coord(t, "org.slf4j:slf4j-api:2.0.9"), ir.ScopeAPI),
	))
	assert.True(t, ir.IsCode(err, ir.ErrCodeUnknownScope))
}

func TestEvaluateManagedDependencies(t *testing.T) {
	jupiter := managed(t, "org.junit.jupiter:junit-jupiter")

	_, err := newEvaluator(t).Evaluate(ir.NewScript("build.cue",
		ir.ApplyPlugin(plugin.Java).At("build.cue:1:1"),
		ir.AddManagedDependency(jupiter, ir.ScopeTest).At("build.cue:2:1"),
	))
	require.Error(t, err)
	assert.True(t, ir.IsCode(err, ir.ErrCodeMissingVersion))
	var ierr *ir.Error
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, "build.cue:2:1", ierr.Origin)

	res, err := newEvaluator(t).Evaluate(ir.NewScript("",
		ir.ApplyPlugin(plugin.Java),
		ir.AddPlatform(coord(t, "org.junit:junit-bom:5.10.0"), ir.ScopeTest),
		ir.AddManagedDependency(jupiter, ir.ScopeTest),
	))
	require.NoError(t, err)
	assert.Equal(t, []ir.Coordinate{jupiter}, res.Descriptor.Coordinates(ir.ScopeTest))
	assert.Equal(t, []ir.Coordinate{coord(t, "org.junit:junit-bom:5.10.0")}, res.Descriptor.Platforms(ir.ScopeTest))
}

func TestEvaluateVersionlessUnmanagedDependency(t *testing.T) {
	decl := ir.AddDependency(managed(t, "org.junit.jupiter:junit-jupiter"), ir.ScopeTest).At("build.cue:3:5")
	_, err := newEvaluator(t).Evaluate(ir.NewScript("", ir.ApplyPlugin(plugin.Java), decl))
	require.Error(t, err)
	assert.True(t, ir.IsMalformedCoordinate(err))
	assert.Contains(t, err.Error(), "build.cue:3:5")
}

func TestEvaluateInvalidDeclaration(t *testing.T) {
	decl := ir.Declaration{Kind: ir.DeclAddDependency, Origin: "build.cue:9:1"}
	_, err := newEvaluator(t).Evaluate(ir.NewScript("", decl))
	require.Error(t, err)
	assert.True(t, ir.IsCode(err, ir.ErrCodeInvalidDeclaration))
	assert.Contains(t, err.Error(), "build.cue:9:1")

	_, err = newEvaluator(t).Evaluate(nil)
	assert.Error(t, err)
}

func TestEvaluateFinalizesOutput(t *testing.T) {
	res, err := newEvaluator(t).Evaluate(ir.NewScript("", ir.ApplyPlugin(plugin.Java)))
	require.NoError(t, err)

	assert.True(t, res.Descriptor.Finalized())
	assert.True(t, res.Graph.Sealed())

	err = res.Descriptor.AddDependency(coord(t, "org.slf4j:slf4j-api:2.0.9"), ir.ScopeCompile)
	assert.True(t, ir.IsDescriptorFinalized(err))

	_, err = res.Graph.Mutate(project.Mutation{
		Filter: ir.TaskFilter{},
		Effect: func(ir.TaskInfo, ir.Map) error { return nil },
	})
	assert.True(t, ir.IsDescriptorFinalized(err))
}

func TestEvaluateFingerprintIsDeterministic(t *testing.T) {
	script := ir.NewScript("build.cue",
		ir.SetIdentity(ir.Ptr("com.ivankatalenic"), ir.Ptr("1.0-SNAPSHOT")),
		ir.ApplyPlugin(plugin.Java),
		ir.AddRepository(ir.MavenCentral()),
		ir.AddDependency(coord(t, "org.junit:junit-jupiter:5.10.0"), ir.ScopeTest),
		ir.MutateTasks(ir.TaskFilter{Type: "JavaCompile"}, appendArg("-Xlint:unchecked")),
	)

	e := New(plugin.NewDefaultRegistry(), WithLogger(quietLogger()))
	first, err := e.Evaluate(script)
	require.NoError(t, err)
	second, err := e.Evaluate(script)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, first.ScriptHash, second.ScriptHash)
	assert.Equal(t, first.Steps, second.Steps)

	fp, err := ir.Fingerprint(first.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, first.Fingerprint, fp)

	changed, err := e.Evaluate(ir.NewScript("build.cue",
		ir.ApplyPlugin(plugin.Java),
		ir.MutateTasks(ir.TaskFilter{Type: "JavaCompile"}, appendArg("-Werror")),
	))
	require.NoError(t, err)
	assert.NotEqual(t, first.Fingerprint, changed.Fingerprint)
}

func TestEvaluateConcurrentRuns(t *testing.T) {
	e := New(plugin.NewDefaultRegistry(), WithLogger(quietLogger()))
	script := ir.NewScript("",
		ir.ApplyPlugin(plugin.Application),
		ir.MutateTasks(ir.TaskFilter{Name: "run"}, ir.EffectSpec{Op: ir.OpSet, Property: "mainClass", Value: ir.String("app.Main")}),
	)

	const n = 16
	fingerprints := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := e.Evaluate(script)
			if assert.NoError(t, err) {
				fingerprints[i] = res.Fingerprint
			}
		}(i)
	}
	wg.Wait()

	for _, fp := range fingerprints {
		assert.Equal(t, fingerprints[0], fp)
	}
}

func TestEvaluateSteps(t *testing.T) {
	res, err := newEvaluator(t).Evaluate(ir.NewScript("",
		ir.ApplyPlugin(plugin.Java).At("a:1:1"),
		ir.AddDependency(coord(t, "org.slf4j:slf4j-api:2.0.9"), ir.ScopeCompile).At("a:2:1"),
		ir.MutateTasks(ir.TaskFilter{Name: "jar"}, ir.EffectSpec{Op: ir.OpSet, Property: "archiveExtension", Value: ir.String("zip")}).At("a:3:1"),
	))
	require.NoError(t, err)

	var kinds []string
	for i, s := range res.Steps {
		assert.Equal(t, int64(i+1), s.Seq)
		kinds = append(kinds, s.Kind)
	}
	assert.Equal(t, []string{"apply", "dependency", "mutation", "verify", "materialize", "mutate", "finalize"}, kinds)
	assert.Equal(t, "a:3:1", res.Steps[5].Origin)
}

func TestResultDependenciesFor(t *testing.T) {
	res, err := newEvaluator(t).Evaluate(ir.NewScript("",
		ir.ApplyPlugin(plugin.JavaLibrary),
		ir.AddDependency(coord(t, "com.google.guava:guava:33.0.0-jre"), ir.ScopeCompile),
		ir.AddDependency(coord(t, "org.junit:junit-jupiter:5.10.0"), ir.ScopeTest),
		ir.AddDependency(coord(t, "org.slf4j:slf4j-api:2.0.9"), ir.ScopeAPI),
	))
	require.NoError(t, err)

	assert.Equal(t, []ir.Coordinate{
		coord(t, "com.google.guava:guava:33.0.0-jre"),
		coord(t, "org.slf4j:slf4j-api:2.0.9"),
	}, res.DependenciesFor("compileJava"))
	assert.Equal(t, []ir.Coordinate{
		coord(t, "com.google.guava:guava:33.0.0-jre"),
		coord(t, "org.junit:junit-jupiter:5.10.0"),
		coord(t, "org.slf4j:slf4j-api:2.0.9"),
	}, res.DependenciesFor("test"))
	assert.Empty(t, res.DependenciesFor("clean"))
}

func junitScript(t *testing.T) *ir.Script {
	return ir.NewScript("",
		ir.ApplyPlugin(plugin.Java),
		ir.AddRepository(ir.MavenCentral()),
		ir.AddPlatform(coord(t, "org.junit:junit-bom:5.10.0"), ir.ScopeTest),
		ir.AddManagedDependency(managed(t, "org.junit.jupiter:junit-jupiter"), ir.ScopeTest),
		ir.AddDependency(coord(t, "com.google.guava:guava:33.0.0-jre"), ir.ScopeCompile),
	)
}

func TestResultRequest(t *testing.T) {
	res, err := newEvaluator(t).Evaluate(junitScript(t))
	require.NoError(t, err)

	req := res.Request()
	assert.Equal(t, []ir.Repository{ir.MavenCentral()}, req.Repositories)
	assert.Equal(t, []ir.Scope{ir.ScopeCompile, ir.ScopeTest}, req.SortedScopes())
	test := req.Scopes[ir.ScopeTest]
	assert.Empty(t, test.Dependencies)
	assert.Equal(t, []ir.Coordinate{managed(t, "org.junit.jupiter:junit-jupiter")}, test.Managed)
	assert.Equal(t, []ir.Coordinate{coord(t, "org.junit:junit-bom:5.10.0")}, test.Platforms)
}

func TestResolveDependenciesWithCatalog(t *testing.T) {
	res, err := newEvaluator(t).Evaluate(junitScript(t))
	require.NoError(t, err)

	catalog, err := resolve.LoadCatalog("../resolve/testdata/catalog.yaml")
	require.NoError(t, err)

	resolution, err := ResolveDependencies(context.Background(), res, catalog)
	require.NoError(t, err)

	test := resolution.Artifacts(ir.ScopeTest)
	require.Len(t, test, 2)
	assert.Equal(t, "org.junit:junit-bom:5.10.0", test[0].Resolved.String())
	assert.Equal(t, "org.junit.jupiter:junit-jupiter:5.10.0", test[1].Resolved.String())
	assert.Equal(t, "org.junit:junit-bom:5.10.0", test[1].Platform)
}

type resolverFunc func(ctx context.Context, req resolve.Request) (*resolve.Resolution, error)

func (f resolverFunc) Resolve(ctx context.Context, req resolve.Request) (*resolve.Resolution, error) {
	return f(ctx, req)
}

func TestResolveDependenciesErrors(t *testing.T) {
	res, err := newEvaluator(t).Evaluate(junitScript(t))
	require.NoError(t, err)

	failure := ir.NewResolutionFailure("com.google.guava:guava:33.0.0-jre", errors.New("not found"))
	_, err = ResolveDependencies(context.Background(), res, resolverFunc(func(context.Context, resolve.Request) (*resolve.Resolution, error) {
		return nil, failure
	}))
	assert.Same(t, failure, err)

	boom := errors.New("connection reset")
	_, err = ResolveDependencies(context.Background(), res, resolverFunc(func(context.Context, resolve.Request) (*resolve.Resolution, error) {
		return nil, boom
	}))
	assert.ErrorIs(t, err, boom)
	assert.NotSame(t, boom, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	catalog, err := resolve.LoadCatalog("../resolve/testdata/catalog.yaml")
	require.NoError(t, err)
	_, err = ResolveDependencies(ctx, res, catalog)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = ResolveDependencies(context.Background(), nil, catalog)
	assert.Error(t, err)
}
