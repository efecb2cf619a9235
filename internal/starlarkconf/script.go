// Package starlarkconf runs Starlark build scripts and records the
// declarations they make. Unlike the CUE and HCL surfaces, task
// mutations are Starlark functions, called once per matching task
// while the configuration is evaluated:
//
//	project(group = "com.example", version = "1.0")
//	plugin("java")
//	maven_central()
//	platform("testImplementation", "org.junit:junit-bom:5.10.0")
//	dependency("testImplementation", "org.junit.jupiter:junit-jupiter", managed = True)
//
//	def lint(task):
//	    task.append("compilerArgs", "-Xlint:unchecked")
//
//	tasks_with_type("JavaCompile", lint)
package starlarkconf

import (
	"fmt"
	"log/slog"
	"os"

	"go.starlark.net/starlark"

	"github.com/roach88/buildcfg/internal/ir"
	"github.com/roach88/buildcfg/internal/platform"
)

const scriptKey = "buildcfg.script"

// Option configures script execution.
type Option func(*runner)

// WithLogger routes print() output to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *runner) {
		r.logger = logger
	}
}

// WithPlatformSelector sets the selector behind task.use_platform.
func WithPlatformSelector(s platform.Selector) Option {
	return func(r *runner) {
		r.selector = s
	}
}

type runner struct {
	logger   *slog.Logger
	selector platform.Selector
}

// scriptCtx collects declarations while the top level of a script runs.
type scriptCtx struct {
	runner *runner
	script *ir.Script
	err    error // first declaration error, kept typed
}

func getCtx(thread *starlark.Thread) (*scriptCtx, error) {
	ctx, ok := thread.Local(scriptKey).(*scriptCtx)
	if !ok || ctx == nil {
		return nil, fmt.Errorf("can only be called at the top level of a build script")
	}
	return ctx, nil
}

// LoadFile runs the Starlark build script at path.
func LoadFile(path string, opts ...Option) (*ir.Script, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read build script: %w", err)
	}
	return Exec(path, src, opts...)
}

// Exec runs src as a build script named filename and returns the
// declarations it made, in call order.
func Exec(filename string, src []byte, opts ...Option) (*ir.Script, error) {
	r := &runner{
		logger:   slog.Default(),
		selector: platform.NewStaticSelector(),
	}
	for _, opt := range opts {
		opt(r)
	}

	ctx := &scriptCtx{runner: r, script: &ir.Script{Source: filename}}
	thread := &starlark.Thread{Name: "main", Print: r.print}
	thread.SetLocal(scriptKey, ctx)

	_, err := starlark.ExecFile(thread, filename, src, builtins())
	if ctx.err != nil {
		return nil, ctx.err
	}
	if err != nil {
		if evalErr, ok := err.(*starlark.EvalError); ok {
			return nil, fmt.Errorf("failed to execute %s:\n%s", filename, evalErr.Backtrace())
		}
		return nil, fmt.Errorf("failed to execute %s: %w", filename, err)
	}
	return ctx.script, nil
}

func (r *runner) print(thread *starlark.Thread, msg string) {
	r.logger.Info(msg, "thread", thread.Name)
}

// effectFor wraps fn as a task effect. Each call gets its own thread and
// a task value bound to the properties being mutated.
func (r *runner) effectFor(fn starlark.Callable) ir.Effect {
	return func(task ir.TaskInfo, props ir.Map) error {
		thread := &starlark.Thread{Name: "mutate " + task.Name, Print: r.print}
		tv := &taskValue{info: task, props: props, selector: r.selector}
		_, err := starlark.Call(thread, fn, starlark.Tuple{tv}, nil)
		tv.done = true
		if tv.err != nil {
			return tv.err
		}
		if evalErr, ok := err.(*starlark.EvalError); ok {
			return fmt.Errorf("%s", evalErr.Backtrace())
		}
		return err
	}
}

// origin renders the position of the Starlark call to the current builtin.
func origin(thread *starlark.Thread) string {
	pos := thread.CallFrame(1).Pos
	return fmt.Sprintf("%s:%d:%d", pos.Filename(), pos.Line, pos.Col)
}
