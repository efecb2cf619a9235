// Package testutil holds evaluation fixtures shared by package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/roach88/buildcfg/internal/engine"
	"github.com/roach88/buildcfg/internal/ir"
	"github.com/roach88/buildcfg/internal/plugin"
)

// JavaScript returns a script that applies the java plugin and appends
// -g to the compiler arguments of every JavaCompile task. Declarations
// carry origins in source.
func JavaScript(source string) *ir.Script {
	return ir.NewScript(source,
		ir.ApplyPlugin(plugin.Java).At(origin(source, 1)),
		ir.MutateTasks(ir.TaskFilter{Type: "JavaCompile"},
			ir.EffectSpec{Op: ir.OpAppend, Property: "compilerArgs", Value: ir.String("-g")}).At(origin(source, 2)),
	)
}

// Evaluate evaluates script against the built-in plugins and names the
// evaluation id. It fails the test on any evaluation error.
func Evaluate(tb testing.TB, id string, script *ir.Script, opts ...engine.Option) *engine.Result {
	tb.Helper()
	opts = append([]engine.Option{engine.WithIDGenerator(engine.NewFixedGenerator(id))}, opts...)
	res, err := engine.New(plugin.NewDefaultRegistry(), opts...).Evaluate(script)
	if err != nil {
		tb.Fatalf("Evaluate(%s) failed: %v", script.Source, err)
	}
	return res
}

// EvaluateErr evaluates script against the built-in plugins and returns
// the error. It fails the test if the evaluation succeeds.
func EvaluateErr(tb testing.TB, script *ir.Script, opts ...engine.Option) error {
	tb.Helper()
	_, err := engine.New(plugin.NewDefaultRegistry(), opts...).Evaluate(script)
	if err == nil {
		tb.Fatalf("Evaluate(%s) succeeded, want an error", script.Source)
	}
	return err
}

func origin(source string, line int) string {
	return fmt.Sprintf("%s:%d:1", source, line)
}
