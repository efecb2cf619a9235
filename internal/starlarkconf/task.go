package starlarkconf

import (
	"fmt"
	"sort"

	"go.starlark.net/starlark"

	"github.com/roach88/buildcfg/internal/effect"
	"github.com/roach88/buildcfg/internal/ir"
	"github.com/roach88/buildcfg/internal/platform"
)

// taskValue is the task handed to a mutation function. It is only
// usable during that call.
type taskValue struct {
	info     ir.TaskInfo
	props    ir.Map
	selector platform.Selector
	done     bool
	err      error // first effect error, kept typed
}

var taskMethods = map[string]*starlark.Builtin{
	"get":          starlark.NewBuiltin("get", taskGet),
	"set":          starlark.NewBuiltin("set", taskSet),
	"unset":        starlark.NewBuiltin("unset", taskUnset),
	"append":       starlark.NewBuiltin("append", taskAppend),
	"remove":       starlark.NewBuiltin("remove", taskRemove),
	"use_platform": starlark.NewBuiltin("use_platform", taskUsePlatform),
}

// Implement starlark.Value and starlark.HasAttrs for *taskValue

func (t *taskValue) String() string {
	return fmt.Sprintf("<task %s: %s>", t.info.Name, t.info.Type)
}

func (t *taskValue) Type() string { return "task" }

// Freeze does nothing; a task value never outlives its call.
func (t *taskValue) Freeze() {}

func (t *taskValue) Truth() starlark.Bool { return starlark.True }

func (t *taskValue) Hash() (uint32, error) {
	return 0, fmt.Errorf("task is not a hashable type")
}

func (t *taskValue) Attr(name string) (starlark.Value, error) {
	switch name {
	case "name":
		return starlark.String(t.info.Name), nil
	case "type":
		return starlark.String(t.info.Type), nil
	}
	if m, ok := taskMethods[name]; ok {
		return m.BindReceiver(t), nil
	}
	return nil, nil
}

func (t *taskValue) AttrNames() []string {
	names := []string{"name", "type"}
	for name := range taskMethods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// apply runs e against the task's properties.
func (t *taskValue) apply(e ir.Effect) (starlark.Value, error) {
	if t.done {
		return nil, fmt.Errorf("task %s can only be changed while its mutation runs", t.info.Name)
	}
	if err := e(t.info, t.props); err != nil {
		if t.err == nil {
			t.err = err
		}
		return nil, err
	}
	return starlark.None, nil
}

func receiver(fn *starlark.Builtin) *taskValue {
	return fn.Receiver().(*taskValue)
}

func taskGet(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var property string
	var def starlark.Value = starlark.None
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "property", &property, "default?", &def); err != nil {
		return nil, err
	}
	v, ok := receiver(fn).props[property]
	if !ok {
		return def, nil
	}
	return toStarlark(v)
}

func taskSet(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var property string
	var value starlark.Value
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "property", &property, "value", &value); err != nil {
		return nil, err
	}
	v, err := fromStarlark(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Name(), err)
	}
	return receiver(fn).apply(effect.Set(property, v))
}

func taskUnset(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var property string
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "property", &property); err != nil {
		return nil, err
	}
	return receiver(fn).apply(effect.Unset(property))
}

// listArgs reads (property, value) where a list value stands for its items.
func listArgs(fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (string, []ir.Value, error) {
	var property string
	var value starlark.Value
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "property", &property, "value", &value); err != nil {
		return "", nil, err
	}
	v, err := fromStarlark(value)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", fn.Name(), err)
	}
	if items, ok := v.(ir.List); ok {
		return property, items, nil
	}
	return property, []ir.Value{v}, nil
}

func taskAppend(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	property, items, err := listArgs(fn, args, kwargs)
	if err != nil {
		return nil, err
	}
	return receiver(fn).apply(effect.Append(property, items...))
}

func taskRemove(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	property, items, err := listArgs(fn, args, kwargs)
	if err != nil {
		return nil, err
	}
	return receiver(fn).apply(effect.Remove(property, items...))
}

func taskUsePlatform(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var id string
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "platform", &id); err != nil {
		return nil, err
	}
	t := receiver(fn)
	if t.selector == nil {
		return nil, fmt.Errorf("%s: no platform selector configured", fn.Name())
	}
	return t.apply(effect.UsePlatform(t.selector, id))
}
