package starlarkconf

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/roach88/buildcfg/internal/ir"
)

func builtins() starlark.StringDict {
	return starlark.StringDict{
		"plugin":          starlark.NewBuiltin("plugin", applyPlugin),
		"project":         starlark.NewBuiltin("project", setProject),
		"repository":      starlark.NewBuiltin("repository", addRepository),
		"maven_central":   starlark.NewBuiltin("maven_central", addMavenCentral),
		"dependency":      starlark.NewBuiltin("dependency", addDependency),
		"platform":        starlark.NewBuiltin("platform", addPlatform),
		"tasks_with_type": starlark.NewBuiltin("tasks_with_type", tasksWithType),
		"task_named":      starlark.NewBuiltin("task_named", taskNamed),
		"tasks_matching":  starlark.NewBuiltin("tasks_matching", tasksMatching),
	}
}

// declare checks d and appends it to the script. A failing declaration
// is kept as the script's error so its code survives the interpreter.
func declare(thread *starlark.Thread, d ir.Declaration) (starlark.Value, error) {
	ctx, err := getCtx(thread)
	if err != nil {
		return nil, err
	}
	at := origin(thread)
	if err := d.Check(); err != nil {
		located := ir.Locate(err, at)
		if ctx.err == nil {
			ctx.err = located
		}
		return nil, located
	}
	ctx.script.Add(d.At(at))
	return starlark.None, nil
}

func fail(thread *starlark.Thread, err error) error {
	located := ir.Locate(err, origin(thread))
	if ctx, ctxErr := getCtx(thread); ctxErr == nil && ctx.err == nil {
		ctx.err = located
	}
	return located
}

func applyPlugin(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var id string
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "id", &id); err != nil {
		return nil, err
	}
	return declare(thread, ir.ApplyPlugin(id))
}

func setProject(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var group, version starlark.Value = starlark.None, starlark.None
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "group?", &group, "version?", &version); err != nil {
		return nil, err
	}
	g, err := optionalString(fn.Name(), "group", group)
	if err != nil {
		return nil, err
	}
	v, err := optionalString(fn.Name(), "version", version)
	if err != nil {
		return nil, err
	}
	return declare(thread, ir.SetIdentity(g, v))
}

func addRepository(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name, url string
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &name, "url?", &url); err != nil {
		return nil, err
	}
	if url != "" {
		return declare(thread, ir.AddRepository(ir.Repository{Name: name, URL: url}))
	}
	repo, err := ir.ParseRepository(name)
	if err != nil {
		return nil, fail(thread, err)
	}
	return declare(thread, ir.AddRepository(repo))
}

func addMavenCentral(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs); err != nil {
		return nil, err
	}
	return declare(thread, ir.AddRepository(ir.MavenCentral()))
}

func addDependency(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var scope, coordinate string
	var managed bool
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "scope", &scope, "coordinate", &coordinate, "managed?", &managed); err != nil {
		return nil, err
	}
	if managed {
		c, err := ir.ParseManagedCoordinate(coordinate)
		if err != nil {
			return nil, fail(thread, err)
		}
		return declare(thread, ir.AddManagedDependency(c, ir.Scope(scope)))
	}
	c, err := ir.ParseCoordinate(coordinate)
	if err != nil {
		return nil, fail(thread, err)
	}
	return declare(thread, ir.AddDependency(c, ir.Scope(scope)))
}

func addPlatform(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var scope, coordinate string
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "scope", &scope, "coordinate", &coordinate); err != nil {
		return nil, err
	}
	c, err := ir.ParseCoordinate(coordinate)
	if err != nil {
		return nil, fail(thread, err)
	}
	return declare(thread, ir.AddPlatform(c, ir.Scope(scope)))
}

func tasksWithType(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var typ string
	var action starlark.Callable
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "type", &typ, "action", &action); err != nil {
		return nil, err
	}
	return mutate(thread, ir.TaskFilter{Type: typ}, action)
}

func taskNamed(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var action starlark.Callable
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &name, "action", &action); err != nil {
		return nil, err
	}
	return mutate(thread, ir.TaskFilter{Name: name}, action)
}

func tasksMatching(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var action starlark.Callable
	var filter ir.TaskFilter
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "action", &action, "name?", &filter.Name, "type?", &filter.Type); err != nil {
		return nil, err
	}
	return mutate(thread, filter, action)
}

func mutate(thread *starlark.Thread, filter ir.TaskFilter, action starlark.Callable) (starlark.Value, error) {
	ctx, err := getCtx(thread)
	if err != nil {
		return nil, err
	}
	return declare(thread, ir.MutateTasksFunc(filter, action.Name(), ctx.runner.effectFor(action)))
}

func optionalString(fnName, param string, v starlark.Value) (*string, error) {
	switch s := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.String:
		out := s.GoString()
		return &out, nil
	default:
		return nil, fmt.Errorf("%s: for parameter %s: got %s, want string or None", fnName, param, v.Type())
	}
}
