// Package effect turns declarative effect specs into executable task
// mutations. Descriptor surfaces that cannot carry functions (CUE, HCL)
// describe their mutations with these ops.
package effect

import (
	"fmt"

	"github.com/roach88/buildcfg/internal/ir"
	"github.com/roach88/buildcfg/internal/platform"
)

// Builder compiles effect specs. The selector serves use_platform.
type Builder struct {
	selector platform.Selector
}

// NewBuilder returns a builder. A nil selector disables use_platform.
func NewBuilder(selector platform.Selector) *Builder {
	return &Builder{selector: selector}
}

// Build compiles specs into one effect that runs them in order.
func (b *Builder) Build(specs []ir.EffectSpec) (ir.Effect, error) {
	if len(specs) == 0 {
		return nil, ir.NewInvalidEffect("mutateTasks", "no effects given")
	}
	steps := make([]ir.Effect, len(specs))
	for i, spec := range specs {
		step, err := b.build(spec)
		if err != nil {
			return nil, err
		}
		steps[i] = step
	}
	return func(task ir.TaskInfo, props ir.Map) error {
		for i, step := range steps {
			if err := step(task, props); err != nil {
				return fmt.Errorf("effect %d (%s): %w", i, specs[i].Op, err)
			}
		}
		return nil
	}, nil
}

func (b *Builder) build(spec ir.EffectSpec) (ir.Effect, error) {
	needsProperty := spec.Op != ir.OpUsePlatform
	if needsProperty && spec.Property == "" {
		return nil, ir.NewInvalidEffect(spec.Op, "property is required")
	}

	switch spec.Op {
	case ir.OpSet:
		if spec.Value == nil {
			return nil, ir.NewInvalidEffect(spec.Op, "value is required")
		}
		return Set(spec.Property, spec.Value), nil
	case ir.OpUnset:
		return Unset(spec.Property), nil
	case ir.OpAppend, ir.OpPrepend, ir.OpRemove:
		if spec.Value == nil {
			return nil, ir.NewInvalidEffect(spec.Op, "value is required")
		}
		items := asList(spec.Value)
		switch spec.Op {
		case ir.OpAppend:
			return Append(spec.Property, items...), nil
		case ir.OpPrepend:
			return Prepend(spec.Property, items...), nil
		default:
			return Remove(spec.Property, items...), nil
		}
	case ir.OpMerge:
		m, ok := spec.Value.(ir.Map)
		if !ok {
			return nil, ir.NewInvalidEffect(spec.Op, fmt.Sprintf("value must be a map, got %s", ir.KindOf(spec.Value)))
		}
		return Merge(spec.Property, m), nil
	case ir.OpUsePlatform:
		if spec.Platform == "" {
			return nil, ir.NewInvalidEffect(spec.Op, "platform is required")
		}
		if b.selector == nil {
			return nil, ir.NewInvalidEffect(spec.Op, "no test platform selector configured")
		}
		// fail on unknown platforms while building, not while running
		if _, err := b.selector.Select(spec.Platform); err != nil {
			return nil, err
		}
		return UsePlatform(b.selector, spec.Platform), nil
	default:
		return nil, ir.NewInvalidEffect(spec.Op, "unknown effect op")
	}
}

func asList(v ir.Value) ir.List {
	if l, ok := v.(ir.List); ok {
		return l
	}
	return ir.List{v}
}

// Set assigns value to key.
func Set(key string, value ir.Value) ir.Effect {
	return func(_ ir.TaskInfo, props ir.Map) error {
		props[key] = ir.Clone(value)
		return nil
	}
}

// Unset deletes key. A missing key is not an error.
func Unset(key string) ir.Effect {
	return func(_ ir.TaskInfo, props ir.Map) error {
		delete(props, key)
		return nil
	}
}

// Append adds items to the end of the list at key, creating it if absent.
func Append(key string, items ...ir.Value) ir.Effect {
	return func(_ ir.TaskInfo, props ir.Map) error {
		cur, err := listAt(props, key)
		if err != nil {
			return err
		}
		out := make(ir.List, 0, len(cur)+len(items))
		out = append(out, cur...)
		for _, it := range items {
			out = append(out, ir.Clone(it))
		}
		props[key] = out
		return nil
	}
}

// Prepend adds items to the front of the list at key, keeping their order.
func Prepend(key string, items ...ir.Value) ir.Effect {
	return func(_ ir.TaskInfo, props ir.Map) error {
		cur, err := listAt(props, key)
		if err != nil {
			return err
		}
		out := make(ir.List, 0, len(cur)+len(items))
		for _, it := range items {
			out = append(out, ir.Clone(it))
		}
		out = append(out, cur...)
		props[key] = out
		return nil
	}
}

// Remove drops every element of the list at key equal to one of items.
func Remove(key string, items ...ir.Value) ir.Effect {
	return func(_ ir.TaskInfo, props ir.Map) error {
		cur, err := listAt(props, key)
		if err != nil {
			return err
		}
		out := ir.List{}
		for _, elem := range cur {
			drop := false
			for _, it := range items {
				if ir.Equal(elem, it) {
					drop = true
					break
				}
			}
			if !drop {
				out = append(out, elem)
			}
		}
		props[key] = out
		return nil
	}
}

// Merge copies entries into the map at key, later keys winning.
func Merge(key string, entries ir.Map) ir.Effect {
	return func(_ ir.TaskInfo, props ir.Map) error {
		var cur ir.Map
		switch v := props[key].(type) {
		case nil:
			cur = ir.Map{}
		case ir.Map:
			cur = v
		default:
			return fmt.Errorf("property %q is a %s, not a map", key, ir.KindOf(v))
		}
		for k, v := range entries {
			cur[k] = ir.Clone(v)
		}
		props[key] = cur
		return nil
	}
}

// UsePlatform merges the configuration of a test platform into the task.
func UsePlatform(selector platform.Selector, id string) ir.Effect {
	return func(_ ir.TaskInfo, props ir.Map) error {
		cfg, err := selector.Select(id)
		if err != nil {
			return err
		}
		for k, v := range cfg {
			props[k] = v
		}
		return nil
	}
}

func listAt(props ir.Map, key string) (ir.List, error) {
	switch v := props[key].(type) {
	case nil:
		return ir.List{}, nil
	case ir.List:
		return v, nil
	default:
		return nil, fmt.Errorf("property %q is a %s, not a list", key, ir.KindOf(v))
	}
}
