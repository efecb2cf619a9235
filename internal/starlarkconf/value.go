package starlarkconf

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/roach88/buildcfg/internal/ir"
)

// fromStarlark converts a Starlark value to a property value.
// Floats and None have no property representation.
func fromStarlark(v starlark.Value) (ir.Value, error) {
	switch value := v.(type) {
	case starlark.String:
		return ir.String(value.GoString()), nil
	case starlark.Bool:
		return ir.Bool(bool(value)), nil
	case starlark.Int:
		n, ok := value.Int64()
		if !ok {
			return nil, fmt.Errorf("integer %s does not fit in 64 bits", value.String())
		}
		return ir.Int(n), nil
	case *starlark.List, starlark.Tuple:
		out := ir.List{}
		iter := value.(starlark.Iterable).Iterate()
		defer iter.Done()
		var item starlark.Value
		for iter.Next(&item) {
			elem, err := fromStarlark(item)
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	case *starlark.Dict:
		out := ir.Map{}
		for _, kv := range value.Items() {
			key, ok := kv[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("found key type %s in dict but only strings are supported", kv[0].Type())
			}
			elem, err := fromStarlark(kv[1])
			if err != nil {
				return nil, fmt.Errorf("in key %q: %w", key.GoString(), err)
			}
			out[key.GoString()] = elem
		}
		return out, nil
	default:
		return nil, fmt.Errorf("values of type %s cannot be task properties", v.Type())
	}
}

// toStarlark converts a property value to a fresh, unfrozen Starlark value.
func toStarlark(v ir.Value) (starlark.Value, error) {
	switch value := v.(type) {
	case ir.String:
		return starlark.String(value), nil
	case ir.Bool:
		return starlark.Bool(value), nil
	case ir.Int:
		return starlark.MakeInt64(int64(value)), nil
	case ir.List:
		elems := make([]starlark.Value, len(value))
		for i, item := range value {
			elem, err := toStarlark(item)
			if err != nil {
				return nil, err
			}
			elems[i] = elem
		}
		return starlark.NewList(elems), nil
	case ir.Map:
		dict := starlark.NewDict(len(value))
		for _, key := range value.SortedKeys() {
			elem, err := toStarlark(value[key])
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(key), elem); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported property value %T", v)
	}
}
