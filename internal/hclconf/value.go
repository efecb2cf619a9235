package hclconf

import (
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/roach88/buildcfg/internal/ir"
)

// toValue converts a cty.Value to a property value. Numbers must be
// whole and fit in an int64; null and unknown values are rejected.
func toValue(v cty.Value, rng hcl.Range) (ir.Value, hcl.Diagnostics) {
	if v.IsNull() {
		return nil, valueError(rng, "Null values are not allowed in task properties.")
	}
	if !v.IsWhollyKnown() {
		return nil, valueError(rng, "The value must be known without evaluation context.")
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return ir.String(v.AsString()), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if !bf.IsInt() {
			return nil, valueError(rng, fmt.Sprintf("Float values are not allowed, use int or string instead (got %s).", bf.Text('g', -1)))
		}
		n, acc := bf.Int64()
		if acc != big.Exact {
			return nil, valueError(rng, fmt.Sprintf("Integer %s does not fit in 64 bits.", bf.Text('f', 0)))
		}
		return ir.Int(n), nil

	case ty == cty.Bool:
		return ir.Bool(v.True()), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := ir.List{}
		var diags hcl.Diagnostics
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			iv, elemDiags := toValue(elem, rng)
			diags = append(diags, elemDiags...)
			out = append(out, iv)
		}
		if diags.HasErrors() {
			return nil, diags
		}
		return out, nil

	case ty.IsObjectType() || ty.IsMapType():
		out := ir.Map{}
		var diags hcl.Diagnostics
		for it := v.ElementIterator(); it.Next(); {
			key, elem := it.Element()
			iv, elemDiags := toValue(elem, rng)
			diags = append(diags, elemDiags...)
			out[key.AsString()] = iv
		}
		if diags.HasErrors() {
			return nil, diags
		}
		return out, nil

	default:
		return nil, valueError(rng, fmt.Sprintf("Unsupported value type %s.", ty.FriendlyName()))
	}
}

func valueError(rng hcl.Range, detail string) hcl.Diagnostics {
	return hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  "Invalid property value",
		Detail:   detail,
		Subject:  rng.Ptr(),
	}}
}
