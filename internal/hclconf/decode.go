// Package hclconf compiles HCL build descriptors into scripts.
//
// A descriptor is a sequence of top-level blocks, evaluated in the
// order they appear:
//
//	project {
//	  group   = "com.example"
//	  version = "1.0"
//	}
//
//	plugin "java-library" {}
//	repository "mavenCentral" {}
//
//	platform "testImplementation" {
//	  coordinate = "org.junit:junit-bom:5.10.0"
//	}
//	dependency "testImplementation" {
//	  coordinate = "org.junit.jupiter:junit-jupiter"
//	  managed    = true
//	}
//
//	mutate {
//	  type = "JavaCompile"
//	  effect "append" {
//	    property = "compilerArgs"
//	    value    = "-Xlint:unchecked"
//	  }
//	}
package hclconf

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/roach88/buildcfg/internal/ir"
)

var fileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "project"},
		{Type: "plugin", LabelNames: []string{"id"}},
		{Type: "repository", LabelNames: []string{"name"}},
		{Type: "dependency", LabelNames: []string{"scope"}},
		{Type: "platform", LabelNames: []string{"scope"}},
		{Type: "mutate"},
	},
}

var mutateSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "name"},
		{Name: "type"},
		{Name: "description"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "effect", LabelNames: []string{"op"}},
	},
}

type projectBlock struct {
	Group   *string `hcl:"group,optional"`
	Version *string `hcl:"version,optional"`
}

type repositoryBlock struct {
	URL *string `hcl:"url,optional"`
}

type dependencyBlock struct {
	Coordinate string `hcl:"coordinate"`
	Managed    bool   `hcl:"managed,optional"`
}

type platformBlock struct {
	Coordinate string `hcl:"coordinate"`
}

type effectBlock struct {
	Property string     `hcl:"property,optional"`
	Value    *cty.Value `hcl:"value,optional"`
	Platform string     `hcl:"platform,optional"`
}

// LoadFile parses and compiles a single HCL descriptor file.
func LoadFile(path string) (*ir.Script, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL descriptor %s: %w", path, diags)
	}
	script, diags := Decode(file.Body)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL descriptor %s: %w", path, diags)
	}
	script.Source = path
	return script, nil
}

// Parse compiles HCL source held in memory. filename only labels origins.
func Parse(src []byte, filename string) (*ir.Script, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL descriptor %s: %w", filename, diags)
	}
	script, diags := Decode(file.Body)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL descriptor %s: %w", filename, diags)
	}
	script.Source = filename
	return script, nil
}

// Decode turns the blocks of body into declarations. Every block is
// checked; the returned diagnostics cover all of them.
func Decode(body hcl.Body) (*ir.Script, hcl.Diagnostics) {
	content, diags := body.Content(fileSchema)
	script := &ir.Script{}

	for _, block := range content.Blocks {
		var (
			decl      ir.Declaration
			blockDiag hcl.Diagnostics
		)
		switch block.Type {
		case "project":
			decl, blockDiag = decodeProject(block)
		case "plugin":
			decl = ir.ApplyPlugin(block.Labels[0])
		case "repository":
			decl, blockDiag = decodeRepository(block)
		case "dependency":
			decl, blockDiag = decodeDependency(block)
		case "platform":
			decl, blockDiag = decodePlatform(block)
		case "mutate":
			decl, blockDiag = decodeMutation(block)
		}
		diags = append(diags, blockDiag...)
		if blockDiag.HasErrors() {
			continue
		}
		script.Add(decl.At(origin(block.DefRange)))
	}
	return script, diags
}

func decodeProject(block *hcl.Block) (ir.Declaration, hcl.Diagnostics) {
	var p projectBlock
	diags := gohcl.DecodeBody(block.Body, nil, &p)
	if diags.HasErrors() {
		return ir.Declaration{}, diags
	}
	if p.Group == nil && p.Version == nil {
		return ir.Declaration{}, append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Empty project block",
			Detail:   "The project block needs a group or a version.",
			Subject:  block.DefRange.Ptr(),
		})
	}
	return ir.SetIdentity(p.Group, p.Version), diags
}

func decodeRepository(block *hcl.Block) (ir.Declaration, hcl.Diagnostics) {
	var r repositoryBlock
	diags := gohcl.DecodeBody(block.Body, nil, &r)
	if diags.HasErrors() {
		return ir.Declaration{}, diags
	}
	name := block.Labels[0]
	if r.URL != nil {
		return ir.AddRepository(ir.Repository{Name: name, URL: *r.URL}), diags
	}
	repo, err := ir.ParseRepository(name)
	if err != nil {
		return ir.Declaration{}, append(diags, invalid("Invalid repository", err, block.LabelRanges[0]))
	}
	return ir.AddRepository(repo), diags
}

func decodeDependency(block *hcl.Block) (ir.Declaration, hcl.Diagnostics) {
	var d dependencyBlock
	diags := gohcl.DecodeBody(block.Body, nil, &d)
	if diags.HasErrors() {
		return ir.Declaration{}, diags
	}
	parse := ir.ParseCoordinate
	if d.Managed {
		parse = ir.ParseManagedCoordinate
	}
	c, err := parse(d.Coordinate)
	if err != nil {
		return ir.Declaration{}, append(diags, invalid("Invalid coordinate", err, block.DefRange))
	}
	scope := ir.Scope(block.Labels[0])
	if d.Managed {
		return ir.AddManagedDependency(c, scope), diags
	}
	return ir.AddDependency(c, scope), diags
}

func decodePlatform(block *hcl.Block) (ir.Declaration, hcl.Diagnostics) {
	var p platformBlock
	diags := gohcl.DecodeBody(block.Body, nil, &p)
	if diags.HasErrors() {
		return ir.Declaration{}, diags
	}
	c, err := ir.ParseCoordinate(p.Coordinate)
	if err != nil {
		return ir.Declaration{}, append(diags, invalid("Invalid coordinate", err, block.DefRange))
	}
	return ir.AddPlatform(c, ir.Scope(block.Labels[0])), diags
}

func decodeMutation(block *hcl.Block) (ir.Declaration, hcl.Diagnostics) {
	content, diags := block.Body.Content(mutateSchema)
	if diags.HasErrors() {
		return ir.Declaration{}, diags
	}

	var filter ir.TaskFilter
	var description string
	for _, f := range []struct {
		name   string
		target *string
	}{
		{"name", &filter.Name},
		{"type", &filter.Type},
		{"description", &description},
	} {
		attr, ok := content.Attributes[f.name]
		if !ok {
			continue
		}
		diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, f.target)...)
	}

	var effects []ir.EffectSpec
	for _, eb := range content.Blocks {
		var e effectBlock
		blockDiags := gohcl.DecodeBody(eb.Body, nil, &e)
		diags = append(diags, blockDiags...)
		if blockDiags.HasErrors() {
			continue
		}
		spec := ir.EffectSpec{Op: eb.Labels[0], Property: e.Property, Platform: e.Platform}
		if e.Value != nil {
			v, valDiags := toValue(*e.Value, eb.DefRange)
			diags = append(diags, valDiags...)
			spec.Value = v
		}
		effects = append(effects, spec)
	}
	if diags.HasErrors() {
		return ir.Declaration{}, diags
	}
	if len(effects) == 0 {
		return ir.Declaration{}, append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Mutation without effects",
			Detail:   "A mutate block needs at least one effect block.",
			Subject:  block.DefRange.Ptr(),
		})
	}

	decl := ir.MutateTasks(filter, effects...)
	decl.Mutation.Description = description
	return decl, diags
}

func invalid(summary string, err error, rng hcl.Range) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   err.Error(),
		Subject:  rng.Ptr(),
	}
}

// origin renders the start of rng as "file:line:col".
func origin(rng hcl.Range) string {
	return fmt.Sprintf("%s:%d:%d", rng.Filename, rng.Start.Line, rng.Start.Column)
}
