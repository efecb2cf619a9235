// Package loader turns descriptor files and plugin catalogs into the
// inputs of an evaluation. The descriptor surface is picked by file
// extension: .cue (CUE), .hcl (HCL) or .star (Starlark).
package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/roach88/buildcfg/internal/compiler"
	"github.com/roach88/buildcfg/internal/hclconf"
	"github.com/roach88/buildcfg/internal/ir"
	"github.com/roach88/buildcfg/internal/platform"
	"github.com/roach88/buildcfg/internal/plugin"
	"github.com/roach88/buildcfg/internal/starlarkconf"
)

// Surface identifies a descriptor language.
type Surface string

const (
	SurfaceCUE      Surface = "cue"
	SurfaceHCL      Surface = "hcl"
	SurfaceStarlark Surface = "starlark"
)

var extensions = map[string]Surface{
	".cue":  SurfaceCUE,
	".hcl":  SurfaceHCL,
	".star": SurfaceStarlark,
}

// Error codes shared by the loader's callers.
const (
	ErrCodeNotFound       = "E005" // path not found
	ErrCodeUnknownSurface = "E008" // extension is not a descriptor surface
	ErrCodeParseFailed    = "E009" // descriptor failed to parse or compile
	ErrCodePluginCatalog  = "E010" // plugin catalog failed to load or register
)

// LoadError is a loading failure with a CLI error code.
type LoadError struct {
	Code string
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// SurfaceOf returns the descriptor surface of path.
func SurfaceOf(path string) (Surface, error) {
	s, ok := extensions[filepath.Ext(path)]
	if !ok {
		return "", &LoadError{
			Code: ErrCodeUnknownSurface,
			Path: path,
			Err:  fmt.Errorf("unsupported descriptor extension %q (want .cue, .hcl or .star)", filepath.Ext(path)),
		}
	}
	return s, nil
}

// Options configures script loading. Zero values pick defaults.
type Options struct {
	Logger   *slog.Logger
	Selector platform.Selector
}

// LoadScript reads the descriptor at path with the surface its extension
// names. Declaration errors raised while loading (malformed coordinates,
// invalid declarations) keep their ir.Error code.
func LoadScript(path string, opts Options) (*ir.Script, error) {
	surface, err := SurfaceOf(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Err: err}
	}

	var script *ir.Script
	switch surface {
	case SurfaceCUE:
		script, err = compiler.LoadDescriptorFile(path)
	case SurfaceHCL:
		script, err = hclconf.LoadFile(path)
	case SurfaceStarlark:
		var sopts []starlarkconf.Option
		if opts.Logger != nil {
			sopts = append(sopts, starlarkconf.WithLogger(opts.Logger))
		}
		if opts.Selector != nil {
			sopts = append(sopts, starlarkconf.WithPlatformSelector(opts.Selector))
		}
		script, err = starlarkconf.LoadFile(path, sopts...)
	}
	if err != nil {
		var irErr *ir.Error
		if errors.As(err, &irErr) {
			return nil, err
		}
		return nil, &LoadError{Code: ErrCodeParseFailed, Path: path, Err: err}
	}
	return script, nil
}

// Catalog is the plugin registry an evaluation runs against, plus the
// definitions that were loaded from catalog directories.
type Catalog struct {
	Registry *plugin.Registry
	Loaded   []ir.PluginDefinition
	Warnings []compiler.CycleWarning
}

// LoadCatalog builds a registry of the built-in plugins plus every plugin
// defined in dirs. Definitions are validated against each other and the
// built-ins before anything is registered.
func LoadCatalog(dirs []string) (*Catalog, error) {
	reg := plugin.NewDefaultRegistry()
	cat := &Catalog{Registry: reg, Warnings: []compiler.CycleWarning{}}
	if len(dirs) == 0 {
		return cat, nil
	}

	for _, dir := range dirs {
		defs, err := compiler.LoadPluginDir(dir)
		if err != nil {
			return nil, &LoadError{Code: ErrCodePluginCatalog, Path: dir, Err: err}
		}
		cat.Loaded = append(cat.Loaded, defs...)
	}
	sort.SliceStable(cat.Loaded, func(i, j int) bool { return cat.Loaded[i].ID < cat.Loaded[j].ID })

	if errs := compiler.ValidatePlugins(cat.Loaded, reg); len(errs) > 0 {
		return nil, &LoadError{Code: ErrCodePluginCatalog, Path: dirs[0], Err: errs[0]}
	}
	for _, def := range cat.Loaded {
		if err := reg.Register(def); err != nil {
			return nil, &LoadError{Code: ErrCodePluginCatalog, Path: def.ID, Err: err}
		}
	}
	cat.Warnings = compiler.AnalyzePluginCycles(cat.Loaded)
	return cat, nil
}
