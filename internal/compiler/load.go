package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/buildcfg/internal/ir"
)

// LoadDescriptorFile compiles a single .cue descriptor file.
// Declaration origins name path.
func LoadDescriptorFile(path string) (*ir.Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	script, err := CompileDescriptor(v)
	if err != nil {
		return nil, err
	}
	script.Source = path
	return script, nil
}

// LoadPluginDir loads every .cue file of dir as one CUE package and
// compiles its plugin struct.
func LoadPluginDir(dir string) ([]ir.PluginDefinition, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("plugin directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("plugin directory: not a directory: %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompilePlugins(value)
}
