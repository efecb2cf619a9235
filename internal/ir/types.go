package ir

// Identity is the project's group and version.
// A nil field was never set; consumers must not read it as "".
type Identity struct {
	Group   *string `json:"group,omitempty"`
	Version *string `json:"version,omitempty"`
}

// GroupOr returns the group or fallback when unset.
func (id Identity) GroupOr(fallback string) string {
	if id.Group == nil {
		return fallback
	}
	return *id.Group
}

// VersionOr returns the version or fallback when unset.
func (id Identity) VersionOr(fallback string) string {
	if id.Version == nil {
		return fallback
	}
	return *id.Version
}

// Ptr returns a pointer to s. Handy for optional identity fields.
func Ptr(s string) *string {
	return &s
}

// TaskContribution is a task a plugin adds to the graph, with the
// default property values of its conventions.
type TaskContribution struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Properties  Map    `json:"properties"`
	Description string `json:"description,omitempty"`
}

// PluginDefinition is a named bundle of conventions.
type PluginDefinition struct {
	ID          string             `json:"id"`
	Description string             `json:"description,omitempty"`
	Applies     []string           `json:"applies,omitempty"` // prerequisite plugin ids
	Tasks       []TaskContribution `json:"tasks"`
	Scopes      []ScopeBinding     `json:"scopes"`
}

// PluginApplication records a plugin applied to a project.
type PluginApplication struct {
	ID     string             `json:"id"`
	Tasks  []TaskContribution `json:"tasks"`
	Scopes []ScopeBinding     `json:"scopes"`
}

// TaskNames lists the contributed task names in declaration order.
func (a PluginApplication) TaskNames() []string {
	names := make([]string, len(a.Tasks))
	for i, t := range a.Tasks {
		names[i] = t.Name
	}
	return names
}

// TaskFilter selects tasks by name, type, or both.
// An empty filter matches every task.
type TaskFilter struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// Matches reports whether a task with the given name and type is selected.
func (f TaskFilter) Matches(name, typ string) bool {
	if f.Name != "" && f.Name != name {
		return false
	}
	if f.Type != "" && f.Type != typ {
		return false
	}
	return true
}

// String renders the filter for logs and reports.
func (f TaskFilter) String() string {
	switch {
	case f.Name != "" && f.Type != "":
		return "name=" + f.Name + ",type=" + f.Type
	case f.Name != "":
		return "name=" + f.Name
	case f.Type != "":
		return "type=" + f.Type
	default:
		return "*"
	}
}

// TaskInfo is the read-only part of a task handed to an effect.
type TaskInfo struct {
	Name string
	Type string
}

// Effect mutates the properties of one task. It must not retain props.
type Effect func(task TaskInfo, props Map) error

// Effect operations understood by the effect builder.
const (
	OpSet         = "set"
	OpUnset       = "unset"
	OpAppend      = "append"
	OpPrepend     = "prepend"
	OpRemove      = "remove"
	OpMerge       = "merge"
	OpUsePlatform = "use_platform"
)

// EffectSpec is a declarative effect. Value is unused by unset and
// use_platform; Platform is used only by use_platform.
type EffectSpec struct {
	Op       string `json:"op"`
	Property string `json:"property,omitempty"`
	Value    Value  `json:"-"`
	Platform string `json:"platform,omitempty"`
}

// CanonicalMap renders the effect for hashing and display.
func (e EffectSpec) CanonicalMap() Map {
	m := Map{"op": String(e.Op)}
	if e.Property != "" {
		m["property"] = String(e.Property)
	}
	if e.Value != nil {
		m["value"] = e.Value
	}
	if e.Platform != "" {
		m["platform"] = String(e.Platform)
	}
	return m
}
