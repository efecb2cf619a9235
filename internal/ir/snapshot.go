package ir

// ScopeSnapshot is the finalized dependency set of one scope.
// Managed dependencies appear without a version.
type ScopeSnapshot struct {
	Scope        Scope        `json:"scope"`
	Dependencies []Coordinate `json:"dependencies"`
	Platforms    []Coordinate `json:"platforms,omitempty"`
}

// TaskSnapshot is the finalized state of one task.
type TaskSnapshot struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Owners     []string `json:"owners"`
	Properties Map      `json:"properties"`
}

// Snapshot is the serializable view of a finalized configuration.
// Slices are in deterministic order: repositories and plugins as
// declared, scopes sorted, tasks in materialization order.
type Snapshot struct {
	Identity     Identity        `json:"identity"`
	Repositories []Repository    `json:"repositories"`
	Plugins      []string        `json:"plugins"`
	Scopes       []ScopeSnapshot `json:"scopes"`
	Tasks        []TaskSnapshot  `json:"tasks"`
}

// CanonicalMap renders the snapshot for canonical JSON.
// Unset identity fields are omitted, not emitted as "".
func (s Snapshot) CanonicalMap() Map {
	identity := Map{}
	if s.Identity.Group != nil {
		identity["group"] = String(*s.Identity.Group)
	}
	if s.Identity.Version != nil {
		identity["version"] = String(*s.Identity.Version)
	}

	repos := make(List, len(s.Repositories))
	for i, r := range s.Repositories {
		entry := Map{"name": String(r.Name)}
		if r.URL != "" {
			entry["url"] = String(r.URL)
		}
		repos[i] = entry
	}

	scopes := Map{}
	for _, sc := range s.Scopes {
		scopes[string(sc.Scope)] = Map{
			"dependencies": coordinateList(sc.Dependencies),
			"platforms":    coordinateList(sc.Platforms),
		}
	}

	tasks := make(List, len(s.Tasks))
	for i, t := range s.Tasks {
		props := t.Properties
		if props == nil {
			props = Map{}
		}
		tasks[i] = Map{
			"name":       String(t.Name),
			"type":       String(t.Type),
			"owners":     Strings(t.Owners...),
			"properties": props,
		}
	}

	return Map{
		"identity":     identity,
		"repositories": repos,
		"plugins":      Strings(s.Plugins...),
		"scopes":       scopes,
		"tasks":        tasks,
	}
}

func coordinateList(cs []Coordinate) List {
	out := make(List, len(cs))
	for i, c := range cs {
		out[i] = String(c.String())
	}
	return out
}
