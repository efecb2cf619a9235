package ir

import (
	"fmt"
	"strings"
)

// CoordinateSeparator splits coordinate text into its parts.
const CoordinateSeparator = ":"

// Coordinate identifies a dependency artifact. It is a comparable value
// type, so it can be used as a map key; equality covers every field.
type Coordinate struct {
	Group      string `json:"group"`
	Name       string `json:"name"`
	Version    string `json:"version,omitempty"`
	Classifier string `json:"classifier,omitempty"`
}

// Module is the (group, name) pair a coordinate belongs to.
// Dependencies are deduplicated by Module within a scope.
type Module struct {
	Group string `json:"group"`
	Name  string `json:"name"`
}

// String renders the module as group:name.
func (m Module) String() string {
	return m.Group + CoordinateSeparator + m.Name
}

// ParseCoordinate parses group:name:version[:classifier].
// Any missing or empty part is a MalformedCoordinate error.
func ParseCoordinate(text string) (Coordinate, error) {
	parts, err := splitCoordinate(text)
	if err != nil {
		return Coordinate{}, err
	}
	if len(parts) < 3 {
		return Coordinate{}, NewMalformedCoordinate(text, "expected group:name:version")
	}
	return coordinateFromParts(parts), nil
}

// ParseManagedCoordinate is like ParseCoordinate but also accepts
// group:name, for dependencies whose version comes from a platform.
func ParseManagedCoordinate(text string) (Coordinate, error) {
	parts, err := splitCoordinate(text)
	if err != nil {
		return Coordinate{}, err
	}
	return coordinateFromParts(parts), nil
}

// MustParseCoordinate is like ParseCoordinate but panics on error.
// Use only in tests and static tables.
func MustParseCoordinate(text string) Coordinate {
	c, err := ParseCoordinate(text)
	if err != nil {
		panic(err)
	}
	return c
}

func splitCoordinate(text string) ([]string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, NewMalformedCoordinate(text, "coordinate is empty")
	}
	parts := strings.Split(trimmed, CoordinateSeparator)
	if len(parts) < 2 {
		return nil, NewMalformedCoordinate(text, "expected group:name:version")
	}
	if len(parts) > 4 {
		return nil, NewMalformedCoordinate(text, fmt.Sprintf("too many parts (%d), expected at most group:name:version:classifier", len(parts)))
	}
	for i, p := range parts {
		if strings.TrimSpace(p) == "" {
			return nil, NewMalformedCoordinate(text, fmt.Sprintf("part %d is empty", i+1))
		}
		parts[i] = strings.TrimSpace(p)
	}
	return parts, nil
}

func coordinateFromParts(parts []string) Coordinate {
	c := Coordinate{Group: parts[0], Name: parts[1]}
	if len(parts) > 2 {
		c.Version = parts[2]
	}
	if len(parts) > 3 {
		c.Classifier = parts[3]
	}
	return c
}

// String renders the canonical form parsed by ParseCoordinate.
func (c Coordinate) String() string {
	var b strings.Builder
	b.WriteString(c.Group)
	b.WriteString(CoordinateSeparator)
	b.WriteString(c.Name)
	if c.Version != "" {
		b.WriteString(CoordinateSeparator)
		b.WriteString(c.Version)
		if c.Classifier != "" {
			b.WriteString(CoordinateSeparator)
			b.WriteString(c.Classifier)
		}
	}
	return b.String()
}

// Module returns the dedup key of the coordinate.
func (c Coordinate) Module() Module {
	return Module{Group: c.Group, Name: c.Name}
}

// Versionless reports whether the coordinate carries no version.
func (c Coordinate) Versionless() bool {
	return c.Version == ""
}

// WithVersion returns a copy of c with version replaced.
func (c Coordinate) WithVersion(version string) Coordinate {
	c.Version = version
	return c
}
