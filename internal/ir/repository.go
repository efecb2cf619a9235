package ir

import (
	"fmt"
	"strings"
)

// Repository is a dependency source. Repositories form an ordered list;
// the first one that serves a coordinate wins during resolution.
type Repository struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Well-known repository aliases.
var knownRepositories = map[string]string{
	"mavenCentral":       "https://repo.maven.apache.org/maven2/",
	"google":             "https://dl.google.com/dl/android/maven2/",
	"mavenLocal":         "file://~/.m2/repository/",
	"gradlePluginPortal": "https://plugins.gradle.org/m2/",
}

// MavenCentral is the repository declared by mavenCentral().
func MavenCentral() Repository {
	return Repository{Name: "mavenCentral", URL: knownRepositories["mavenCentral"]}
}

// ParseRepository turns a reference into a Repository. Known aliases
// get their URL filled in; anything containing "://" is taken as a URL
// and also used as the name.
func ParseRepository(ref string) (Repository, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Repository{}, fmt.Errorf("repository reference is empty")
	}
	if url, ok := knownRepositories[ref]; ok {
		return Repository{Name: ref, URL: url}, nil
	}
	if strings.Contains(ref, "://") {
		return Repository{Name: ref, URL: ref}, nil
	}
	return Repository{Name: ref}, nil
}

// String returns the repository name.
func (r Repository) String() string {
	return r.Name
}
