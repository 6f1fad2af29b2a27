package model

import (
	"slices"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Repository identifies a GitHub repository
type Repository struct {
	Owner string
	Name  string
}

// ParseRepository parses an "owner/name" identifier
func ParseRepository(s string) (Repository, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repository{}, goerr.New("invalid repository, expected owner/name", goerr.V("repository", s))
	}
	return Repository{Owner: owner, Name: name}, nil
}

// String returns the "owner/name" form
func (r Repository) String() string {
	return r.Owner + "/" + r.Name
}

// Release is the subset of release metadata used for asset resolution
type Release struct {
	Tag    string   // Release tag name
	Assets []string // Asset names in API order
}

// HasAsset reports whether the release carries an asset with the given name
func (r *Release) HasAsset(name string) bool {
	return slices.Contains(r.Assets, name)
}
