package provider

import "time"

// Repository identifies a repository known to the CI server.
type Repository struct {
	FullName string // owner/name, possibly with sub-groups (gitlab)
}

// Build is a single CI build as reported by the server. Builds are read-only.
type Build struct {
	Number    int
	StartedAt int64 // epoch seconds
	Status    string
	Commit    string
	LinkURL   string
	Author    string
	Branch    string
	Event     string
	DeployTo  string
}

// Started returns the build start time in local time.
func (b Build) Started() time.Time {
	return time.Unix(b.StartedAt, 0).Local()
}

// CommitRef returns the link URL when the server provided one, else the raw commit.
func (b Build) CommitRef() string {
	if b.LinkURL == "" {
		return b.Commit
	}
	return b.LinkURL
}
