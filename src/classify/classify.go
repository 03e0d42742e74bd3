// Package classify partitions a repository's builds by environment.
package classify

import "drone-builds/src/provider"

// Deployment targets a build can carry.
const (
	TargetProduction = "production"
	TargetStaging    = "staging"
	TargetSecrets    = "secrets"
)

// DefaultBranch is the only branch whose pushes count as dev builds.
const DefaultBranch = "master"

// Set holds the builds of one repository split by environment, each bucket
// in server order.
type Set struct {
	Dev        []provider.Build
	Secrets    []provider.Build
	Staging    []provider.Build
	Production []provider.Build
}

// Bucket is a named environment slice of a Set.
type Bucket struct {
	Name   string
	Builds []provider.Build
}

// Buckets returns the environments in report order: dev, secrets, staging, production.
func (s Set) Buckets() []Bucket {
	return []Bucket{
		{Name: "dev", Builds: s.Dev},
		{Name: TargetSecrets, Builds: s.Secrets},
		{Name: TargetStaging, Builds: s.Staging},
		{Name: TargetProduction, Builds: s.Production},
	}
}

// IsMainlineBuild reports whether b was built from a push or deployment on
// the default branch.
func IsMainlineBuild(b provider.Build) bool {
	return b.Branch == DefaultBranch && (b.Event == "push" || b.Event == "deployment")
}

// Classify partitions builds. Builds deployed to production, staging or
// secrets go to the matching bucket; other mainline builds go to dev; the
// rest are dropped.
func Classify(builds []provider.Build) Set {
	var s Set
	for _, b := range builds {
		switch b.DeployTo {
		case TargetProduction:
			s.Production = append(s.Production, b)
		case TargetStaging:
			s.Staging = append(s.Staging, b)
		case TargetSecrets:
			s.Secrets = append(s.Secrets, b)
		default:
			if IsMainlineBuild(b) {
				s.Dev = append(s.Dev, b)
			}
		}
	}
	return s
}
