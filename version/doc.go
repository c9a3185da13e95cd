// Package version reports the trapstash build.
//
// Values come from, in order of preference:
//   - variables set at link time (Version, Commit, Date)
//   - the module and VCS information embedded by the go tool
//   - development defaults
//
// Release builds set them with:
//
//	-ldflags "-X github.com/dendrascience/trapstash/version.Version=v1.0.0 -X github.com/dendrascience/trapstash/version.Commit=abc123 -X github.com/dendrascience/trapstash/version.Date=2024-01-01T00:00:00Z"
//
// The version is stamped into every export manifest so archives can be
// traced back to the build that wrote them.
package version
