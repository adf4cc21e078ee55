package event

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ErrInvalidSchema is returned when a string is not a well-formed iglu schema URI.
var ErrInvalidSchema = errors.New("invalid schema URI")

const igluPrefix = "iglu:"

// SchemaRef is the parsed form of an iglu schema URI:
// iglu:<vendor>/<name>/<format>/<MAJOR>-<MINOR>-<PATCH>
type SchemaRef struct {
	Vendor  string
	Name    string
	Format  string
	Version *semver.Version
}

// ParseSchema splits an iglu schema URI into its parts.
func ParseSchema(s string) (SchemaRef, error) {
	rest, ok := strings.CutPrefix(s, igluPrefix)
	if !ok {
		return SchemaRef{}, fmt.Errorf("%w: missing %q prefix in %q", ErrInvalidSchema, igluPrefix, s)
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 4 {
		return SchemaRef{}, fmt.Errorf("%w: expected vendor/name/format/version in %q", ErrInvalidSchema, s)
	}
	for _, p := range parts {
		if p == "" {
			return SchemaRef{}, fmt.Errorf("%w: empty segment in %q", ErrInvalidSchema, s)
		}
	}

	segments := strings.Split(parts[3], "-")
	if len(segments) != 3 {
		return SchemaRef{}, fmt.Errorf("%w: version must be MAJOR-MINOR-PATCH in %q", ErrInvalidSchema, s)
	}
	version, err := semver.StrictNewVersion(strings.Join(segments, "."))
	if err != nil {
		return SchemaRef{}, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	return SchemaRef{
		Vendor:  parts[0],
		Name:    parts[1],
		Format:  parts[2],
		Version: version,
	}, nil
}

// String renders the reference back into its iglu URI.
func (r SchemaRef) String() string {
	version := "0-0-0"
	if r.Version != nil {
		version = fmt.Sprintf("%d-%d-%d", r.Version.Major(), r.Version.Minor(), r.Version.Patch())
	}
	return igluPrefix + r.Vendor + "/" + r.Name + "/" + r.Format + "/" + version
}
