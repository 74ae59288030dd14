// Package core provides the shared descriptor model and error taxonomy.
package core

// Descriptor is the minimal registry record needed to locate a package
// version's downloadable archive. Immutable once parsed.
type Descriptor struct {
	Name     string
	DistTags map[string]string
	Versions map[string]VersionRecord
}

// VersionRecord holds the distribution info for one published version.
type VersionRecord struct {
	Dist Dist
}

// Dist locates and authenticates a version's tarball.
type Dist struct {
	Tarball   string // download URL
	Shasum    string // hex sha1, may be empty
	Integrity string // SRI string (sha512-..., sha1-...), may be empty
}

// Resolve maps a version spec to a concrete version string. A spec is either
// an exact key of Versions or a dist-tag name ("latest"). An empty spec means
// the "latest" dist-tag.
func (d *Descriptor) Resolve(spec string) (string, error) {
	if spec == "" {
		spec = "latest"
	}
	if _, ok := d.Versions[spec]; ok {
		return spec, nil
	}
	if v, ok := d.DistTags[spec]; ok {
		if _, ok := d.Versions[v]; ok {
			return v, nil
		}
		return "", &NotFoundError{Name: d.Name, Version: v}
	}
	return "", &NotFoundError{Name: d.Name, Version: spec}
}

// Record returns the version record for an exact version string.
func (d *Descriptor) Record(version string) (VersionRecord, error) {
	rec, ok := d.Versions[version]
	if !ok {
		return VersionRecord{}, &NotFoundError{Name: d.Name, Version: version}
	}
	return rec, nil
}
