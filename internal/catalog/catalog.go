package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Release is the configuration of one data release.
type Release struct {
	// Tag is the release name, e.g. "dr16".
	Tag string `yaml:"tag"`

	// PipelineVersion is the release's primary processing version.
	PipelineVersion string `yaml:"pipeline_version"`

	// Survey is the survey directory, e.g. "eboss" or "boss".
	Survey string `yaml:"survey"`

	// DirTag is the directory name under the archive root.
	DirTag string `yaml:"dir_tag"`

	// PipelineVersions lists every version the release has been processed
	// with, in the order they were introduced.
	PipelineVersions []string `yaml:"pipeline_versions"`
}

// Layouts holds the URL templates for each strategy tier.
//
// Templates support these placeholders:
//   - {release} - release tag
//   - {dir} - release directory tag
//   - {survey} - survey name
//   - {version} - pipeline version
//   - {plate}, {fiber} - zero-padded to 4 digits
//   - {plateid}, {fiberid} - unpadded
//   - {mjd} - unpadded
type Layouts struct {
	FastPath string `yaml:"fast_path"`
	Legacy   string `yaml:"legacy"`
	SAS      string `yaml:"sas"`
	API      string `yaml:"api"`
}

// Document is the serialized form of a catalog.
type Document struct {
	Primary  string    `yaml:"primary"`
	Layouts  Layouts   `yaml:"layouts"`
	Releases []Release `yaml:"releases"`
}

// Catalog is an immutable, ordered set of data releases.
type Catalog struct {
	primary  string
	layouts  Layouts
	releases []Release
	index    map[string]int
}

// ErrInvalidCatalog is returned by New and Load for malformed documents.
var ErrInvalidCatalog = errors.New("invalid catalog")

// New validates doc and builds a Catalog from a deep copy of it.
func New(doc Document) (*Catalog, error) {
	if len(doc.Releases) == 0 {
		return nil, fmt.Errorf("%w: no releases", ErrInvalidCatalog)
	}
	if doc.Layouts.FastPath == "" || doc.Layouts.Legacy == "" || doc.Layouts.SAS == "" || doc.Layouts.API == "" {
		return nil, fmt.Errorf("%w: all four layouts are required", ErrInvalidCatalog)
	}

	c := &Catalog{
		primary:  doc.Primary,
		layouts:  doc.Layouts,
		releases: make([]Release, 0, len(doc.Releases)),
		index:    make(map[string]int, len(doc.Releases)),
	}

	for _, r := range doc.Releases {
		if r.Tag == "" {
			return nil, fmt.Errorf("%w: release without tag", ErrInvalidCatalog)
		}
		if _, dup := c.index[r.Tag]; dup {
			return nil, fmt.Errorf("%w: duplicate release %q", ErrInvalidCatalog, r.Tag)
		}
		if r.PipelineVersion == "" || r.Survey == "" {
			return nil, fmt.Errorf("%w: release %q needs pipeline_version and survey", ErrInvalidCatalog, r.Tag)
		}
		if r.DirTag == "" {
			r.DirTag = r.Tag
		}
		r.PipelineVersions = slices.Clone(r.PipelineVersions)
		if len(r.PipelineVersions) == 0 {
			r.PipelineVersions = []string{r.PipelineVersion}
		}

		c.index[r.Tag] = len(c.releases)
		c.releases = append(c.releases, r)
	}

	if c.primary == "" {
		c.primary = c.releases[0].Tag
	}
	if _, ok := c.index[c.primary]; !ok {
		return nil, fmt.Errorf("%w: primary release %q is not listed", ErrInvalidCatalog, c.primary)
	}

	return c, nil
}

// Load reads a YAML catalog document from path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return New(doc)
}

// Releases returns the releases in priority order.
func (c *Catalog) Releases() []Release {
	out := make([]Release, len(c.releases))
	for i, r := range c.releases {
		r.PipelineVersions = slices.Clone(r.PipelineVersions)
		out[i] = r
	}
	return out
}

// Release looks up a release by tag.
func (c *Catalog) Release(tag string) (Release, bool) {
	i, ok := c.index[tag]
	if !ok {
		return Release{}, false
	}
	r := c.releases[i]
	r.PipelineVersions = slices.Clone(r.PipelineVersions)
	return r, true
}

// Primary returns the release used for the fast path and the generic API tier.
func (c *Catalog) Primary() Release {
	r, _ := c.Release(c.primary)
	return r
}

// Layouts returns the URL templates.
func (c *Catalog) Layouts() Layouts {
	return c.layouts
}

// Document returns the serializable form of the catalog.
func (c *Catalog) Document() Document {
	return Document{
		Primary:  c.primary,
		Layouts:  c.layouts,
		Releases: c.Releases(),
	}
}

// Marshal encodes the catalog as YAML.
func (c *Catalog) Marshal() ([]byte, error) {
	return yaml.Marshal(c.Document())
}
