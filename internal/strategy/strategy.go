// Package strategy builds the ordered fallback chain of candidate URLs for a
// target.
//
// The chain has four tiers, each yielding all of its candidates before the
// next begins:
//
//  1. priority-fastpath: the primary release's canonical URL
//  2. release-legacy-path:<tag>/<version>: every release, every historical pipeline version
//  3. generic-api: the primary release's API endpoint
//  4. full-sweep:<tag>/sas and full-sweep:<tag>/api: every release, interleaved
//
// A URL already produced by an earlier tier is not produced again.
package strategy

import (
	"fmt"
	"iter"
	"slices"
	"strconv"
	"strings"

	"github.com/handiism/sdss-fetch/internal/catalog"
	"github.com/handiism/sdss-fetch/internal/model"
)

// Method tags and tag prefixes.
const (
	MethodFastPath   = "priority-fastpath"
	MethodLegacy     = "release-legacy-path"
	MethodGenericAPI = "generic-api"
	MethodFullSweep  = "full-sweep"
)

// Generator produces candidate sequences from a catalog. It holds no
// mutable state and is safe for concurrent use.
type Generator struct {
	catalog *catalog.Catalog
}

// NewGenerator creates a Generator for c.
func NewGenerator(c *catalog.Catalog) *Generator {
	return &Generator{catalog: c}
}

// Candidates returns the lazy candidate sequence for t. Every call yields
// the same sequence, and stopping early does no extra work.
func (g *Generator) Candidates(t model.Target) iter.Seq[model.Candidate] {
	return func(yield func(model.Candidate) bool) {
		seen := make(map[string]struct{})
		emit := func(url, tag string) bool {
			if _, dup := seen[url]; dup {
				return true
			}
			seen[url] = struct{}{}
			return yield(model.Candidate{URL: url, MethodTag: tag})
		}

		layouts := g.catalog.Layouts()
		primary := g.catalog.Primary()
		releases := g.catalog.Releases()

		if !emit(expand(layouts.FastPath, primary, primary.PipelineVersion, t), MethodFastPath) {
			return
		}

		for _, r := range releases {
			for _, version := range r.PipelineVersions {
				tag := fmt.Sprintf("%s:%s/%s", MethodLegacy, r.Tag, version)
				if !emit(expand(layouts.Legacy, r, version, t), tag) {
					return
				}
			}
		}

		if !emit(expand(layouts.API, primary, primary.PipelineVersion, t), MethodGenericAPI) {
			return
		}

		for _, r := range releases {
			if !emit(expand(layouts.SAS, r, r.PipelineVersion, t), MethodFullSweep+":"+r.Tag+"/sas") {
				return
			}
			if !emit(expand(layouts.API, r, r.PipelineVersion, t), MethodFullSweep+":"+r.Tag+"/api") {
				return
			}
		}
	}
}

// Generate materializes the full candidate sequence for t.
func (g *Generator) Generate(t model.Target) []model.Candidate {
	return slices.Collect(g.Candidates(t))
}

// expand fills a layout template for one release, version and target.
func expand(template string, r catalog.Release, version string, t model.Target) string {
	return strings.NewReplacer(
		"{release}", r.Tag,
		"{dir}", r.DirTag,
		"{survey}", r.Survey,
		"{version}", version,
		"{plateid}", strconv.Itoa(t.Plate),
		"{fiberid}", strconv.Itoa(t.Fiber),
		"{plate}", fmt.Sprintf("%04d", t.Plate),
		"{fiber}", fmt.Sprintf("%04d", t.Fiber),
		"{mjd}", strconv.Itoa(t.MJD),
	).Replace(template)
}
