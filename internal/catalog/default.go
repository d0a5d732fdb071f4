package catalog

// DefaultDocument returns the built-in release table.
//
// The primary release is dr16, whose eBOSS v5_13_0 reduction serves most
// objects. The remaining order is the historical lookup order.
func DefaultDocument() Document {
	return Document{
		Primary: "dr16",
		Layouts: Layouts{
			FastPath: "https://{release}.sdss.org/sas/{dir}/{survey}/spectro/redux/{version}/spectra/lite/{plate}/spec-{plate}-{mjd}-{fiber}.fits",
			Legacy:   "https://data.sdss.org/sas/{dir}/sdss/spectro/redux/{version}/spectra/lite/{plate}/spec-{plate}-{mjd}-{fiber}.fits",
			SAS:      "https://{release}.sdss.org/sas/{dir}/spectro/{survey}/redux/{version}/spectra/lite/{plate}/spec-{plate}-{mjd}-{fiber}.fits",
			API:      "https://{release}.sdss.org/optical/spectrum/view/data/format=fits/spec=lite?plateid={plateid}&mjd={mjd}&fiberid={fiberid}",
		},
		Releases: []Release{
			{Tag: "dr16", PipelineVersion: "v5_13_0", Survey: "eboss", DirTag: "dr16", PipelineVersions: []string{"26", "103", "104", "v5_13_0"}},
			{Tag: "dr17", PipelineVersion: "v5_13_2", Survey: "eboss", DirTag: "dr17", PipelineVersions: []string{"v5_13_2"}},
			{Tag: "dr18", PipelineVersion: "v6_0_4", Survey: "bhm", DirTag: "dr18", PipelineVersions: []string{"v6_0_4"}},
			{Tag: "dr15", PipelineVersion: "v5_10_0", Survey: "eboss", DirTag: "dr15", PipelineVersions: []string{"v5_10_0"}},
			{Tag: "dr14", PipelineVersion: "v5_10_0", Survey: "eboss", DirTag: "dr14", PipelineVersions: []string{"v5_10_0", "26", "103", "104"}},
			{Tag: "dr13", PipelineVersion: "v5_9_0", Survey: "eboss", DirTag: "dr13", PipelineVersions: []string{"v5_9_0"}},
			{Tag: "dr12", PipelineVersion: "v5_7_0", Survey: "boss", DirTag: "dr12", PipelineVersions: []string{"v5_7_0", "v5_7_2", "26", "103", "104"}},
			{Tag: "dr11", PipelineVersion: "v5_7_0", Survey: "boss", DirTag: "dr11", PipelineVersions: []string{"v5_7_0"}},
			{Tag: "dr10", PipelineVersion: "v5_5_12", Survey: "boss", DirTag: "dr10", PipelineVersions: []string{"v5_5_12", "26", "103", "104"}},
			{Tag: "dr9", PipelineVersion: "v5_5_12", Survey: "boss", DirTag: "dr9", PipelineVersions: []string{"v5_5_12"}},
			{Tag: "dr8", PipelineVersion: "v5_4_45", Survey: "sdss", DirTag: "dr8", PipelineVersions: []string{"v5_4_45"}},
		},
	}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(DefaultDocument())
	if err != nil {
		panic("catalog: invalid default document: " + err.Error())
	}
	return c
}
