// Package catalog describes the archive's data releases and the URL layouts
// each release has used over time.
//
// A Catalog is immutable once built. Use Default for the built-in release
// table, or Load to read a YAML document with the same shape:
//
//	primary: dr16
//	layouts:
//	  fast_path: https://{release}.sdss.org/sas/{dir}/{survey}/spectro/redux/{version}/spectra/lite/{plate}/spec-{plate}-{mjd}-{fiber}.fits
//	  ...
//	releases:
//	  - tag: dr16
//	    pipeline_version: v5_13_0
//	    survey: eboss
//	    dir_tag: dr16
//	    pipeline_versions: ["26", "103", "104", "v5_13_0"]
//
// Release order in the document is release priority.
package catalog
