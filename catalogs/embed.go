package catalogs

import "embed"

// Content holds the catalogs shipped with the binaries.
//
//go:embed *.txt
var Content embed.FS

// SampleName is the file name of the default target list.
const SampleName = "galaxies.txt"
