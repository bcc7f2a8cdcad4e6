package storage

import "regexp"

// Namespace is the directory under the documents root that holds every
// migrated store. No other storage consumer writes below it.
const Namespace = "vd_mmkv"

var (
	illegalChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	hyphenRuns   = regexp.MustCompile(`-+`)
)

// StorePath maps a store id to its file name relative to the documents
// root. Illegal characters become hyphens and the resulting hyphen runs
// collapse; ids without illegal characters are used verbatim, hyphen runs
// included. Distinct ids may map to the same path.
func StorePath(storeID string) string {
	name := storeID
	if illegalChars.MatchString(name) {
		name = illegalChars.ReplaceAllLiteralString(name, "-")
		name = hyphenRuns.ReplaceAllLiteralString(name, "-")
	}
	return Namespace + "/" + name
}
