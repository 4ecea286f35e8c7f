package render

import (
	"sort"

	"github.com/s0up4200/pikfront/backend"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortFiles returns a copy of files with folders first and each group in
// ascending locale-aware name order. Equal names keep their input order.
func SortFiles(files []backend.FileEntry) []backend.FileEntry {
	return SortFilesFor(files, language.Und)
}

// SortFilesFor is SortFiles with the collation rules of a specific language
func SortFilesFor(files []backend.FileEntry, tag language.Tag) []backend.FileEntry {
	sorted := make([]backend.FileEntry, len(files))
	copy(sorted, files)

	col := collate.New(tag)
	sort.SliceStable(sorted, func(i, j int) bool {
		iFolder, jFolder := sorted[i].IsFolder(), sorted[j].IsFolder()
		if iFolder != jFolder {
			return iFolder
		}
		return col.CompareString(sorted[i].Name, sorted[j].Name) < 0
	})

	return sorted
}
