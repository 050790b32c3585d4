package issue

import "sort"

// Batch orders issues for sequential fixing: grouped by file in lexicographic
// path order, and within each file by line number descending. Fixing a file
// bottom-up means an accepted edit never shifts the line numbers that later
// issues in the same file still target, and each file needs one read before
// its first edit and one write after its last.
//
// Issues without a line number sort after all positioned issues in their file.
func Batch(issues []Issue) []Issue {
	byFile := make(map[string][]Issue)
	for _, is := range issues {
		path := is.FilePath()
		byFile[path] = append(byFile[path], is)
	}

	paths := make([]string, 0, len(byFile))
	for path := range byFile {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	batched := make([]Issue, 0, len(issues))
	for _, path := range paths {
		group := byFile[path]
		sort.SliceStable(group, func(a, b int) bool {
			return group[a].Line > group[b].Line
		})
		batched = append(batched, group...)
	}
	return batched
}
