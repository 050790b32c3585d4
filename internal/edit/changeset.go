package edit

// LoadFunc reads a file's current content by repo-relative path.
type LoadFunc func(path string) (string, error)

// ChangeSet accumulates proposed file contents for one fix attempt. Edits are
// applied sequentially, so multiple edits to the same file compose, and a file
// is loaded at most once. Nothing is written to disk: the caller validates the
// full candidate map first and persists it atomically or not at all.
type ChangeSet struct {
	load     LoadFunc
	baseline map[string]string
	current  map[string]string
}

// NewChangeSet creates an empty change set that loads untouched files via load.
func NewChangeSet(load LoadFunc) *ChangeSet {
	return &ChangeSet{
		load:     load,
		baseline: make(map[string]string),
		current:  make(map[string]string),
	}
}

// Preload seeds a file's content without editing it, so the issue's primary
// file is always part of the candidate set.
func (c *ChangeSet) Preload(path, content string) {
	if _, ok := c.current[path]; ok {
		return
	}
	c.baseline[path] = content
	c.current[path] = content
}

// Apply applies one edit against the accumulating content for its file,
// loading the file first if it has not been touched yet. On failure the
// change set is left exactly as it was.
func (c *ChangeSet) Apply(e Edit) error {
	content, touched := c.current[e.File]
	if !touched {
		loaded, err := c.load(e.File)
		if err != nil {
			return &Error{Kind: TargetNotFound, Path: e.File, Message: "cannot load file: " + err.Error()}
		}
		content = loaded
	}

	updated, err := Apply(content, e.OldCode, e.NewCode)
	if err != nil {
		if ee, ok := err.(*Error); ok && ee.Path == "" {
			ee.Path = e.File
		}
		return err
	}

	if !touched {
		c.baseline[e.File] = content
	}
	c.current[e.File] = updated
	return nil
}

// Files returns the candidate path-to-content map for every touched file.
func (c *ChangeSet) Files() map[string]string {
	return c.current
}

// Baseline returns the original content a touched file was loaded with.
func (c *ChangeSet) Baseline(path string) string {
	return c.baseline[path]
}
