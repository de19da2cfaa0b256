package model

// Entry is one categorized key/value configuration record as served by the
// node API. (Category, Key) is expected to be unique but is not enforced here.
type Entry struct {
	Category    string `json:"category"`
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

// Snapshot is the client's transient copy of the authoritative entry list.
// It is replaced wholesale after every mutation, never patched.
type Snapshot struct {
	Entries    []Entry
	Categories []string
}

// NewSnapshot builds a Snapshot from a freshly fetched entry list, deriving
// the category list in first-appearance order.
func NewSnapshot(entries []Entry) Snapshot {
	if entries == nil {
		entries = []Entry{}
	}
	return Snapshot{
		Entries:    entries,
		Categories: Categories(entries),
	}
}

// Categories returns the distinct category labels of entries in the order
// they first appear.
func Categories(entries []Entry) []string {
	seen := make(map[string]bool, len(entries))
	categories := []string{}
	for _, e := range entries {
		if seen[e.Category] {
			continue
		}
		seen[e.Category] = true
		categories = append(categories, e.Category)
	}
	return categories
}

// InCategory returns the entries whose category equals category, preserving order.
func (s Snapshot) InCategory(category string) []Entry {
	var out []Entry
	for _, e := range s.Entries {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

// Find returns the first entry matching category and key.
func (s Snapshot) Find(category, key string) (Entry, bool) {
	for _, e := range s.Entries {
		if e.Category == category && e.Key == key {
			return e, true
		}
	}
	return Entry{}, false
}
