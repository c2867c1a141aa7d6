package schema

// RefBookTagTable represents the 'core.booktag' junction table
type RefBookTagTable struct {
	Table        string
	BookFilename string
	TagID        string
	UserID       string
}

// RefBookTag is the schema definition for core.booktag.
// The three-way key lets different users apply the same tag name to
// the same book independently.
var RefBookTag = RefBookTagTable{
	Table:        "core.booktag",
	BookFilename: "bookfilename",
	TagID:        "tagid",
	UserID:       "userid",
}

func (t RefBookTagTable) Columns() []string {
	return []string{t.BookFilename, t.TagID, t.UserID}
}
