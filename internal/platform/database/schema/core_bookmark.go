package schema

// RefBookmarkTable represents the 'core.bookmark' table
type RefBookmarkTable struct {
	Table        string
	UserID       string
	BookFilename string
	ChapterIndex string
	Position     string
	Status       string
	LastRead     string
}

// RefBookmark is the schema definition for core.bookmark.
// At most one row exists per (userid, bookfilename); absence of a row
// means "Unread, chapter 0, position 0".
var RefBookmark = RefBookmarkTable{
	Table:        "core.bookmark",
	UserID:       "userid",
	BookFilename: "bookfilename",
	ChapterIndex: "chapterindex",
	Position:     "position",
	Status:       "status",
	LastRead:     "lastread",
}

func (t RefBookmarkTable) Columns() []string {
	return []string{t.UserID, t.BookFilename, t.ChapterIndex, t.Position, t.Status, t.LastRead}
}
