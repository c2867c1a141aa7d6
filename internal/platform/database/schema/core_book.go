package schema

// RefBookTable represents the 'core.book' table
type RefBookTable struct {
	Table       string
	Filename    string
	Title       string
	Author      string
	Genre       string
	AccessLevel string
	CoverPath   string
	CreatedAt   string
	UploadedBy  string
}

// RefBook is the schema definition for core.book
//
// The filename is the primary key: it is the join key between the
// catalog row and the EPUB archive on disk.
var RefBook = RefBookTable{
	Table:       "core.book",
	Filename:    "filename",
	Title:       "title",
	Author:      "author",
	Genre:       "genre",
	AccessLevel: "accesslevel",
	CoverPath:   "coverpath",
	CreatedAt:   "createdat",
	UploadedBy:  "uploadedby",
}

func (t RefBookTable) Columns() []string {
	return []string{t.Filename, t.Title, t.Author, t.Genre, t.AccessLevel, t.CoverPath, t.CreatedAt, t.UploadedBy}
}
