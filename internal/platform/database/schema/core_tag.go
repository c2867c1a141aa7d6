package schema

// RefTagTable represents the 'core.tag' table
type RefTagTable struct {
	Table     string
	ID        string
	Name      string
	UserID    string
	CreatedAt string
}

// RefTag is the schema definition for core.tag
//
// Tags are user-scoped: (name, userid) is unique, so two readers can
// each own a tag with the same display name.
var RefTag = RefTagTable{
	Table:     "core.tag",
	ID:        "id",
	Name:      "name",
	UserID:    "userid",
	CreatedAt: "createdat",
}

func (t RefTagTable) Columns() []string {
	return []string{t.ID, t.Name, t.UserID, t.CreatedAt}
}
