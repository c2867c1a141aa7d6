package schema

// RefAccountTable represents the 'users.account' table
type RefAccountTable struct {
	Table        string
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    string
}

// RefAccount is the schema definition for users.account
var RefAccount = RefAccountTable{
	Table:        "users.account",
	ID:           "id",
	Username:     "username",
	Email:        "email",
	PasswordHash: "passwordhash",
	Role:         "role",
	CreatedAt:    "createdat",
}

func (t RefAccountTable) Columns() []string {
	return []string{t.ID, t.Username, t.Email, t.PasswordHash, t.Role, t.CreatedAt}
}
