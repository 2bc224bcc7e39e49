package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table           string
	ID              string
	Identifier      string
	FirstName       string
	LastName        string
	Email           string
	Password        string
	IsVerified      string
	EmailVerifiedAt string
	CreatedAt       string
	UpdatedAt       string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:           "users.account",
	ID:              "id",
	Identifier:      "identifier",
	FirstName:       "firstname",
	LastName:        "lastname",
	Email:           "email",
	Password:        "passwordhash",
	IsVerified:      "isverified",
	EmailVerifiedAt: "emailverifiedat",
	CreatedAt:       "createdat",
	UpdatedAt:       "updatedat",
}

// Columns returns all standard column names
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.Identifier, t.FirstName, t.LastName, t.Email, t.Password,
		t.IsVerified, t.EmailVerifiedAt, t.CreatedAt, t.UpdatedAt,
	}
}
