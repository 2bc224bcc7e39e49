package schema

// MediaLivestreamTable represents the 'media.livestream' table
type MediaLivestreamTable struct {
	Table       string
	ID          string
	Identifier  string
	Slug        string
	Title       string
	Description string
	OwnerID     string
	IsActive    string
	StartedAt   string
	EndedAt     string
	CreatedAt   string
}

// MediaLivestream is the schema definition for media.livestream
var MediaLivestream = MediaLivestreamTable{
	Table:       "media.livestream",
	ID:          "id",
	Identifier:  "identifier",
	Slug:        "slug",
	Title:       "title",
	Description: "description",
	OwnerID:     "ownerid",
	IsActive:    "isactive",
	StartedAt:   "startedat",
	EndedAt:     "endedat",
	CreatedAt:   "createdat",
}
