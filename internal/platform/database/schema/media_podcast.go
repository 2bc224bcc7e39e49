package schema

// MediaPodcastTable represents the 'media.podcast' table
type MediaPodcastTable struct {
	Table       string
	ID          string
	Identifier  string
	Slug        string
	Title       string
	Description string
	AudioURL    string
	OwnerID     string
	IsPublished string
	PublishedAt string
	CreatedAt   string
}

// MediaPodcast is the schema definition for media.podcast
var MediaPodcast = MediaPodcastTable{
	Table:       "media.podcast",
	ID:          "id",
	Identifier:  "identifier",
	Slug:        "slug",
	Title:       "title",
	Description: "description",
	AudioURL:    "audiourl",
	OwnerID:     "ownerid",
	IsPublished: "ispublished",
	PublishedAt: "publishedat",
	CreatedAt:   "createdat",
}
