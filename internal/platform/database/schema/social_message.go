package schema

// SocialMessageTable represents the 'social.message' table
type SocialMessageTable struct {
	Table    string
	ID       string
	RoomID   string
	SenderID string
	Body     string
	SentAt   string
}

// SocialMessage is the schema definition for social.message
var SocialMessage = SocialMessageTable{
	Table:    "social.message",
	ID:       "id",
	RoomID:   "roomid",
	SenderID: "senderid",
	Body:     "body",
	SentAt:   "sentat",
}
