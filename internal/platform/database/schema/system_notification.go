package schema

// SystemNotificationTable represents the 'system.notification' table
type SystemNotificationTable struct {
	Table       string
	ID          string
	RecipientID string
	Kind        string
	Title       string
	Body        string
	SourceID    string
	IsRead      string
	CreatedAt   string
}

// SystemNotification is the schema definition for system.notification
var SystemNotification = SystemNotificationTable{
	Table:       "system.notification",
	ID:          "id",
	RecipientID: "recipientid",
	Kind:        "kind",
	Title:       "title",
	Body:        "body",
	SourceID:    "sourceid",
	IsRead:      "isread",
	CreatedAt:   "createdat",
}
