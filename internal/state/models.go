package state

// ActivityType classifies an audit trail entry
type ActivityType string

const (
	ActivityLogin      ActivityType = "login"
	ActivityLogout     ActivityType = "logout"
	ActivityUserAdd    ActivityType = "user-add"
	ActivityUserRemove ActivityType = "user-remove"
	ActivityMessage    ActivityType = "message"
	ActivityFileUpload ActivityType = "file-upload"
	ActivityFileRemove ActivityType = "file-remove"
)

// UnknownUser is recorded when an action happens without a session identity
const UnknownUser = "Unknown"

// User represents an admin account as persisted.
// Password is stored in plain text; the directory is a demo trust boundary.
type User struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserSummary is the password-free view of a User handed to renderers
type UserSummary struct {
	Username string `json:"username"`
}

// Summary strips the credential from a user
func (u User) Summary() UserSummary {
	return UserSummary{Username: u.Username}
}

// ChatMessage is an immutable chat entry. Timestamp is epoch milliseconds.
type ChatMessage struct {
	User      string `json:"user"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// SharedFile is a small file kept inline as a data URL
type SharedFile struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	Type       string `json:"type"`
	Data       string `json:"data"`
	UploadedBy string `json:"uploadedBy"`
	Timestamp  int64  `json:"timestamp"`
}

// ActivityEntry is one append-only audit record
type ActivityEntry struct {
	Type      ActivityType `json:"type"`
	Message   string       `json:"message"`
	User      string       `json:"user"`
	Timestamp int64        `json:"timestamp"`
}
