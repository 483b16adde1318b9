package models

import "time"

type DirectMessagePolicy string

const (
	DMPolicyAllow   DirectMessagePolicy = "allow"
	DMPolicyRequest DirectMessagePolicy = "request"
	DMPolicyBlock   DirectMessagePolicy = "block"
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Outranks reports whether r is strictly above other (owner > admin > member).
func (r Role) Outranks(other Role) bool {
	return r.rank() > other.rank()
}

func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleAdmin || r == RoleMember
}

func (r Role) rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleAdmin:
		return 2
	case RoleMember:
		return 1
	default:
		return 0
	}
}

type ChannelType string

const (
	ChannelText  ChannelType = "text"
	ChannelVoice ChannelType = "voice"
)

type User struct {
	ID           int64               `json:"id,string,omitempty"`
	Email        string              `json:"email,omitempty"`
	UserName     string              `json:"userName,omitempty"`
	DisplayName  string              `json:"displayName"`
	CustomStatus string              `json:"customStatus,omitempty"`
	Picture      string              `json:"picture"`
	Online       bool                `json:"online"`
	DMPolicy     DirectMessagePolicy `json:"dmPolicy,omitempty"`
	Password     []byte              `json:"-"`
}

type Friendship struct {
	ID         int64     `json:"id,string"`
	SenderID   int64     `json:"senderID,string"`
	ReceiverID int64     `json:"receiverID,string"`
	Accepted   bool      `json:"accepted"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Block struct {
	BlockerID int64     `json:"blockerID,string"`
	BlockedID int64     `json:"blockedID,string"`
	CreatedAt time.Time `json:"createdAt"`
}

type Server struct {
	ID         int64  `json:"id,string"`
	OwnerID    int64  `json:"ownerID,string"`
	Name       string `json:"name"`
	Picture    string `json:"picture"`
	InviteCode string `json:"inviteCode,omitempty"`
}

type Member struct {
	ServerID int64  `json:"serverID,string"`
	UserID   int64  `json:"userID,string"`
	Role     Role   `json:"role"`
	Nickname string `json:"nickname,omitempty"`
	User     User   `json:"user"`
}

type Channel struct {
	ID       int64       `json:"id,string"`
	ServerID int64       `json:"serverID,string"`
	Name     string      `json:"name"`
	Type     ChannelType `json:"type"`
}

// DirectThread pairs two users; UserLowID < UserHighID so each unordered
// pair maps to exactly one row.
type DirectThread struct {
	ID         int64     `json:"id,string"`
	UserLowID  int64     `json:"userLowID,string"`
	UserHighID int64     `json:"userHighID,string"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Message struct {
	ID             int64  `json:"id,string"`
	ChannelID      int64  `json:"channelID,string,omitempty"`
	ThreadID       int64  `json:"threadID,string,omitempty"`
	UserID         int64  `json:"userID,string"`
	Message        string `json:"message"`
	Attachment     string `json:"attachment,omitempty"`
	AttachmentSize int64  `json:"attachmentSize,omitempty"`
	Edited         bool   `json:"edited"`
	User           User   `json:"user"`
}

type Notification struct {
	ID          int64     `json:"id,string"`
	RecipientID int64     `json:"recipientID,string"`
	SenderID    int64     `json:"senderID,string"`
	SenderName  string    `json:"senderName"`
	ServerID    int64     `json:"serverID,string,omitempty"`
	ChannelID   int64     `json:"channelID,string,omitempty"`
	ThreadID    int64     `json:"threadID,string,omitempty"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ConfigFile struct {
	Address               string
	Port                  string
	BehindNginx           bool
	TlsCert               string
	TlsKey                string
	PrintHttpRequests     bool
	LogToFile             bool
	LogLevel              string
	JwtSecret             string
	SnowflakeWorkerID     int64
	SelfContained         bool
	DbUser                string
	DbPassword            string
	DbAddress             string
	DbPort                string
	DbDatabase            string
	RedisAddress          string
	RedisPassword         string
	LiveKitApiKey         string
	LiveKitApiSecret      string
	OperationTimeoutSecs  int
	BlockOverridesRequest bool
}
