package hub

import "fmt"

// Event names pushed to subscribers. The frame format is the event name,
// a newline, then the JSON payload.
const (
	FriendRequestCreated = "FriendRequestCreated"
	FriendRequestRemoved = "FriendRequestRemoved"
	FriendshipAccepted   = "FriendshipAccepted"
	FriendshipRemoved    = "FriendshipRemoved"
	UserBlocked          = "UserBlocked"
	UserUnblocked        = "UserUnblocked"

	ServerModified = "ServerModified"
	ServerDeleted  = "ServerDeleted"
	MemberJoined   = "MemberJoined"
	MemberLeft     = "MemberLeft"
	MemberKicked   = "MemberKicked"
	MemberRoleSet  = "MemberRoleSet"

	ChannelCreated  = "ChannelCreated"
	ChannelModified = "ChannelModified"
	ChannelDeleted  = "ChannelDeleted"

	MessageCreated  = "MessageCreated"
	MessageModified = "MessageModified"
	MessageDeleted  = "MessageDeleted"

	ThreadOpened        = "ThreadOpened"
	NotificationCreated = "NotificationCreated"
)

// Subscription keys. Every mutation is published under the key that
// covers the mutated record; a client subscribes to the keys its views
// depend on.
func RelationshipsKey(userID int64) string {
	return fmt.Sprintf("relationships:%d", userID)
}

func ServerKey(serverID int64) string {
	return fmt.Sprintf("server:%d", serverID)
}

func ChannelKey(channelID int64) string {
	return fmt.Sprintf("channel:%d", channelID)
}

func ThreadsKey(userID int64) string {
	return fmt.Sprintf("threads:%d", userID)
}

func ThreadKey(threadID int64) string {
	return fmt.Sprintf("thread:%d", threadID)
}

func NotificationsKey(userID int64) string {
	return fmt.Sprintf("notifications:%d", userID)
}
