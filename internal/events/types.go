package events

// Client-facing event names. These keep the colon style existing clients
// already parse.
const (
	EventMessageReceive = "message:receive"
	EventMessageSent    = "message:sent"
	EventMessageRead    = "message:read"
	EventMessageEdited  = "message:edited"
	EventMessageDeleted = "message:deleted"
	EventMessageReacted = "message:reaction"

	EventTypingStart = "typing:start"
	EventTypingStop  = "typing:stop"

	EventUserStatus = "user:status"

	EventStatusNew     = "status:new"
	EventStatusViewed  = "status:viewed"
	EventStatusReacted = "status:reaction"
	EventStatusComment = "status:comment"
	EventStatusDeleted = "status:deleted"

	EventNotificationNew = "notification:new"

	EventChatCreated      = "chat:created"
	EventRecentChatUpdate = "recent:chat:update"
)

// Redis channel prefixes for the cross-instance bridge.
const (
	ChannelPrefixUser = "channel:user:"
	ChannelBroadcast  = "channel:broadcast"
)
