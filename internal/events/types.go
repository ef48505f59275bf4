package events

import "fmt"

// Event type constants follow the wire names the front end already binds to.
const (
	EventTypeNewMessage  = "new-message"
	EventTypeMessageSeen = "message-seen"
)

// Channel naming scheme, one channel per conversation.
const ChannelPrefixConversation = "conversation-"

// ConversationChannel returns the channel name for a conversation.
func ConversationChannel(conversationID int64) string {
	return fmt.Sprintf("%s%d", ChannelPrefixConversation, conversationID)
}
