package conversation

// APIMessage is the projection of a stored message that is allowed to cross the
// provider boundary: exactly role and content, no metadata.
type APIMessage struct {
	Role    Role    `json:"role"`
	Content Content `json:"content"`
}

// ForAPI strips local bookkeeping from a message list, keeping only role and
// content for the outbound call.
func ForAPI(messages []*Message) []APIMessage {
	ret := make([]APIMessage, 0, len(messages))
	for _, msg := range messages {
		ret = append(ret, APIMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	return ret
}
