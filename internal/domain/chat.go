package domain

// ChatRole is the author of a chat message as understood by the model.
type ChatRole string

const (
	ChatRoleUser  ChatRole = "user"
	ChatRoleModel ChatRole = "model"
)

// ChatMessage is one turn of the conversation sent by the client.
// Role "assistant" is accepted as an alias of "model".
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatTurn is a normalized turn sent to the model.
type ChatTurn struct {
	Role ChatRole
	Text string
}

// ChatRequest is the body of POST /v1/me/chat.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
	// WithContext prepends a summary of the user's finances to the last user turn.
	WithContext bool `json:"withContext,omitempty"`
}

// ChatResponse is the answer of POST /v1/me/chat.
type ChatResponse struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}
