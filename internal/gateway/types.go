package gateway

// Wire shapes of the remote service. Callers convert them to domain types.

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type DocumentRecord struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	UploadedAt string `json:"uploaded_at"`
}

type UploadResponse struct {
	ID              string `json:"id"`
	Filename        string `json:"filename"`
	ChunksProcessed int    `json:"chunks_processed"`
	Message         string `json:"message"`
}

type ConversationRecord struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

type MessageRecord struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	IsUser    bool   `json:"is_user"`
	Timestamp string `json:"timestamp"`
}

type AskRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type AskResponse struct {
	Answer         string   `json:"answer"`
	Sources        []string `json:"sources"`
	ConversationID string   `json:"conversation_id,omitempty"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
