package devserver

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrUsernameExists      = errors.New("username already registered")
	ErrInvalidCredential   = errors.New("incorrect username or password")
	ErrUnsupportedFile     = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds the upload limit")
	ErrUnreadableDocument  = errors.New("document could not be read")
	ErrDocumentLimit       = errors.New("document limit reached")
	ErrNoDocuments         = errors.New("no documents found for retrieval")
	ErrConversationMissing = errors.New("conversation not found")
)
