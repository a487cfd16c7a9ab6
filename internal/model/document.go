package model

type Document struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	UploadedAt string `json:"uploaded_at"`
}

type UploadState string

const (
	UploadPending UploadState = "pending"
	UploadSuccess UploadState = "success"
	UploadError   UploadState = "error"
)

// UploadTask is what the presentation layer renders for the current upload.
// Progress is a percentage in [0,100].
type UploadTask struct {
	FileName string      `json:"file_name"`
	Progress int         `json:"progress"`
	State    UploadState `json:"state"`
	Message  string      `json:"message,omitempty"`
}

func (t UploadTask) Terminal() bool {
	return t.State == UploadSuccess || t.State == UploadError
}
