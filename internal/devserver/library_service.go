package devserver

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"docqa/internal/model"
	"docqa/internal/pkg/pdfextract"
	"docqa/internal/repository"
)

const (
	MaxUploadSize       = 10 << 20 // 10 MB
	MaxDocumentsPerUser = 100

	defaultChunkSize    = 800
	defaultChunkOverlap = 100
)

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".txt":  true,
	".docx": true,
}

// LibraryService keeps document metadata. Content is read only to report a
// chunk count; nothing is indexed.
type LibraryService struct {
	docRepo      *repository.DocumentRepository
	now          func() time.Time
	maxDocuments int64
}

type UploadInput struct {
	UserID   string
	Filename string
	Content  io.Reader
}

type UploadResult struct {
	Document   model.StoredDocument
	ChunkCount int
}

func NewLibraryService(docRepo *repository.DocumentRepository) *LibraryService {
	return &LibraryService{docRepo: docRepo, now: time.Now, maxDocuments: MaxDocumentsPerUser}
}

func (s *LibraryService) Upload(input UploadInput) (*UploadResult, error) {
	name := strings.TrimSpace(filepath.Base(input.Filename))
	if input.UserID == "" || name == "" || name == "." || input.Content == nil {
		return nil, ErrInvalidInput
	}
	if !allowedExtensions[strings.ToLower(filepath.Ext(name))] {
		return nil, ErrUnsupportedFile
	}
	count, err := s.docRepo.CountByUserID(input.UserID)
	if err != nil {
		return nil, err
	}
	if count >= s.maxDocuments {
		return nil, ErrDocumentLimit
	}

	data, err := io.ReadAll(io.LimitReader(input.Content, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload failed: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, ErrFileTooLarge
	}
	text, err := documentText(name, data)
	if err != nil {
		return nil, err
	}
	chunks := chunkText(text, defaultChunkSize, defaultChunkOverlap)
	if len(chunks) == 0 {
		return nil, ErrInvalidInput
	}

	doc := model.StoredDocument{
		ID:         uuid.NewString(),
		UserID:     input.UserID,
		Filename:   name,
		SizeBytes:  int64(len(data)),
		UploadedAt: s.now().UTC(),
	}
	if err := s.docRepo.Create(&doc); err != nil {
		return nil, err
	}
	return &UploadResult{Document: doc, ChunkCount: len(chunks)}, nil
}

func (s *LibraryService) List(userID string) ([]model.StoredDocument, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.docRepo.ListByUserID(userID)
}

// chunkText splits text into overlapping chunks by rune count.
func chunkText(text string, size, overlap int) []string {
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap >= size {
		overlap = size / 2
	}
	var chunks []string
	runes := []rune(strings.TrimSpace(text))
	for i := 0; i < len(runes); {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		i += size - overlap
	}
	return chunks
}

// documentText returns the text to chunk. PDFs are parsed; other formats are
// counted as raw bytes.
func documentText(name string, data []byte) (string, error) {
	if strings.ToLower(filepath.Ext(name)) != ".pdf" {
		return string(data), nil
	}
	text, err := pdfextract.Text(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}
	return text, nil
}
