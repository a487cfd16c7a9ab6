// Package pdfextract pulls the plain text out of an uploaded PDF.
package pdfextract

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

var ErrEmpty = errors.New("pdf is empty")

// Text returns the concatenated plain text of every page. A PDF whose pages
// carry no text layer yields an empty string and no error.
func Text(data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return string(out), nil
}
