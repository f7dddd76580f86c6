// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/krishna-gramener/adverse-events/internal/apperr"
)

// PDFMIMEType is the only MIME type the extractor accepts.
const PDFMIMEType = "application/pdf"

// Document is an uploaded file with its declared MIME type. Open is called
// once per request and must return the full content.
type Document struct {
	Name     string
	MIMEType string
	Open     func() (io.ReadCloser, error)
}

// FromFile returns a Document for path. The MIME type is declared from the
// extension, falling back to content sniffing when the extension is unknown.
func FromFile(path string) (Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Document{}, eris.Wrap(err, "failed to read file")
	}
	if info.IsDir() {
		return Document{}, eris.Errorf("failed to read file: %s is a directory", path)
	}

	mt := declaredType(path)
	if mt == "" {
		mt, err = sniffType(path)
		if err != nil {
			return Document{}, err
		}
	}

	return Document{
		Name:     filepath.Base(path),
		MIMEType: mt,
		Open:     func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// FromBytes returns an in-memory Document.
func FromBytes(name, mimeType string, data []byte) Document {
	return Document{
		Name:     name,
		MIMEType: mimeType,
		Open:     func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

// ValidateDocument rejects anything that is not declared application/pdf.
// It performs no IO.
func ValidateDocument(doc Document) error {
	mt, _, err := mime.ParseMediaType(doc.MIMEType)
	if err != nil || mt != PDFMIMEType {
		return apperr.FileType(doc.MIMEType)
	}
	if doc.Open == nil {
		return eris.New("failed to read file: document has no content")
	}
	return nil
}

func declaredType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return ""
	}
	if ext == ".pdf" {
		return PDFMIMEType
	}
	mt, _, _ := mime.ParseMediaType(mime.TypeByExtension(ext))
	return mt
}

func sniffType(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrap(err, "failed to read file")
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", eris.Wrap(err, "failed to read file")
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(head[:n]))
	return mt, nil
}
