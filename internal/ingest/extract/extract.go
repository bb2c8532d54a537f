package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// UnsupportedFileTypeError is fatal: the pipeline marks the document as
// errored and does not retry.
type UnsupportedFileTypeError struct {
	Filename string
}

func (e *UnsupportedFileTypeError) Error() string {
	return fmt.Sprintf("unsupported file type: %s", e.Filename)
}

// Text converts a raw uploaded file into plain text based on the declared
// filename extension. Only txt, pdf and docx uploads are accepted.
func Text(filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty file: %s", filename)
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return Sanitize(string(data)), nil
	case ".pdf":
		text, err := extractPDF(data)
		if err != nil {
			return "", err
		}
		return Sanitize(text), nil
	case ".docx":
		text, err := extractDOCX(data)
		if err != nil {
			return "", err
		}
		return Sanitize(text), nil
	default:
		return "", &UnsupportedFileTypeError{Filename: filename}
	}
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return collapseWhitespace(string(b)), nil
}

// extractDOCX pulls the document body out of word/document.xml, gathering
// the <w:t> runs.
func extractDOCX(zipBytes []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return "", fmt.Errorf("docx is not a valid zip container: %w", err)
	}
	var f *zip.File
	for _, candidate := range zr.File {
		if candidate.Name == "word/document.xml" {
			f = candidate
			break
		}
	}
	if f == nil {
		return "", fmt.Errorf("docx missing word/document.xml")
	}
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	b, readErr := io.ReadAll(rc)
	_ = rc.Close()
	if readErr != nil {
		return "", readErr
	}

	s := collapseWhitespace(extractTextFromXML(b, "t"))
	if s == "" {
		return "", fmt.Errorf("no text extracted from docx")
	}
	return s, nil
}

func extractTextFromXML(xmlBytes []byte, local string) string {
	dec := xml.NewDecoder(bytes.NewReader(xmlBytes))
	var out strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != local {
			continue
		}
		var v string
		_ = dec.DecodeElement(&v, &se)
		if v != "" {
			out.WriteString(v)
			out.WriteString(" ")
		}
	}
	return out.String()
}

func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.Join(strings.Fields(s), " ")
}
