package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestTextPlainFile(t *testing.T) {
	got, err := Text("notes.TXT", []byte("hello\x00 world"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello world" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestTextUnsupportedExtension(t *testing.T) {
	_, err := Text("slides.pptx", []byte("data"))
	var unsupported *UnsupportedFileTypeError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedFileTypeError, got %v", err)
	}
	if !strings.Contains(unsupported.Error(), "slides.pptx") {
		t.Fatalf("error should carry the filename: %v", unsupported)
	}
}

func TestTextEmptyFile(t *testing.T) {
	if _, err := Text("a.txt", nil); err == nil {
		t.Fatal("expected error for empty file")
	}
}

func TestTextDocx(t *testing.T) {
	doc := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t>from</w:t></w:r></w:p>
    <w:p><w:r><w:t>docx</w:t></w:r></w:p>
  </w:body>
</w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := f.Write([]byte(doc)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	got, err := Text("report.docx", buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hello from docx" {
		t.Fatalf("unexpected docx text: %q", got)
	}
}

func TestTextDocxNotAZip(t *testing.T) {
	if _, err := Text("report.docx", []byte("plainly not a zip")); err == nil {
		t.Fatal("expected error for invalid docx container")
	}
}
