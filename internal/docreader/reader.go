// Package docreader extracts plain text from uploaded documents so the chat
// flows can forward it inline with a prompt.
package docreader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Document is one extracted file's text.
type Document struct {
	Name string
	Text string
}

// ExtractFile reads the staged file at path and returns its text. PDF pages
// are concatenated; anything else is treated as plain text.
func ExtractFile(path, name string) (Document, error) {
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		text, err := extractPDF(path)
		if err != nil {
			return Document{}, fmt.Errorf("extract pdf %s: %w", name, err)
		}
		return Document{Name: name, Text: text}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read document %s: %w", name, err)
	}
	return Document{Name: name, Text: string(data)}, nil
}

func extractPDF(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for pageIndex := 1; pageIndex <= reader.NumPage(); pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the document.
			continue
		}
		text.WriteString(pageText)
		text.WriteString("\n")
	}
	return text.String(), nil
}

// Merge concatenates extracted documents into the single text that is bound
// to a multi-document session, labelling each file.
func Merge(docs []Document) string {
	if len(docs) == 1 {
		return docs[0].Text
	}
	var merged strings.Builder
	for i, doc := range docs {
		if i > 0 {
			merged.WriteString("\n")
		}
		fmt.Fprintf(&merged, "--- %s ---\n", doc.Name)
		merged.WriteString(doc.Text)
	}
	return merged.String()
}
