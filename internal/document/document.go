// Package document extracts text from the course materials on disk.
// PDF pages go through go-fitz; DOCX files are unpacked directly (a
// docx is a zip of WordprocessingML).
package document

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/rmehran/campuschat/internal/model"
)

// Loader resolves file names against the data directory.
type Loader struct {
	dataDir string
}

// NewLoader creates a loader rooted at dataDir.
func NewLoader(dataDir string) *Loader {
	return &Loader{dataDir: dataDir}
}

// Load reads the documents for a module selection. A single-document
// selection loads that file; the "all materials" aggregate loads every
// constituent, prefixing each with a banner naming its source, and
// skips constituents that fail as long as at least one loads.
func (l *Loader) Load(sel model.ModuleSelection) (*model.Document, error) {
	if len(sel.Documents) == 0 {
		return nil, fmt.Errorf("module %s: no documents in selection", sel.ModuleName)
	}

	if !sel.AllFiles {
		d := sel.Documents[0]
		text, meta, err := l.LoadFile(d.FileName)
		if err != nil {
			return nil, err
		}
		meta.Files = []string{d.FileName}
		return &model.Document{Text: text, Meta: meta, Selection: sel}, nil
	}

	var sb strings.Builder
	var meta model.DocumentMeta
	meta.FileType = "Multiple Documents"

	for _, d := range sel.Documents {
		text, m, err := l.LoadFile(d.FileName)
		if err != nil {
			slog.Warn("skipping unreadable document",
				"module", sel.ModuleName, "file", d.FileName, "error", err)
			meta.SkippedFiles = append(meta.SkippedFiles, d.FileName)
			continue
		}
		sb.WriteString(banner(d))
		sb.WriteString(text)
		meta.Pages += m.Pages
		meta.Paragraphs += m.Paragraphs
		meta.Tables += m.Tables
		meta.Words += m.Words
		meta.Chars += m.Chars
		meta.Files = append(meta.Files, d.FileName)
	}

	if len(meta.Files) == 0 {
		return nil, fmt.Errorf("module %s: no documents could be loaded", sel.ModuleName)
	}
	return &model.Document{Text: sb.String(), Meta: meta, Selection: sel}, nil
}

// LoadFile extracts text and counts from one file in the data directory.
func (l *Loader) LoadFile(name string) (string, model.DocumentMeta, error) {
	path := filepath.Join(l.dataDir, filepath.Base(name))

	var text string
	var meta model.DocumentMeta
	var err error

	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		text, meta, err = readPDF(path)
	case ".docx":
		text, meta, err = readDOCX(path)
	default:
		return "", meta, fmt.Errorf("unsupported file type: %s", filepath.Ext(name))
	}
	if err != nil {
		return "", meta, err
	}

	meta.Words = len(strings.Fields(text))
	meta.Chars = len(text)
	return text, meta, nil
}

func banner(d model.DocumentDescriptor) string {
	line := strings.Repeat("=", 60)
	return fmt.Sprintf("\n\n%s\n%s (%s)\nFile: %s\n%s\n",
		line, d.DisplayName, d.CourseworkType, d.FileName, line)
}

func readPDF(path string) (string, model.DocumentMeta, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", model.DocumentMeta{}, fmt.Errorf("open pdf %s: %w", filepath.Base(path), err)
	}
	defer doc.Close()

	var sb strings.Builder
	pages := doc.NumPage()
	for n := 0; n < pages; n++ {
		text, err := doc.Text(n)
		if err != nil {
			slog.Warn("failed to extract pdf page", "file", filepath.Base(path), "page", n+1, "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		fmt.Fprintf(&sb, "\n--- Page %d ---\n", n+1)
		sb.WriteString(text)
	}

	return sb.String(), model.DocumentMeta{Pages: pages, FileType: "PDF"}, nil
}

// Preview returns the leading part of content, preferring to break at a
// sentence or paragraph boundary near the limit.
func Preview(content string, max int) string {
	if content == "" {
		return ""
	}
	if len(content) <= max {
		return content
	}

	head := content[:max]
	breakPoint := strings.LastIndex(head, ".")
	if nl := strings.LastIndex(head, "\n"); nl > breakPoint {
		breakPoint = nl
	}
	if breakPoint > max*7/10 {
		head = content[:breakPoint+1]
	}
	return head + "..."
}
