package document

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rmehran/campuschat/internal/model"
)

const docxBody = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Introduction to the module.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Assessment is by </w:t></w:r><w:r><w:t>coursework.</w:t></w:r></w:p>
    <w:p><w:r><w:t> </w:t></w:r></w:p>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Week</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>Topic</w:t></w:r></w:p></w:tc>
      </w:tr>
      <w:tr>
        <w:tc><w:p><w:r><w:t>1</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>Foundations</w:t></w:r></w:p></w:tc>
      </w:tr>
    </w:tbl>
  </w:body>
</w:document>`

func writeDOCX(t *testing.T, dir, name, body string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte(body)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
}

func TestReadDOCX(t *testing.T) {
	dir := t.TempDir()
	writeDOCX(t, dir, "notes.docx", docxBody)

	text, meta, err := readDOCX(filepath.Join(dir, "notes.docx"))
	if err != nil {
		t.Fatalf("readDOCX: %v", err)
	}

	if !strings.Contains(text, "Introduction to the module.") {
		t.Errorf("text missing first paragraph: %q", text)
	}
	if !strings.Contains(text, "Assessment is by coursework.") {
		t.Errorf("split runs should be joined: %q", text)
	}
	if !strings.Contains(text, "--- Table 1 ---") {
		t.Errorf("text missing table marker: %q", text)
	}
	if !strings.Contains(text, "Week | Topic") {
		t.Errorf("table cells should be pipe-joined: %q", text)
	}
	if meta.Paragraphs != 2 {
		t.Errorf("Paragraphs = %d, want 2 (blank paragraph skipped)", meta.Paragraphs)
	}
	if meta.Tables != 1 {
		t.Errorf("Tables = %d, want 1", meta.Tables)
	}
}

func TestLoadFileCounts(t *testing.T) {
	dir := t.TempDir()
	writeDOCX(t, dir, "notes.docx", docxBody)

	text, meta, err := NewLoader(dir).LoadFile("notes.docx")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if meta.Words != len(strings.Fields(text)) {
		t.Errorf("Words = %d, want %d", meta.Words, len(strings.Fields(text)))
	}
	if meta.Chars != len(text) {
		t.Errorf("Chars = %d, want %d", meta.Chars, len(text))
	}
	if meta.FileType != "Word Document" {
		t.Errorf("FileType = %q", meta.FileType)
	}
}

func TestLoadFileUnsupported(t *testing.T) {
	_, _, err := NewLoader(t.TempDir()).LoadFile("notes.txt")
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("err = %v, want unsupported file type", err)
	}
}

func TestLoadAggregateSkipsFailed(t *testing.T) {
	dir := t.TempDir()
	writeDOCX(t, dir, "good.docx", docxBody)

	sel := model.ModuleSelection{
		ModuleName: "CS101",
		AllFiles:   true,
		Documents: []model.DocumentDescriptor{
			{ModuleName: "CS101", FileName: "good.docx", DisplayName: "Good", CourseworkType: "Lecture Notes"},
			{ModuleName: "CS101", FileName: "missing.docx", DisplayName: "Missing", CourseworkType: "Reading Material"},
		},
	}

	doc, err := NewLoader(dir).Load(sel)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.Contains(doc.Text, "Good (Lecture Notes)") {
		t.Errorf("aggregate text missing banner: %q", doc.Text)
	}
	if !strings.Contains(doc.Text, "File: good.docx") {
		t.Errorf("banner should name the file: %q", doc.Text)
	}
	if len(doc.Meta.Files) != 1 || doc.Meta.Files[0] != "good.docx" {
		t.Errorf("Files = %v", doc.Meta.Files)
	}
	if len(doc.Meta.SkippedFiles) != 1 || doc.Meta.SkippedFiles[0] != "missing.docx" {
		t.Errorf("SkippedFiles = %v", doc.Meta.SkippedFiles)
	}
}

func TestLoadAggregateAllFailed(t *testing.T) {
	sel := model.ModuleSelection{
		ModuleName: "CS101",
		AllFiles:   true,
		Documents: []model.DocumentDescriptor{
			{FileName: "a.docx"},
			{FileName: "b.docx"},
		},
	}
	if _, err := NewLoader(t.TempDir()).Load(sel); err == nil {
		t.Error("expected error when no constituent loads")
	}
}

func TestLoadSingleMissing(t *testing.T) {
	sel := model.ModuleSelection{
		ModuleName: "CS101",
		Documents:  []model.DocumentDescriptor{{FileName: "missing.docx"}},
	}
	if _, err := NewLoader(t.TempDir()).Load(sel); err == nil {
		t.Error("expected error for missing single document")
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("short", 100); got != "short" {
		t.Errorf("Preview(short) = %q", got)
	}

	long := strings.Repeat("word ", 30) + "end of sentence. " + strings.Repeat("tail ", 10)
	got := Preview(long, 180)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("long preview should be elided: %q", got)
	}
	if len(got) > 190 {
		t.Errorf("preview too long: %d chars", len(got))
	}
}
