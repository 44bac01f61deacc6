package roster

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, header []any, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		t.Fatalf("write header: %v", err)
	}
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cellRef, &row); err != nil {
			t.Fatalf("write row %d: %v", i, err)
		}
	}
	path := filepath.Join(t.TempDir(), "roster.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func testHeader() []any {
	return []any{"Student ID", "Code", "Programme", "Module", "PDF File"}
}

func TestLoadBuildsIndices(t *testing.T) {
	path := writeWorkbook(t, testHeader(), [][]any{
		{"A00034131", 1234, "Computing", "CS101", "lecture_notes.pdf"},
		{"A00034131", 1234, "Computing", "CS101", "coursework1_brief.pdf"},
		{"A00034131", 1234, "Computing", "CS205", "reading_pack.docx"},
		{"B00099001", 5678, "Business", "BM200", "exam_guide.pdf"},
	})

	data, err := New(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(data.Students) != 2 {
		t.Fatalf("students = %d, want 2", len(data.Students))
	}

	rec := data.Students["A00034131"]
	if rec == nil {
		t.Fatal("student A00034131 missing")
	}
	if rec.Code != 1234 || rec.Programme != "Computing" {
		t.Errorf("record = %+v", rec)
	}
	if len(rec.ModuleNames) != 2 || rec.ModuleNames[0] != "CS101" {
		t.Errorf("ModuleNames = %v", rec.ModuleNames)
	}
	if len(rec.Modules["CS101"]) != 2 {
		t.Errorf("CS101 documents = %d, want 2", len(rec.Modules["CS101"]))
	}

	doc := rec.Modules["CS101"][1]
	if doc.CourseworkType != "Coursework 1" {
		t.Errorf("CourseworkType = %q", doc.CourseworkType)
	}
	if doc.DisplayName != "Coursework1 Brief" {
		t.Errorf("DisplayName = %q", doc.DisplayName)
	}

	if got := data.Programmes["Computing"]; len(got) != 2 {
		t.Errorf("Computing modules = %v", got)
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	path := writeWorkbook(t, testHeader(), [][]any{
		{"A00034131", 1234, "Computing", "CS101", "notes.pdf"},
	})

	s := New(path)
	first, err := s.Load()
	if err != nil {
		t.Fatalf("first Load: %v", err)
	}
	second, err := s.Load()
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if first != second {
		t.Error("second Load should return the cached value")
	}
	if s.loads != 1 {
		t.Errorf("workbook read %d times, want 1", s.loads)
	}

	if _, err := s.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if s.loads != 2 {
		t.Errorf("workbook read %d times after Reload, want 2", s.loads)
	}
}

func TestLoadMissingColumns(t *testing.T) {
	path := writeWorkbook(t,
		[]any{"Student ID", "Programme", "Module"},
		[][]any{{"A00034131", "Computing", "CS101"}},
	)

	_, err := New(path).Load()
	if err == nil {
		t.Fatal("expected error for missing columns")
	}
	for _, col := range []string{"Code", "PDF File"} {
		if !strings.Contains(err.Error(), col) {
			t.Errorf("error %q should name missing column %q", err, col)
		}
	}
}

func TestValidateCredentials(t *testing.T) {
	path := writeWorkbook(t, testHeader(), [][]any{
		{"A00034131", 1234, "Computing", "CS101", "notes.pdf"},
	})
	s := New(path)

	t.Run("success with lowercase id", func(t *testing.T) {
		rec, cerr := s.ValidateCredentials("  a00034131 ", "1234")
		if cerr != nil {
			t.Fatalf("unexpected failure: %+v", cerr)
		}
		if rec.StudentID != "A00034131" {
			t.Errorf("StudentID = %q", rec.StudentID)
		}
	})

	t.Run("non-numeric code", func(t *testing.T) {
		_, cerr := s.ValidateCredentials("A00034131", "12AB")
		if cerr == nil || cerr.Key != "CodeNotNumber" {
			t.Errorf("cerr = %+v, want CodeNotNumber", cerr)
		}
	})

	t.Run("unknown student", func(t *testing.T) {
		_, cerr := s.ValidateCredentials("Z99999999", "1234")
		if cerr == nil || cerr.Key != "StudentNotFound" {
			t.Errorf("cerr = %+v, want StudentNotFound", cerr)
		}
	})

	t.Run("wrong code", func(t *testing.T) {
		_, cerr := s.ValidateCredentials("A00034131", "9999")
		if cerr == nil || cerr.Key != "InvalidCode" {
			t.Errorf("cerr = %+v, want InvalidCode", cerr)
		}
	})
}

func TestStats(t *testing.T) {
	path := writeWorkbook(t, testHeader(), [][]any{
		{"A00034131", 1234, "Computing", "CS101", "notes.pdf"},
		{"A00034131", 1234, "Computing", "CS205", "slides.pdf"},
		{"B00099001", 5678, "Business", "BM200", "guide.pdf"},
	})

	got := New(path).Stats()
	want := Stats{Students: 2, Programmes: 2, Modules: 3}
	if got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}

func TestCourseworkTypeFromFile(t *testing.T) {
	tests := []struct{ file, want string }{
		{"CS101_coursework1.pdf", "Coursework 1"},
		{"Assignment2_brief.docx", "Assignment 2"},
		{"final_exam_guide.pdf", "Exam Material"},
		{"lecture_week3.pdf", "Lecture Notes"},
		{"reading_pack.pdf", "Reading Material"},
		{"syllabus.pdf", "Course Materials"},
	}
	for _, tt := range tests {
		if got := CourseworkTypeFromFile(tt.file); got != tt.want {
			t.Errorf("CourseworkTypeFromFile(%q) = %q, want %q", tt.file, got, tt.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct{ file, want string }{
		{"lecture_notes.pdf", "Lecture Notes"},
		{"CS101_overview.docx", "Cs101 Overview"},
		{"exam.pdf", "Exam"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.file); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.file, got, tt.want)
		}
	}
}
