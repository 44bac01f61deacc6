// Package roster loads the student/module/document spreadsheet and
// answers credential checks against it. The workbook is read once per
// process; Reload forces a fresh read.
package roster

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/rmehran/campuschat/internal/model"
)

// Required workbook columns, one row per (student, module, document).
var requiredColumns = []string{"Student ID", "Code", "Programme", "Module", "PDF File"}

// Data is the in-memory index built from the workbook. Read-only after
// construction.
type Data struct {
	Students   map[string]*model.StudentRecord
	StudentIDs []string
	Programmes map[string][]string // programme -> module names
}

// Stats summarizes the roster for the diagnostics page.
type Stats struct {
	Students   int
	Programmes int
	Modules    int
}

// CredentialError describes a failed credential check as a locale key
// plus template data, so the caller renders it in the session language.
type CredentialError struct {
	Key  string
	Data map[string]any
}

// Store owns the cached roster.
type Store struct {
	path string

	mu     sync.Mutex
	data   *Data
	err    error
	loaded bool
	loads  int
}

// New creates a store for the given workbook path. Nothing is read
// until the first Load.
func New(path string) *Store {
	return &Store{path: path}
}

// Load returns the roster, reading the workbook only on the first call.
// Subsequent calls return the cached result, including a cached error.
func (s *Store) Load() (*Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		s.data, s.err = s.read()
		s.loaded = true
	}
	return s.data, s.err
}

// Reload discards the cache and re-reads the workbook.
func (s *Store) Reload() (*Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data, s.err = s.read()
	s.loaded = true
	return s.data, s.err
}

func (s *Store) read() (*Data, error) {
	s.loads++

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open roster %s: %w", s.path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("roster %s: sheet %s is empty", s.path, sheet)
	}

	cols := map[string]int{}
	for i, name := range rows[0] {
		cols[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("roster %s: missing required columns: %s",
			s.path, strings.Join(missing, ", "))
	}

	cell := func(row []string, name string) string {
		i := cols[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	data := &Data{
		Students:   map[string]*model.StudentRecord{},
		Programmes: map[string][]string{},
	}

	for n, row := range rows[1:] {
		studentID := strings.ToUpper(cell(row, "Student ID"))
		if studentID == "" {
			continue
		}
		code, err := strconv.Atoi(cell(row, "Code"))
		if err != nil {
			return nil, fmt.Errorf("roster %s row %d: code %q is not a number",
				s.path, n+2, cell(row, "Code"))
		}
		programme := cell(row, "Programme")
		moduleName := cell(row, "Module")
		fileName := cell(row, "PDF File")

		rec, ok := data.Students[studentID]
		if !ok {
			rec = &model.StudentRecord{
				StudentID: studentID,
				Code:      code,
				Programme: programme,
				Modules:   map[string][]model.DocumentDescriptor{},
			}
			data.Students[studentID] = rec
			data.StudentIDs = append(data.StudentIDs, studentID)
		}

		if _, ok := rec.Modules[moduleName]; !ok {
			rec.ModuleNames = append(rec.ModuleNames, moduleName)
		}
		rec.Modules[moduleName] = append(rec.Modules[moduleName], model.DocumentDescriptor{
			ModuleName:     moduleName,
			Programme:      programme,
			FileName:       fileName,
			CourseworkType: CourseworkTypeFromFile(fileName),
			DisplayName:    DisplayName(fileName),
		})

		if !containsString(data.Programmes[programme], moduleName) {
			data.Programmes[programme] = append(data.Programmes[programme], moduleName)
		}
	}

	slog.Info("loaded student roster",
		"path", s.path, "students", len(data.Students), "programmes", len(data.Programmes))
	return data, nil
}

// ValidateCredentials checks a student ID and access code against the
// roster. The ID is trimmed and uppercased; the code must parse as an
// integer. The returned error distinguishes an unknown ID from a wrong
// code so the student gets useful feedback.
func (s *Store) ValidateCredentials(studentID, code string) (*model.StudentRecord, *CredentialError) {
	data, err := s.Load()
	if err != nil {
		return nil, &CredentialError{Key: "SetupError"}
	}

	studentID = strings.ToUpper(strings.TrimSpace(studentID))

	n, convErr := strconv.Atoi(strings.TrimSpace(code))
	if convErr != nil {
		return nil, &CredentialError{Key: "CodeNotNumber"}
	}

	rec, ok := data.Students[studentID]
	if !ok {
		return nil, &CredentialError{
			Key:  "StudentNotFound",
			Data: map[string]any{"StudentID": studentID},
		}
	}
	if rec.Code != n {
		return nil, &CredentialError{
			Key:  "InvalidCode",
			Data: map[string]any{"StudentID": studentID},
		}
	}
	return rec, nil
}

// Stats returns roster counts for the diagnostics page. Returns zeros
// when the roster failed to load.
func (s *Store) Stats() Stats {
	data, err := s.Load()
	if err != nil {
		return Stats{}
	}
	modules := map[string]bool{}
	for _, names := range data.Programmes {
		for _, name := range names {
			modules[name] = true
		}
	}
	return Stats{
		Students:   len(data.Students),
		Programmes: len(data.Programmes),
		Modules:    len(modules),
	}
}

// courseworkPatterns maps filename fragments to coursework-type labels,
// checked in order.
var courseworkPatterns = []struct{ fragment, label string }{
	{"coursework1", "Coursework 1"},
	{"coursework2", "Coursework 2"},
	{"coursework3", "Coursework 3"},
	{"assignment1", "Assignment 1"},
	{"assignment2", "Assignment 2"},
	{"assignment3", "Assignment 3"},
	{"exam", "Exam Material"},
	{"lecture", "Lecture Notes"},
	{"reading", "Reading Material"},
}

// CourseworkTypeFromFile derives a coursework-type label from a file name.
func CourseworkTypeFromFile(fileName string) string {
	lower := strings.ToLower(fileName)
	for _, p := range courseworkPatterns {
		if strings.Contains(lower, p.fragment) {
			return p.label
		}
	}
	return "Course Materials"
}

// DisplayName turns a file name into a user-friendly title: extension
// dropped, underscores to spaces, each word capitalized.
func DisplayName(fileName string) string {
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	words := strings.Fields(strings.ReplaceAll(stem, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
