package document

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rmehran/campuschat/internal/model"
)

// WordprocessingML subset: body paragraphs and tables. encoding/xml
// matches on local names, so the w: namespace needs no handling.
type docxXML struct {
	Paragraphs []docxParagraph `xml:"body>p"`
	Tables     []docxTable     `xml:"body>tbl"`
}

type docxParagraph struct {
	Texts []string `xml:"r>t"`
}

type docxTable struct {
	Rows []docxRow `xml:"tr"`
}

type docxRow struct {
	Cells []docxCell `xml:"tc"`
}

type docxCell struct {
	Texts []string `xml:"p>r>t"`
}

func readDOCX(path string) (string, model.DocumentMeta, error) {
	var meta model.DocumentMeta
	meta.FileType = "Word Document"

	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", meta, fmt.Errorf("open docx %s: %w", filepath.Base(path), err)
	}
	defer zr.Close()

	var raw []byte
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			if err != nil {
				return "", meta, fmt.Errorf("open document.xml in %s: %w", filepath.Base(path), err)
			}
			raw, err = io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return "", meta, fmt.Errorf("read document.xml in %s: %w", filepath.Base(path), err)
			}
			break
		}
	}
	if raw == nil {
		return "", meta, fmt.Errorf("%s: no word/document.xml entry", filepath.Base(path))
	}

	var doc docxXML
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return "", meta, fmt.Errorf("parse document.xml in %s: %w", filepath.Base(path), err)
	}

	var parts []string
	for _, p := range doc.Paragraphs {
		text := strings.TrimSpace(strings.Join(p.Texts, ""))
		if text == "" {
			continue
		}
		parts = append(parts, text)
		meta.Paragraphs++
	}

	meta.Tables = len(doc.Tables)
	for i, tbl := range doc.Tables {
		parts = append(parts, fmt.Sprintf("\n--- Table %d ---", i+1))
		for _, row := range tbl.Rows {
			var cells []string
			for _, c := range row.Cells {
				if text := strings.TrimSpace(strings.Join(c.Texts, "")); text != "" {
					cells = append(cells, text)
				}
			}
			if len(cells) > 0 {
				parts = append(parts, strings.Join(cells, " | "))
			}
		}
	}

	return strings.Join(parts, "\n"), meta, nil
}
