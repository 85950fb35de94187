// Package ingest validates uploaded workbooks and turns them into JSON by
// running an external converter process.
package ingest

import (
	"mime"
	"path/filepath"
	"strings"

	"commissioning-backend/internal/apperr"

	"github.com/gabriel-vasile/mimetype"
)

const (
	mimeXLSX        = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeXLS         = "application/vnd.ms-excel"
	mimeOctetStream = "application/octet-stream"
)

var workbookExtensions = map[string]bool{".xlsx": true, ".xls": true}

// declared content types accepted next to the sniffed signature
var declaredWorkbookTypes = map[string]bool{
	mimeXLSX:                    true,
	mimeXLS:                     true,
	"application/zip":           true,
	"application/x-ole-storage": true,
	mimeOctetStream:             true,
}

// IsWorkbookName reports whether filename carries a workbook extension.
func IsWorkbookName(filename string) bool {
	return workbookExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Validate checks an uploaded workbook before any converter runs. The name
// must carry a workbook extension, the content must sniff as a workbook, and
// a declared content type, when given, must be one a browser sends for one.
func Validate(filename, declaredType string, data []byte) error {
	if !IsWorkbookName(filename) {
		return apperr.New(apperr.KindInvalidFileType, "only .xlsx and .xls files are accepted")
	}
	if len(data) == 0 {
		return apperr.New(apperr.KindInvalidFileType, "uploaded workbook is empty")
	}

	if declaredType != "" {
		mediaType, _, err := mime.ParseMediaType(declaredType)
		if err != nil || !declaredWorkbookTypes[strings.ToLower(mediaType)] {
			return apperr.New(apperr.KindInvalidFileType, "content type %q is not a workbook", declaredType)
		}
	}

	detected := mimetype.Detect(data)
	if !isWorkbook(detected) {
		return apperr.New(apperr.KindInvalidFileType, "file content is %s, not a workbook", detected.String())
	}
	return nil
}

func isWorkbook(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is(mimeXLSX) || m.Is(mimeXLS) {
			return true
		}
	}
	return false
}
