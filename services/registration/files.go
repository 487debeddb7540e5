package registration

import (
	"net/http"
)

// MaxFileSize is the upload ceiling for identity and KYC documents.
const MaxFileSize = 5 << 20 // 5 MB

// imageMIMETypes are accepted for photo fields; documentMIMETypes add PDF
// for fields that accept scanned documents.
var (
	imageMIMETypes = map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/webp": true,
	}
	documentMIMETypes = map[string]bool{
		"image/jpeg":      true,
		"image/png":       true,
		"image/webp":      true,
		"application/pdf": true,
	}
)

// FileUpload is one attached file held in an in-progress draft.
type FileUpload struct {
	FileName string
	Content  []byte
}

// CheckFile validates one upload against the size ceiling and MIME
// allow-list before it may be attached to the draft. The MIME type is
// sniffed from content, not trusted from the filename. allowPDF widens the
// allow-list for document fields. The returned message names the specific
// failing rule, empty when the file passes.
func CheckFile(f *FileUpload, allowPDF bool) string {
	if f == nil || len(f.Content) == 0 {
		return MsgRequired
	}
	if len(f.Content) > MaxFileSize {
		return MsgFileTooLarge
	}

	contentType := http.DetectContentType(f.Content)
	allowed := imageMIMETypes
	if allowPDF {
		allowed = documentMIMETypes
	}
	if !allowed[contentType] {
		return MsgFileBadType
	}
	return ""
}
