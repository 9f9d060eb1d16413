package domain

import (
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// AttachmentFields carries the raw candidate values for a file or image
// attachment. All four fields travel together with their message.
type AttachmentFields struct {
	FileName string `json:"file_name" validate:"required,max=255"`
	FileURL  string `json:"file_url" validate:"required,url"`
	FileSize int64  `json:"file_size" validate:"gt=0"`
	MimeType string `json:"mime_type" validate:"required"`
}

// Attachment is a validated file reference carried by image and file
// messages.
type Attachment struct {
	FileName string
	FileURL  string
	FileSize int64
	MimeType string
}

// Extensions that name the same media type as the canonical one the
// mimetype database reports.
var extensionAliases = map[string]string{
	".jpeg": ".jpg",
	".htm":  ".html",
	".tif":  ".tiff",
	".midi": ".mid",
}

// newAttachment validates the declared file metadata. The declared MIME
// type must be a known media type, and a file name extension, when
// present, must agree with it.
func newAttachment(f AttachmentFields) (*Attachment, Violations) {
	f.FileName = strings.TrimSpace(f.FileName)
	f.FileURL = strings.TrimSpace(f.FileURL)
	f.MimeType = strings.ToLower(strings.TrimSpace(f.MimeType))

	violations := fieldViolations(validate.Struct(f))

	if f.MimeType != "" {
		known := mimetype.Lookup(f.MimeType)
		if known == nil {
			violations = append(violations, fmt.Sprintf("mime_type %q is not a known media type", f.MimeType))
		} else if ext := canonicalExtension(f.FileName); ext != "" && ext != known.Extension() {
			violations = append(violations, fmt.Sprintf("file_name extension %q does not match mime_type %q", ext, f.MimeType))
		}
	}

	if !violations.OK() {
		return nil, violations
	}
	return &Attachment{
		FileName: f.FileName,
		FileURL:  f.FileURL,
		FileSize: f.FileSize,
		MimeType: f.MimeType,
	}, nil
}

func canonicalExtension(fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	if alias, ok := extensionAliases[ext]; ok {
		return alias
	}
	return ext
}
