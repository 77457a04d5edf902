// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package ingest turns a user-supplied document into confirmed transaction
records, with the user confirming before anything is persisted.

Flow:

	Select ─► Validate ─► Analyze ─► ParseReply ─► FilterCandidates ─► Commit

Validation is local only. The model's reply is parsed into a tagged [Reply],
and invalid candidates are filtered in a separate step. Commit is a
sequential, best-effort fold over the surviving candidates.
*/
package ingest

import (
	"fmt"
	"mime"
	"path/filepath"
	"slices"
	"strings"

	"github.com/taibuivan/warungpintar/internal/platform/apperr"
)

// MaxFileSize is the largest accepted upload, inclusive.
const MaxFileSize = 10 << 20

// AllowedMediaTypes lists the document types the model can read.
var AllowedMediaTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"application/pdf",
	"text/plain",
	"text/csv",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// UploadedFile is the file of one ingestion attempt.
type UploadedFile struct {
	Name      string
	Size      int64
	MediaType string
	Data      []byte
}

// NewUploadedFile builds an [UploadedFile], normalizing the declared media
// type. Browsers that send no type (or a generic one) get it inferred from
// the file extension.
func NewUploadedFile(name, declaredType string, data []byte) UploadedFile {
	return UploadedFile{
		Name:      filepath.Base(name),
		Size:      int64(len(data)),
		MediaType: normalizeMediaType(name, declaredType),
		Data:      data,
	}
}

func normalizeMediaType(name, declared string) string {
	if parsed, _, err := mime.ParseMediaType(declared); err == nil && parsed != "application/octet-stream" {
		return strings.ToLower(parsed)
	}

	byExtension := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if parsed, _, err := mime.ParseMediaType(byExtension); err == nil {
		return strings.ToLower(parsed)
	}
	return "application/octet-stream"
}

// Validate performs the local checks of an upload: media type allow-list
// membership and size. It never touches the network.
func Validate(file UploadedFile) error {
	if !slices.Contains(AllowedMediaTypes, file.MediaType) {
		return apperr.UnsupportedMediaType(fmt.Sprintf(
			"File type %s is not supported. Upload an image, PDF, CSV, Excel or text file.", file.MediaType))
	}
	if file.Size > MaxFileSize {
		return apperr.PayloadTooLarge("File is larger than 10 MB")
	}
	if file.Size == 0 {
		return apperr.ValidationError("File is empty", apperr.FieldError{Field: "file", Message: "Must not be empty"})
	}
	return nil
}
