// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/warungpintar/internal/platform/apperr"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mediaType string
		size      int64
		wantCode  string
	}{
		{"jpeg", "image/jpeg", 2 << 20, ""},
		{"excel", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", 1024, ""},
		{"exactly max size", "application/pdf", MaxFileSize, ""},
		{"one byte over", "application/pdf", MaxFileSize + 1, "PAYLOAD_TOO_LARGE"},
		{"zip", "application/zip", 1024, "UNSUPPORTED_MEDIA_TYPE"},
		{"unknown", "application/octet-stream", 1024, "UNSUPPORTED_MEDIA_TYPE"},
		{"empty", "text/csv", 0, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(UploadedFile{Name: "f", MediaType: tt.mediaType, Size: tt.size})
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			appErr := apperr.As(err)
			if assert.NotNil(t, appErr) {
				assert.Equal(t, tt.wantCode, appErr.Code)
			}
		})
	}
}

func TestNewUploadedFile_MediaType(t *testing.T) {
	assert.Equal(t, "image/png", NewUploadedFile("struk.png", "image/png", []byte("x")).MediaType)
	assert.Equal(t, "text/csv", NewUploadedFile("data.csv", "text/csv; charset=utf-8", []byte("x")).MediaType)
	assert.Equal(t, "application/pdf", NewUploadedFile("nota.PDF", "", []byte("x")).MediaType)
	assert.Equal(t, "application/pdf", NewUploadedFile("nota.pdf", "application/octet-stream", []byte("x")).MediaType)
	assert.Equal(t, "application/octet-stream", NewUploadedFile("blob", "", []byte("x")).MediaType)

	file := NewUploadedFile("../../etc/struk.jpg", "image/jpeg", []byte("abc"))
	assert.Equal(t, "struk.jpg", file.Name)
	assert.Equal(t, int64(3), file.Size)
}
