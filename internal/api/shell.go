// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// Shell serves the built single-page application.
//
// Build artefacts (scripts, styles, images) are served by [Shell.Assets]
// without a guard decision; any other path is a page and gets index.html so
// the client-side router can take over.
type Shell struct {
	files  fs.FS
	static http.Handler
}

// NewShell constructs a [Shell] over files, usually os.DirFS of the build
// output.
func NewShell(files fs.FS) *Shell {
	return &Shell{files: files, static: http.FileServerFS(files)}
}

// Assets serves existing files directly and passes everything else to pages.
func (shell *Shell) Assets(pages http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if shell.isAsset(request.URL.Path) {
			shell.static.ServeHTTP(writer, request)
			return
		}
		pages.ServeHTTP(writer, request)
	})
}

// ServeHTTP writes index.html.
func (shell *Shell) ServeHTTP(writer http.ResponseWriter, _ *http.Request) {
	index, err := fs.ReadFile(shell.files, "index.html")
	if err != nil {
		http.Error(writer, "application shell is not built", http.StatusServiceUnavailable)
		return
	}
	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = writer.Write(index)
}

func (shell *Shell) isAsset(requestPath string) bool {
	name := strings.TrimPrefix(path.Clean("/"+requestPath), "/")
	if name == "" || name == "index.html" {
		return false
	}
	info, err := fs.Stat(shell.files, name)
	return err == nil && !info.IsDir()
}
