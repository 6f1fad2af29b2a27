package model

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// DownloadRequest describes a single file download
type DownloadRequest struct {
	URL      string // Source URL, or a local file path that is used as-is if it exists
	Dir      string // Destination directory; the file name is taken from URL
	File     string // Explicit destination file, used when Dir is empty
	Unzip    bool   // Extract .zip, .tar and .gz archives after download
	Delete   bool   // Remove the archive after extraction
	External bool   // Use the external download tool for every attempt
	Retry    int    // Number of retries after the first attempt
	MinBytes int64  // Downloaded file must be strictly larger than this
	Progress bool   // Report transfer progress
}

// Destination returns the local path the request downloads to. A destination without a
// usable file name, which would resolve to a directory, is an error.
func (r *DownloadRequest) Destination() (string, error) {
	if r.Dir != "" {
		name := BaseName(r.URL)
		if !ValidFileName(name) {
			return "", goerr.New("URL has no file name", goerr.V("url", r.URL))
		}
		return filepath.Join(r.Dir, name), nil
	}
	if r.File != "" {
		if !ValidFileName(filepath.Base(r.File)) {
			return "", goerr.New("destination has no file name", goerr.V("file", r.File))
		}
		return r.File, nil
	}
	return "", goerr.New("dir or file required for download", goerr.V("url", r.URL))
}

// DownloadResult represents the outcome of a single download
type DownloadResult struct {
	Success  bool   // True when the file is present and passed the size guard
	Path     string // Local path of the file, set on success
	Attempts int    // Number of transfer attempts made
}

// BatchRequest describes a multi-file download into one directory
type BatchRequest struct {
	URLs     []string
	Dir      string
	Unzip    bool
	Delete   bool
	External bool
	Threads  int
	Retry    int
}

// ValidFileName reports whether name can be the last element of a destination file path
func ValidFileName(name string) bool {
	switch name {
	case "", ".", "..", "/", string(filepath.Separator):
		return false
	}
	return true
}

// BaseName returns the last path element of a URL or file path
func BaseName(src string) string {
	src = strings.TrimRight(src, "/")
	if i := strings.LastIndex(src, "/"); i >= 0 {
		return src[i+1:]
	}
	return path.Base(src)
}
