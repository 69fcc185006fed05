// Package storage keeps uploaded evaluated documents (marked-up PDFs).
package storage

import (
	"fmt"
	"io"
	"path"
	"strings"
)

// BlobStore stores opaque documents under slash-separated keys.
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
}

// DocumentKey builds the key an attempt's evaluated document is stored under.
func DocumentKey(attemptID, filename string) (string, error) {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if attemptID == "" || name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("attempt id and file name are required")
	}
	return path.Join("attempts", attemptID, "evaluated", name), nil
}
