package cache

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

const fileExt = ".cache"

// Store keeps rendered responses on disk, one file per key. The first line
// of a file is the response content type, the rest is the body.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the cache file path for key
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, generateHash(key)+fileExt)
}

// generateHash generates an xxHash hash for the given string
func generateHash(key string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(key))
}

func (s *Store) Write(key, contentType string, body []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString(strings.ReplaceAll(contentType, "\n", ""))
	buf.WriteByte('\n')
	buf.Write(body)

	tmp, err := os.CreateTemp(s.dir, "tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.Path(key))
}

// Read returns the cached response for key if it exists and is not
// older than maxAge.
func (s *Store) Read(key string, maxAge time.Duration) (contentType string, body []byte, ok bool) {
	path := s.Path(key)

	info, err := os.Stat(path)
	if err != nil {
		return "", nil, false
	}
	if time.Since(info.ModTime()) > maxAge {
		return "", nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, false
	}
	head, rest, found := bytes.Cut(data, []byte("\n"))
	if !found {
		return "", nil, false
	}
	return string(head), rest, true
}

// Clear removes the cache file for key
func (s *Store) Clear(key string) error {
	err := os.Remove(s.Path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ClearAll drops every cached response.
func (s *Store) ClearAll() error {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*"+fileExt))
	if err != nil {
		return err
	}
	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// ClearOld removes cache files older than maxAge
func (s *Store) ClearOld(maxAge time.Duration) error {
	return filepath.Walk(s.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, fileExt) {
			return nil
		}
		if time.Since(info.ModTime()) > maxAge {
			os.Remove(path)
		}
		return nil
	})
}
