/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package replay

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Source yields the transaction log. Every call to Open must return the same
// bytes in the same order, since a run reads the log twice.
type Source interface {
	Open() (io.ReadCloser, error)
	Name() string
}

// FileSource re-opens a file for every pass.
type FileSource struct {
	Path string
}

// NewFileSource returns a Source reading the file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Open opens the file from the beginning. Errors keep the underlying OS error.
func (s *FileSource) Open() (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening transaction log")
	}
	return f, nil
}

func (s *FileSource) Name() string {
	return s.Path
}

// BufferedSource holds a log that cannot be read twice, such as stdin, in memory.
type BufferedSource struct {
	name string
	data []byte
}

// NewBufferedSource drains reader once.
func NewBufferedSource(name string, reader io.Reader) (*BufferedSource, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrapf(err, "error buffering %s", name)
	}
	return &BufferedSource{name: name, data: data}, nil
}

// Open replays the buffered bytes from the start.
func (s *BufferedSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

func (s *BufferedSource) Name() string {
	return s.name
}
