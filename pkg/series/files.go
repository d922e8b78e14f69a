package series

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// CompressedSuffix marks files stored as LZ4 frames.
const CompressedSuffix = ".lz4"

// Compressed reports whether path names an LZ4-compressed file.
func Compressed(path string) bool {
	return strings.EqualFold(filepath.Ext(path), CompressedSuffix)
}

type readCloser struct {
	io.Reader

	file *os.File
}

func (rc *readCloser) Close() error {
	return rc.file.Close()
}

type writeCloser struct {
	io.Writer

	frame *lz4.Writer
	file  *os.File
}

func (wc *writeCloser) Close() error {
	var frameErr error
	if wc.frame != nil {
		frameErr = wc.frame.Close()
	}

	return errors.Join(frameErr, wc.file.Close())
}

// OpenFile opens path for reading, decompressing LZ4 frames when the name ends
// in CompressedSuffix.
func OpenFile(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if !Compressed(path) {
		return file, nil
	}

	return &readCloser{Reader: lz4.NewReader(file), file: file}, nil
}

// CreateFile creates path for writing, compressing with LZ4 frames when the
// name ends in CompressedSuffix. Close flushes the frame before closing the file.
func CreateFile(path string) (io.WriteCloser, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	if !Compressed(path) {
		return &writeCloser{Writer: file, file: file}, nil
	}

	frame := lz4.NewWriter(file)

	return &writeCloser{Writer: frame, frame: frame, file: file}, nil
}

// ReadFile loads a series from a CSV file, named after the file.
func ReadFile(path string, opts CSVOptions) (Series, error) {
	rc, err := OpenFile(path)
	if err != nil {
		return Series{}, err
	}
	defer rc.Close()

	s, err := ReadCSV(rc, opts)
	if err != nil {
		return Series{}, fmt.Errorf("read %s: %w", path, err)
	}

	s.Name = BaseName(path)

	return s, nil
}

// WriteFile stores s as a CSV file at path.
func WriteFile(path string, s Series, opts CSVOptions, extra ...Column) error {
	wc, err := CreateFile(path)
	if err != nil {
		return err
	}

	writeErr := WriteCSV(wc, s, opts, extra...)

	return errors.Join(writeErr, wc.Close())
}

// BaseName strips the directory plus the compression and .csv extensions from path.
func BaseName(path string) string {
	name := filepath.Base(path)

	if Compressed(name) {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}

	return strings.TrimSuffix(name, filepath.Ext(name))
}
