package resumable

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

const defaultContentType = "application/octet-stream"

// mime's builtin table has no video types, /etc/mime.types may be missing.
var mediaTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
}

func contentTypeOf(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := mediaTypes[ext]; ok {
		return ct
	}
	return mime.TypeByExtension(ext)
}

// Payload is the random access view of the uploaded data.
// Transports read the unsent region through ReadAt, so a failed chunk can be
// read again. *bytes.Reader and *File satisfy it.
type Payload interface {
	io.ReaderAt
	Size() int64
}

// File is a Payload backed by a file on disk.
type File struct {
	file        *os.File
	size        int64
	contentType string
}

// OpenFile opens the file at path for uploading.
func OpenFile(path string) (*File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}

	return &File{
		file:        file,
		size:        info.Size(),
		contentType: contentTypeOf(path),
	}, nil
}

// ReadAt ...
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	return f.file.ReadAt(p, off)
}

// Size ...
func (f *File) Size() int64 {
	return f.size
}

// Name returns the path the file was opened with.
func (f *File) Name() string {
	return f.file.Name()
}

// ContentType is guessed from the file extension, empty if unknown.
func (f *File) ContentType() string {
	return f.contentType
}

// Close closes the underlying file.
func (f *File) Close() error {
	if f.file != nil {
		return f.file.Close()
	}
	return nil
}
