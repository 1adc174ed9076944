// Package flash gives host-side tools access to a flash dump file, the way
// a boot loader reads its fixed flash offset on target.
package flash

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// ErasedByte is the value of an erased NOR flash byte.
const ErasedByte = 0xFF

// Errors
var (
	ErrOutOfBounds = &FlashError{"access outside image bounds"}
	ErrClosed      = &FlashError{"image closed"}
)

// FlashError is the kind of an image access failure.
type FlashError struct {
	Message string
}

func (e *FlashError) Error() string {
	return e.Message
}

// Image is an open flash dump. Writes never change the image size.
type Image struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// Open opens an existing image for reading and writing.
func Open(path string) (*Image, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open flash image: %w", err)
	}
	return &Image{path: path, file: f}, nil
}

// Create creates a new image of size bytes in the erased state. An existing
// file at path is an error.
func Create(path string, size int64) (*Image, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid image size %d", size)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create flash image: %w", err)
	}

	erased := bytes.Repeat([]byte{ErasedByte}, int(min(size, 64*1024)))
	for written := int64(0); written < size; {
		n := min(int64(len(erased)), size-written)
		if _, err := f.Write(erased[:n]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to erase flash image: %w", err)
		}
		written += n
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to sync flash image: %w", err)
	}

	return &Image{path: path, file: f}, nil
}

// Path returns the file the image was opened from.
func (i *Image) Path() string {
	return i.path
}

// Size returns the image size in bytes.
func (i *Image) Size() (int64, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.size()
}

func (i *Image) size() (int64, error) {
	if i.file == nil {
		return 0, ErrClosed
	}
	info, err := i.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat flash image: %w", err)
	}
	return info.Size(), nil
}

// ReadRegion reads size bytes at offset. A size of zero reads to the end of
// the image.
func (i *Image) ReadRegion(offset, size int64) ([]byte, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	total, err := i.size()
	if err != nil {
		return nil, err
	}
	if size == 0 {
		size = total - offset
	}
	if offset < 0 || size < 0 || offset+size > total {
		return nil, fmt.Errorf("%w: read %d bytes at %d from %d byte image", ErrOutOfBounds, size, offset, total)
	}

	buf := make([]byte, size)
	if _, err := i.file.ReadAt(buf, offset); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read flash image: %w", err)
	}
	return buf, nil
}

// WriteRegion writes data at offset and syncs it to disk. The write must
// lie entirely inside the image.
func (i *Image) WriteRegion(offset int64, data []byte) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	total, err := i.size()
	if err != nil {
		return err
	}
	if offset < 0 || offset+int64(len(data)) > total {
		return fmt.Errorf("%w: write %d bytes at %d to %d byte image", ErrOutOfBounds, len(data), offset, total)
	}

	if _, err := i.file.WriteAt(data, offset); err != nil {
		return fmt.Errorf("failed to write flash image: %w", err)
	}
	if err := i.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync flash image: %w", err)
	}
	return nil
}

// Close closes the image file.
func (i *Image) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.file == nil {
		return nil
	}
	err := i.file.Close()
	i.file = nil
	return err
}
