// SPDX-License-Identifier: EPL-2.0

package bridge

import (
	"fmt"

	"github.com/nuclex-video-tools/opustranscoder-core/audio"
)

// MemoryFile is an in-memory audio.VirtualFile backed by a growable byte
// slice — a generalization of the seekable-buffer idiom go-audio's
// IntBuffer-style value objects use, since none of the example repos ships
// a dedicated virtual-file type.
type MemoryFile struct {
	data []byte
}

// NewMemoryFile returns an empty MemoryFile ready for sequential WriteAt
// calls at increasing offsets.
func NewMemoryFile() *MemoryFile {
	return &MemoryFile{}
}

func (f *MemoryFile) Size() int64 { return int64(len(f.data)) }

func (f *MemoryFile) ReadAt(offset int64, buf []byte) (int, error) {
	if offset < 0 || offset > int64(len(f.data)) {
		return 0, fmt.Errorf("bridge: read offset %d out of range", offset)
	}
	n := copy(buf, f.data[offset:])
	return n, nil
}

func (f *MemoryFile) WriteAt(offset int64, buf []byte) (int, error) {
	if offset < 0 {
		return 0, fmt.Errorf("bridge: negative write offset %d", offset)
	}
	end := offset + int64(len(buf))
	if end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	n := copy(f.data[offset:end], buf)
	return n, nil
}

// WriteTo drains f into sink in 64 KiB windows at increasing offsets,
// matching §4.6's "written to disk in 64 KiB windows only after the blob
// is complete" contract.
func WriteTo(f *MemoryFile, sink audio.OutputSink) error {
	const windowSize = 64 * 1024

	size := f.Size()
	buf := make([]byte, windowSize)

	for offset := int64(0); offset < size; offset += windowSize {
		n := int64(windowSize)
		if remaining := size - offset; n > remaining {
			n = remaining
		}
		if _, err := f.ReadAt(offset, buf[:n]); err != nil {
			return fmt.Errorf("bridge: %w", err)
		}
		if err := sink.WriteAt(offset, buf[:n]); err != nil {
			return fmt.Errorf("bridge: %w", err)
		}
	}
	return nil
}
