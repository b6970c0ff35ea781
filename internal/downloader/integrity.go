package downloader

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// IsMP4Complete walks the MP4 box tree from offset 0 — spec.md §4.6/§8
// (C6). It returns true iff the first box is "ftyp", at least one "moov"
// box is seen, and the sum of top-level box sizes equals the file's real
// length.
func IsMP4Complete(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open %s for integrity check: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	fileLen := uint64(info.Size())

	var (
		offset   uint64
		sawFtyp  bool
		sawMoov  bool
		firstBox = true
		header   [8]byte
	)

	for offset < fileLen {
		if _, err := f.Seek(int64(offset), io.SeekStart); err != nil {
			return false, fmt.Errorf("failed to seek in %s: %w", path, err)
		}
		if _, err := io.ReadFull(f, header[:]); err != nil {
			// Truncated header: incomplete file, not an error condition to
			// propagate — treat as "not complete".
			return false, nil
		}

		boxSize := uint64(binary.BigEndian.Uint32(header[0:4]))
		boxType := string(header[4:8])

		headerLen := uint64(8)
		switch boxSize {
		case 0:
			// Box extends to EOF: treated as complete for this box.
			boxSize = fileLen - offset
		case 1:
			var large [8]byte
			if _, err := io.ReadFull(f, large[:]); err != nil {
				return false, nil
			}
			boxSize = binary.BigEndian.Uint64(large[:])
			headerLen = 16
		}

		if boxSize < headerLen {
			return false, nil
		}

		if firstBox {
			if boxType != "ftyp" {
				return false, nil
			}
			sawFtyp = true
			firstBox = false
		}
		if boxType == "moov" {
			sawMoov = true
		}

		offset += boxSize
		if offset > fileLen {
			// Overshoot: declared size runs past the real file length.
			return false, nil
		}
	}

	return sawFtyp && sawMoov && offset == fileLen, nil
}
