// Package sniff identifies image formats from file header bytes,
// independent of the file extension.
package sniff

import (
	"bytes"
	"io"
	"os"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
)

// Format is the result of sniffing a byte stream.
type Format int

const (
	Unknown Format = iota
	JPEG
	PNG
)

// headerLen is the longest magic number we care about (PNG signature).
const headerLen = 8

// jpegAppMarkers are the APPn markers accepted after the JPEG SOI bytes.
// Other FF D8 FF prefixes (e.g. raw FF D8 FF DB streams) are treated as
// unknown so that the decoder side decides what to do with them.
var jpegAppMarkers = map[byte]bool{0xE0: true, 0xE1: true, 0xE8: true}

// pngSignature is the full 8-byte PNG file signature. The filetype
// matcher only inspects the first four bytes, so the tail is verified
// here as well.
var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func (f Format) String() string {
	switch f {
	case JPEG:
		return "jpeg"
	case PNG:
		return "png"
	default:
		return "unknown"
	}
}

// Detect classifies a header buffer. Buffers shorter than the required
// prefix yield Unknown; Detect never fails.
func Detect(header []byte) Format {
	kind, err := filetype.Match(header)
	if err != nil {
		return Unknown
	}
	switch kind {
	case matchers.TypePng:
		if len(header) >= headerLen && bytes.Equal(header[:headerLen], pngSignature) {
			return PNG
		}
	case matchers.TypeJpeg:
		if len(header) >= 4 && jpegAppMarkers[header[3]] {
			return JPEG
		}
	}
	return Unknown
}

// DetectReader reads up to headerLen bytes into its own buffer and
// classifies them. The caller's reader is advanced by at most headerLen
// bytes; wrap with a peekable reader if the position matters.
func DetectReader(r io.Reader) Format {
	header := make([]byte, headerLen)
	n, err := io.ReadFull(r, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return Unknown
	}
	return Detect(header[:n])
}

// DetectFile opens the file read-only and sniffs its leading bytes.
// Missing files and directories yield Unknown rather than an error;
// callers decide whether that is a skip or a failure.
func DetectFile(path string) Format {
	f, err := os.Open(path)
	if err != nil {
		return Unknown
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return Unknown
	}
	return DetectReader(f)
}
