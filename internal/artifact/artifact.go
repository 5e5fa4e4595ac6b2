// Package artifact implements the binary container used for model
// weights and training checkpoints.
//
// File layout:
//
//	0x00-0x03  magic "STR1"
//	0x04-0x07  format version (uint32 LE)
//	0x08-0x0F  header size (uint64 LE)
//	0x10-0x17  data size (uint64 LE)
//	0x18-0x37  SHA-256 checksum of the data section
//	0x38-0x3F  reserved
//	0x40-...   JSON header, then zero padding to a 64-byte boundary,
//	           then entry data as little-endian float64 blobs
//
// Entries are written in sorted name order so the same state always
// produces byte-identical files.
package artifact

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"time"
)

// Format constants.
const (
	Magic           = "STR1"
	FormatVersion   = 1
	FixedHeaderSize = 64
	DataAlignment   = 64 // entry data starts on a 64-byte boundary
	checksumOffset  = 0x18
	checksumSize    = 32
	maxHeaderSize   = 100 * 1024 * 1024
)

// Common errors.
var (
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrHeaderTooLarge     = errors.New("header exceeds maximum size")
	ErrTruncated          = errors.New("file truncated")
)

// Entry is one named float64 block in the container.
type Entry struct {
	Shape []int
	Data  []float64
}

// NumElements returns the element count implied by the shape.
func (e Entry) NumElements() int {
	n := 1
	for _, d := range e.Shape {
		n *= d
	}
	return n
}

// Header is the JSON header of an artifact file.
type Header struct {
	FormatVersion int               `json:"format_version"`
	ModelType     string            `json:"model_type"`
	CreatedAt     time.Time         `json:"created_at"`
	Entries       []EntryMeta       `json:"entries"`
	Metadata      map[string]string `json:"metadata"`
}

// EntryMeta locates one entry inside the data section.
type EntryMeta struct {
	Name   string `json:"name"`
	Shape  []int  `json:"shape"`
	Offset int64  `json:"offset"` // bytes from the start of the data section
	Size   int64  `json:"size"`   // bytes
}

// Save writes entries to path.
//
// modelType names the producing model kind ("sequential", "graph") and
// meta carries free-form key/value pairs (epoch counters, loss values).
func Save(path, modelType string, meta map[string]string, entries map[string]Entry) error {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	header := Header{
		FormatVersion: FormatVersion,
		ModelType:     modelType,
		CreatedAt:     time.Now().UTC(),
		Entries:       make([]EntryMeta, 0, len(entries)),
		Metadata:      meta,
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	var offset int64
	var data []byte
	for _, name := range names {
		entry := entries[name]
		if entry.NumElements() != len(entry.Data) {
			return fmt.Errorf("entry %q: shape %v does not match %d values", name, entry.Shape, len(entry.Data))
		}
		size := int64(len(entry.Data) * 8)
		header.Entries = append(header.Entries, EntryMeta{
			Name:   name,
			Shape:  entry.Shape,
			Offset: offset,
			Size:   size,
		})
		offset += size

		buf := make([]byte, size)
		for i, v := range entry.Data {
			binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
		}
		data = append(data, buf...)
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	checksum := sha256.Sum256(data)

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], Magic)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	binary.LittleEndian.PutUint64(fixed[8:16], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(data)))
	copy(fixed[checksumOffset:checksumOffset+checksumSize], checksum[:])

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(fixed); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := file.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	pos := int64(FixedHeaderSize) + int64(len(headerJSON))
	if padding := (DataAlignment - pos%DataAlignment) % DataAlignment; padding > 0 {
		if _, err := file.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}
	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("failed to write entry data: %w", err)
	}
	return nil
}

// Load reads an artifact file and returns its header and entries.
//
// The data-section checksum is always verified; a mismatch returns
// ErrChecksumMismatch.
func Load(path string) (Header, map[string]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return Header{}, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(file, fixed); err != nil {
		return Header{}, nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	if string(fixed[0:4]) != Magic {
		return Header{}, nil, ErrInvalidMagic
	}
	if version := binary.LittleEndian.Uint32(fixed[4:8]); version != FormatVersion {
		return Header{}, nil, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, version, FormatVersion)
	}
	headerSize := binary.LittleEndian.Uint64(fixed[8:16])
	dataSize := binary.LittleEndian.Uint64(fixed[16:24])
	if headerSize > maxHeaderSize {
		return Header{}, nil, ErrHeaderTooLarge
	}
	var checksum [checksumSize]byte
	copy(checksum[:], fixed[checksumOffset:checksumOffset+checksumSize])

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(file, headerJSON); err != nil {
		return Header{}, nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return Header{}, nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	pos := int64(FixedHeaderSize) + int64(headerSize)
	if padding := (DataAlignment - pos%DataAlignment) % DataAlignment; padding > 0 {
		if _, err := io.CopyN(io.Discard, file, padding); err != nil {
			return Header{}, nil, fmt.Errorf("%w: %v", ErrTruncated, err)
		}
	}

	data := make([]byte, dataSize)
	if _, err := io.ReadFull(file, data); err != nil {
		return Header{}, nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	if sha256.Sum256(data) != checksum {
		return Header{}, nil, ErrChecksumMismatch
	}

	entries := make(map[string]Entry, len(header.Entries))
	for _, meta := range header.Entries {
		if meta.Offset < 0 || meta.Size < 0 || meta.Offset+meta.Size > int64(len(data)) {
			return Header{}, nil, fmt.Errorf("entry %q extends beyond data section", meta.Name)
		}
		blob := data[meta.Offset : meta.Offset+meta.Size]
		values := make([]float64, len(blob)/8)
		for i := range values {
			values[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
		}
		entries[meta.Name] = Entry{Shape: meta.Shape, Data: values}
	}
	return header, entries, nil
}
