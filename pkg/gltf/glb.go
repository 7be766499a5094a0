package gltf

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
)

// GLB container constants (little-endian on the wire).
const (
	glbMagic   = 0x46546C67 // "glTF"
	glbVersion = 2

	chunkJSON = 0x4E4F534A // "JSON"
	chunkBIN  = 0x004E4942 // "BIN\0"

	headerSize = 12
	chunkHdr   = 8
)

// GLB format errors.
var (
	ErrBadMagic         = errors.New("invalid GLB magic: expected 'glTF'")
	ErrTruncated        = errors.New("truncated GLB data")
	ErrMissingJSONChunk = errors.New("first GLB chunk is not a JSON chunk")
	ErrInvalidDocument  = errors.New("invalid glTF document")
)

// DecodeGLB parses a binary glTF container. It returns the decoded container
// plus any non-fatal warnings (unsupported version, skipped chunks). The
// version check is best-effort: a version other than 2 is reported as a
// warning and decoding continues.
func DecodeGLB(data []byte) (*Container, []string, error) {
	if len(data) < headerSize {
		return nil, nil, ErrTruncated
	}

	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != glbMagic {
		return nil, nil, ErrBadMagic
	}

	var warnings []string
	version := binary.LittleEndian.Uint32(data[4:8])
	if version != glbVersion {
		warnings = append(warnings, fmt.Sprintf("unsupported GLB version %d, attempting to read anyway", version))
	}

	total := binary.LittleEndian.Uint32(data[8:12])
	if int(total) < len(data) {
		// Trust the declared length over trailing garbage.
		data = data[:total]
	}

	c := &Container{}
	offset := headerSize
	first := true
	for offset+chunkHdr <= len(data) {
		length := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
		ctype := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		offset += chunkHdr

		if offset+length > len(data) {
			return nil, warnings, fmt.Errorf("%w: chunk of %d bytes at offset %d", ErrTruncated, length, offset)
		}
		body := data[offset : offset+length]
		offset += length

		switch {
		case first:
			if ctype != chunkJSON {
				return nil, warnings, ErrMissingJSONChunk
			}
			doc, err := parseDocument(body)
			if err != nil {
				return nil, warnings, err
			}
			c.Document = doc
			first = false
		case ctype == chunkBIN && c.Binary == nil:
			c.Binary = append([]byte(nil), body...)
		default:
			warnings = append(warnings, fmt.Sprintf("skipping unknown GLB chunk type 0x%08X (%d bytes)", ctype, length))
		}
	}

	if first {
		return nil, warnings, ErrMissingJSONChunk
	}
	return c, warnings, nil
}

// DecodeDocument parses a plain-text glTF file. The container has no binary
// payload. Format selection between this and DecodeGLB is the caller's
// responsibility (by file extension, not content sniffing).
func DecodeDocument(data []byte) (*Container, error) {
	doc, err := parseDocument(data)
	if err != nil {
		return nil, err
	}
	return &Container{Document: doc}, nil
}

func parseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return &doc, nil
}

// Encode serializes a document and optional binary payload into a GLB
// container. The document is sanitized first; callers cannot opt out.
// The JSON chunk is padded to a 4-byte boundary with spaces (valid JSON
// whitespace), the BIN chunk with zero bytes. Lengths beyond the 32-bit
// header fields are an unchecked precondition.
func Encode(doc *Document, bin []byte) ([]byte, error) {
	Sanitize(doc)

	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}

	jsonLen := len(jsonBytes)
	jsonPadded := jsonLen + pad4(jsonLen)

	binLen := len(bin)
	binPadded := binLen + pad4(binLen)

	total := headerSize + chunkHdr + jsonPadded
	if binLen > 0 {
		total += chunkHdr + binPadded
	}

	out := make([]byte, total)
	binary.LittleEndian.PutUint32(out[0:4], glbMagic)
	binary.LittleEndian.PutUint32(out[4:8], glbVersion)
	binary.LittleEndian.PutUint32(out[8:12], uint32(total))

	binary.LittleEndian.PutUint32(out[12:16], uint32(jsonPadded))
	binary.LittleEndian.PutUint32(out[16:20], chunkJSON)
	copy(out[20:], jsonBytes)
	for i := headerSize + chunkHdr + jsonLen; i < headerSize+chunkHdr+jsonPadded; i++ {
		out[i] = ' '
	}

	if binLen > 0 {
		base := headerSize + chunkHdr + jsonPadded
		binary.LittleEndian.PutUint32(out[base:base+4], uint32(binPadded))
		binary.LittleEndian.PutUint32(out[base+4:base+8], chunkBIN)
		copy(out[base+chunkHdr:], bin)
		// Remaining pad bytes are already zero from allocation.
	}

	return out, nil
}

// pad4 returns the number of bytes needed to round n up to a multiple of 4.
func pad4(n int) int {
	return (4 - n%4) % 4
}
