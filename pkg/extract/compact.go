package extract

import (
	"fmt"

	"github.com/Faultbox/glbsplit/pkg/gltf"
)

// Compact repacks the byte ranges of the kept buffer views into a new binary
// payload. Regions are laid out sequentially in original relative order, each
// starting on a 4-byte boundary with zero-filled padding in between. The
// returned views carry rewritten offsets and buffer 0; viewMap maps source
// view positions to positions in the returned slice. Ranges reaching outside
// the source payload are clamped with a warning. With an empty keep set the
// payload is nil.
func Compact(binary []byte, views []gltf.BufferView, keep map[int]bool) (newBinary []byte, newViews []gltf.BufferView, viewMap map[int]int, warnings []string) {
	viewMap = make(map[int]int)

	type region struct {
		data   []byte
		offset int
	}
	var regions []region

	offset := 0
	for vi := range views {
		if !keep[vi] {
			continue
		}
		src := views[vi]

		start, length := src.ByteOffset, src.ByteLength
		if start < 0 || length < 0 || start > len(binary) {
			warnings = append(warnings, fmt.Sprintf("bufferView %d: range [%d:%d] outside payload of %d bytes", vi, start, start+length, len(binary)))
			start, length = 0, 0
		} else if start+length > len(binary) {
			warnings = append(warnings, fmt.Sprintf("bufferView %d: range [%d:%d] clamped to payload of %d bytes", vi, start, start+length, len(binary)))
			length = len(binary) - start
		}

		offset += (4 - offset%4) % 4
		regions = append(regions, region{data: binary[start : start+length], offset: offset})

		view := src
		view.Buffer = 0
		view.ByteOffset = offset
		view.ByteLength = length

		viewMap[vi] = len(newViews)
		newViews = append(newViews, view)
		offset += length
	}

	if len(newViews) == 0 {
		return nil, nil, viewMap, warnings
	}

	newBinary = make([]byte, offset)
	for _, r := range regions {
		copy(newBinary[r.offset:], r.data)
	}
	return newBinary, newViews, viewMap, warnings
}

// applyCompaction finishes the pruned document after Compact: accessor
// bufferView fields are rewritten from source view positions to final ones,
// the view array is installed, and the single output buffer is declared.
func applyCompaction(doc *gltf.Document, newBinary []byte, newViews []gltf.BufferView, viewMap map[int]int) {
	for ai := range doc.Accessors {
		old := doc.Accessors[ai].BufferView
		if old == nil {
			continue
		}
		if nv, ok := viewMap[*old]; ok {
			idx := nv
			doc.Accessors[ai].BufferView = &idx
		} else {
			doc.Accessors[ai].BufferView = nil
		}
	}
	doc.BufferViews = newViews
	if len(newViews) == 0 {
		doc.Buffers = nil
		return
	}
	doc.Buffers = []gltf.Buffer{{ByteLength: len(newBinary)}}
}
