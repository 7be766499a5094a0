package extract

import (
	"encoding/base64"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/glbsplit/pkg/gltf"
)

// MaterialAsset is one per-material extraction result. GLB is nil when that
// material's pipeline failed; the failure never aborts the batch.
type MaterialAsset struct {
	Name           string
	Index          int
	PrimitiveCount int
	BaseColor      [4]float64
	TextureIndices []int
	GLB            []byte
}

// TextureAsset is one embedded image pulled out of a container.
type TextureAsset struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Materials runs the pruning pipeline once per material of the container's
// document and returns one asset per material. The source container is read
// only; every run produces a fresh document and payload, so materials may be
// processed in any order. A nil logger disables warning output.
func Materials(c *gltf.Container, log *zap.Logger) ([]MaterialAsset, error) {
	if c == nil || c.Document == nil {
		return nil, fmt.Errorf("container has no document")
	}
	if log == nil {
		log = zap.NewNop()
	}

	assets := make([]MaterialAsset, 0, len(c.Document.Materials))
	for mi := range c.Document.Materials {
		asset := MaterialAsset{
			Name:           MaterialName(c.Document, mi),
			Index:          mi,
			PrimitiveCount: countPrimitives(c.Document, mi),
			BaseColor:      BaseColor(c.Document, mi),
			TextureIndices: materialTextures(&c.Document.Materials[mi]),
		}
		glb, err := extractOne(c, mi, log)
		if err != nil {
			// Isolate-and-continue: report this material without output
			// and keep going. Malformed structure will not fix itself on
			// retry, so there is none.
			log.Warn("material extraction failed",
				zap.Int("material", mi),
				zap.String("name", asset.Name),
				zap.Error(err))
		} else {
			asset.GLB = glb
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

// extractOne runs closure → prune → compact → encode for a single material.
// A panic anywhere in the pipeline is confined to this material.
func extractOne(c *gltf.Container, material int, log *zap.Logger) (glb []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("material %d pipeline panic: %v", material, r)
		}
	}()

	closure, warnings := MaterialClosure(c.Document, material)
	for _, w := range warnings {
		log.Warn(w, zap.Int("material", material))
	}

	pruned, _ := Prune(c.Document, closure, material)

	newBin, newViews, viewMap, warnings := Compact(c.Binary, c.Document.BufferViews, closure.BufferViews)
	for _, w := range warnings {
		log.Warn(w, zap.Int("material", material))
	}
	applyCompaction(pruned, newBin, newViews, viewMap)

	return gltf.Encode(pruned, newBin)
}

// countPrimitives counts the primitives across all meshes that use the
// material.
func countPrimitives(doc *gltf.Document, material int) int {
	count := 0
	for mi := range doc.Meshes {
		for pi := range doc.Meshes[mi].Primitives {
			m := doc.Meshes[mi].Primitives[pi].Material
			if m != nil && *m == material {
				count++
			}
		}
	}
	return count
}

// materialTextures lists the texture indices the source material references,
// in slot order, deduplicated.
func materialTextures(m *gltf.Material) []int {
	var indices []int
	seen := make(map[int]bool)
	add := func(index int) {
		if !seen[index] {
			seen[index] = true
			indices = append(indices, index)
		}
	}
	if pbr := m.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorTexture != nil {
			add(pbr.BaseColorTexture.Index)
		}
		if pbr.MetallicRoughnessTexture != nil {
			add(pbr.MetallicRoughnessTexture.Index)
		}
	}
	if m.NormalTexture != nil {
		add(m.NormalTexture.Index)
	}
	if m.OcclusionTexture != nil {
		add(m.OcclusionTexture.Index)
	}
	if m.EmissiveTexture != nil {
		add(m.EmissiveTexture.Index)
	}
	return indices
}

// Textures returns the embedded images of a container: bufferView-backed
// images sliced out of the binary payload and base64 data URIs decoded.
// Images behind external URIs are skipped with a warning (non-embedded
// references are unsupported).
func Textures(c *gltf.Container, log *zap.Logger) []TextureAsset {
	if c == nil || c.Document == nil {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}

	var assets []TextureAsset
	for ii := range c.Document.Images {
		img := &c.Document.Images[ii]
		name := img.Name
		if name == "" {
			name = fmt.Sprintf("image_%d", ii)
		}

		switch {
		case img.BufferView != nil:
			bv := *img.BufferView
			if bv < 0 || bv >= len(c.Document.BufferViews) {
				log.Warn("image bufferView out of range", zap.Int("image", ii), zap.Int("bufferView", bv))
				continue
			}
			view := c.Document.BufferViews[bv]
			start, end := view.ByteOffset, view.ByteOffset+view.ByteLength
			if start < 0 || end > len(c.Binary) || start > end {
				log.Warn("image bufferView range outside payload", zap.Int("image", ii))
				continue
			}
			assets = append(assets, TextureAsset{
				Name:     name,
				MIMEType: img.MimeType,
				Data:     append([]byte(nil), c.Binary[start:end]...),
			})
		case strings.HasPrefix(img.URI, "data:"):
			mime, data, err := decodeDataURI(img.URI)
			if err != nil {
				log.Warn("undecodable image data URI", zap.Int("image", ii), zap.Error(err))
				continue
			}
			if mime == "" {
				mime = img.MimeType
			}
			assets = append(assets, TextureAsset{Name: name, MIMEType: mime, Data: data})
		case img.URI != "":
			log.Warn("skipping externally referenced image", zap.Int("image", ii), zap.String("uri", img.URI))
		}
	}
	return assets
}

// decodeDataURI decodes a base64 data URI of the form
// "data:<mime>;base64,<payload>".
func decodeDataURI(uri string) (mime string, data []byte, err error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data URI has no payload")
	}
	mime, _ = strings.CutSuffix(meta, ";base64")
	if !strings.HasSuffix(meta, ";base64") {
		return "", nil, fmt.Errorf("unsupported data URI encoding %q", meta)
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decoding data URI payload: %w", err)
	}
	return mime, data, nil
}

// AssetFileName derives a deterministic, filesystem-safe base name for an
// output file from a material or image name, falling back to the index.
func AssetFileName(name string, index int) string {
	if name == "" {
		return fmt.Sprintf("material_%d", index)
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
