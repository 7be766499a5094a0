package extract

import (
	"bytes"
	"encoding/base64"
	"reflect"
	"testing"

	"github.com/Faultbox/glbsplit/pkg/gltf"
)

// sampleContainer pairs sampleDoc with a payload whose regions carry
// recognizable bytes.
func sampleContainer() *gltf.Container {
	doc := sampleDoc()
	bin := make([]byte, 116)
	for i := range bin {
		bin[i] = byte(i)
	}
	return &gltf.Container{Document: doc, Binary: bin}
}

func TestMaterials_EndToEnd(t *testing.T) {
	c := sampleContainer()

	assets, err := Materials(c, nil)
	if err != nil {
		t.Fatalf("Materials failed: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("got %d assets, want 2", len(assets))
	}

	for _, asset := range assets {
		if asset.GLB == nil {
			t.Fatalf("material %d (%s): no output", asset.Index, asset.Name)
		}

		out, warnings, err := gltf.DecodeGLB(asset.GLB)
		if err != nil {
			t.Fatalf("material %d: output not decodable: %v", asset.Index, err)
		}
		if len(warnings) != 0 {
			t.Errorf("material %d: output decoded with warnings: %v", asset.Index, warnings)
		}
		doc := out.Document

		if len(doc.Materials) != 1 {
			t.Errorf("material %d: output has %d materials", asset.Index, len(doc.Materials))
		}

		// Referential integrity: every index reference in the output
		// points inside its target array.
		for mi := range doc.Meshes {
			for _, p := range doc.Meshes[mi].Primitives {
				if *p.Material != 0 {
					t.Errorf("material %d: primitive material = %d", asset.Index, *p.Material)
				}
				for sem, ai := range p.Attributes {
					if ai < 0 || ai >= len(doc.Accessors) {
						t.Errorf("material %d: dangling attribute %s -> %d", asset.Index, sem, ai)
					}
				}
				if p.Indices != nil && (*p.Indices < 0 || *p.Indices >= len(doc.Accessors)) {
					t.Errorf("material %d: dangling indices -> %d", asset.Index, *p.Indices)
				}
			}
		}
		for ai := range doc.Accessors {
			bv := doc.Accessors[ai].BufferView
			if bv != nil && (*bv < 0 || *bv >= len(doc.BufferViews)) {
				t.Errorf("material %d: dangling bufferView -> %d", asset.Index, *bv)
			}
		}
		for ni := range doc.Nodes {
			if doc.Nodes[ni].Mesh != nil && *doc.Nodes[ni].Mesh >= len(doc.Meshes) {
				t.Errorf("material %d: dangling node mesh -> %d", asset.Index, *doc.Nodes[ni].Mesh)
			}
			for _, child := range doc.Nodes[ni].Children {
				if child < 0 || child >= len(doc.Nodes) {
					t.Errorf("material %d: dangling child -> %d", asset.Index, child)
				}
			}
		}

		// Buffer invariants: aligned, non-overlapping, declared length
		// matches the payload.
		end := 0
		for vi, v := range doc.BufferViews {
			if v.ByteOffset%4 != 0 {
				t.Errorf("material %d: view %d offset %d unaligned", asset.Index, vi, v.ByteOffset)
			}
			if v.ByteOffset < end {
				t.Errorf("material %d: view %d overlaps", asset.Index, vi)
			}
			end = v.ByteOffset + v.ByteLength
		}
		if len(doc.Buffers) == 1 && doc.Buffers[0].ByteLength != end {
			t.Errorf("material %d: buffer length %d != %d", asset.Index, doc.Buffers[0].ByteLength, end)
		}
	}

	// Material 0 keeps a single primitive and its three accessor regions.
	a0 := assets[0]
	if a0.Name != "paint" || a0.PrimitiveCount != 1 {
		t.Errorf("asset 0 = %q/%d primitives, want paint/1", a0.Name, a0.PrimitiveCount)
	}
	if a0.BaseColor != [4]float64{1, 0, 0, 1} {
		t.Errorf("asset 0 base color = %v", a0.BaseColor)
	}

	out0, _, _ := gltf.DecodeGLB(a0.GLB)
	// Region for bufferView 0 (bytes 0..35 of the source) survives intact.
	v0 := out0.Document.BufferViews[0]
	if !bytes.Equal(out0.Binary[v0.ByteOffset:v0.ByteOffset+v0.ByteLength], c.Binary[0:36]) {
		t.Error("asset 0: first region bytes corrupted during compaction")
	}
}

func TestMaterials_SecondRunIsFixedPoint(t *testing.T) {
	c := sampleContainer()

	assets, err := Materials(c, nil)
	if err != nil {
		t.Fatalf("Materials failed: %v", err)
	}

	for _, asset := range assets {
		pruned, _, err := gltf.DecodeGLB(asset.GLB)
		if err != nil {
			t.Fatalf("decoding first output: %v", err)
		}

		again, err := Materials(pruned, nil)
		if err != nil {
			t.Fatalf("second run failed: %v", err)
		}
		if len(again) != 1 {
			t.Fatalf("second run produced %d assets, want 1", len(again))
		}
		if !bytes.Equal(again[0].GLB, asset.GLB) {
			t.Errorf("material %d: pruning an already-pruned container changed it", asset.Index)
		}
	}
}

func TestMaterials_NoDocument(t *testing.T) {
	if _, err := Materials(&gltf.Container{}, nil); err == nil {
		t.Error("expected error for container without document")
	}
	if _, err := Materials(nil, nil); err == nil {
		t.Error("expected error for nil container")
	}
}

func TestMaterials_NoNodesAtAll(t *testing.T) {
	// A document with no node pool still yields rooted geometry: the
	// pruner synthesizes the nodes and a scene.
	c := &gltf.Container{Document: &gltf.Document{
		Asset:     gltf.Asset{Version: "2.0"},
		Materials: []gltf.Material{{Name: "only"}},
		Meshes: []gltf.Mesh{{Primitives: []gltf.Primitive{
			{Attributes: map[string]int{}, Material: intp(0)},
		}}},
	}}

	assets, err := Materials(c, nil)
	if err != nil {
		t.Fatalf("Materials failed: %v", err)
	}

	out, _, err := gltf.DecodeGLB(assets[0].GLB)
	if err != nil {
		t.Fatalf("output not decodable: %v", err)
	}
	if len(out.Document.Nodes) != 1 {
		t.Errorf("got %d nodes, want 1 synthetic", len(out.Document.Nodes))
	}
	if len(out.Document.Scenes) != 1 {
		t.Errorf("got %d scenes, want 1 synthetic", len(out.Document.Scenes))
	}
}

func TestMaterials_TextureIndices(t *testing.T) {
	doc := sampleDoc()
	doc.Textures = []gltf.Texture{{Source: intp(0)}, {Source: intp(1)}}
	doc.Materials[0].PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: 1}
	doc.Materials[0].NormalTexture = &gltf.NormalTextureInfo{Index: 0}
	doc.Materials[0].EmissiveTexture = &gltf.TextureInfo{Index: 1} // duplicate

	assets, err := Materials(&gltf.Container{Document: doc, Binary: make([]byte, 116)}, nil)
	if err != nil {
		t.Fatalf("Materials failed: %v", err)
	}

	if !reflect.DeepEqual(assets[0].TextureIndices, []int{1, 0}) {
		t.Errorf("texture indices = %v, want [1 0] (slot order, deduplicated)", assets[0].TextureIndices)
	}
	if assets[1].TextureIndices != nil {
		t.Errorf("untextured material reports textures: %v", assets[1].TextureIndices)
	}

	// Output containers never carry texture arrays.
	out, _, _ := gltf.DecodeGLB(assets[0].GLB)
	if out.Document.Textures != nil || out.Document.Images != nil || out.Document.Samplers != nil {
		t.Error("texture data leaked into per-material output")
	}
}

func TestTextures(t *testing.T) {
	pngBytes := []byte{0x89, 'P', 'N', 'G', 0, 1, 2, 3}
	jpgBytes := []byte{0xFF, 0xD8, 0xFF, 0xE0}

	doc := &gltf.Document{
		Asset: gltf.Asset{Version: "2.0"},
		Images: []gltf.Image{
			{Name: "embedded", MimeType: "image/png", BufferView: intp(0)},
			{URI: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpgBytes)},
			{Name: "external", URI: "textures/wall.png"},
			{Name: "broken", BufferView: intp(9)},
		},
		BufferViews: []gltf.BufferView{{ByteOffset: 4, ByteLength: 8}},
	}
	bin := append([]byte{0, 0, 0, 0}, pngBytes...)

	assets := Textures(&gltf.Container{Document: doc, Binary: bin}, nil)

	if len(assets) != 2 {
		t.Fatalf("got %d assets, want 2 (external and broken skipped)", len(assets))
	}

	if assets[0].Name != "embedded" || assets[0].MIMEType != "image/png" {
		t.Errorf("asset 0 = %q %q", assets[0].Name, assets[0].MIMEType)
	}
	if !bytes.Equal(assets[0].Data, pngBytes) {
		t.Errorf("asset 0 data = %v, want %v", assets[0].Data, pngBytes)
	}

	if assets[1].Name != "image_1" || assets[1].MIMEType != "image/jpeg" {
		t.Errorf("asset 1 = %q %q", assets[1].Name, assets[1].MIMEType)
	}
	if !bytes.Equal(assets[1].Data, jpgBytes) {
		t.Errorf("asset 1 data = %v, want %v", assets[1].Data, jpgBytes)
	}
}

func TestAssetFileName(t *testing.T) {
	tests := []struct {
		name  string
		index int
		want  string
	}{
		{"paint", 0, "paint"},
		{"", 3, "material_3"},
		{"Gold Trim #2", 1, "Gold_Trim__2"},
		{"ok-name_1.2", 0, "ok-name_1.2"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := AssetFileName(tt.name, tt.index); got != tt.want {
				t.Errorf("AssetFileName(%q, %d) = %q, want %q", tt.name, tt.index, got, tt.want)
			}
		})
	}
}
