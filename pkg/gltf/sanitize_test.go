package gltf

import (
	"reflect"
	"testing"
)

func TestSanitize_NodeRepairs(t *testing.T) {
	doc := &Document{
		Asset: Asset{Version: "2.0"},
		Nodes: []Node{
			{Name: "empty children", Children: []int{}},
			{Name: "bad matrix", Matrix: []float64{1, 0, 0, 1}},
			{Name: "good matrix", Matrix: make([]float64, 16)},
			{Name: "kept children", Children: []int{2}},
		},
	}

	Sanitize(doc)

	if doc.Nodes[0].Children != nil {
		t.Error("empty children list not dropped")
	}
	if doc.Nodes[1].Matrix != nil {
		t.Error("malformed 4-element matrix not dropped")
	}
	if len(doc.Nodes[2].Matrix) != 16 {
		t.Error("valid 16-element matrix dropped")
	}
	if !reflect.DeepEqual(doc.Nodes[3].Children, []int{2}) {
		t.Error("non-empty children list modified")
	}
}

func TestSanitize_PrimitiveRepairs(t *testing.T) {
	bad := 5
	good := 0
	doc := &Document{
		Asset:     Asset{Version: "2.0"},
		Materials: []Material{{Name: "only"}},
		Meshes: []Mesh{{Primitives: []Primitive{
			{Attributes: map[string]int{}, Material: &bad, Targets: []map[string]int{}},
			{Attributes: map[string]int{}, Material: &good},
		}}},
	}

	Sanitize(doc)

	if *doc.Meshes[0].Primitives[0].Material != 0 {
		t.Errorf("out-of-range material = %d, want clamp to 0", *doc.Meshes[0].Primitives[0].Material)
	}
	if doc.Meshes[0].Primitives[0].Targets != nil {
		t.Error("empty targets not dropped")
	}
	if *doc.Meshes[0].Primitives[1].Material != 0 {
		t.Error("valid material index changed")
	}
}

func TestSanitize_SceneRepairs(t *testing.T) {
	t.Run("emptied scenes array dropped with scene field", func(t *testing.T) {
		zero := 0
		doc := &Document{Asset: Asset{Version: "2.0"}, Scenes: []Scene{}, Scene: &zero}
		Sanitize(doc)
		if doc.Scenes != nil {
			t.Error("empty scenes array not dropped")
		}
		if doc.Scene != nil {
			t.Error("scene index kept without scenes array")
		}
	})

	t.Run("out of range scene clamped", func(t *testing.T) {
		nine := 9
		doc := &Document{Asset: Asset{Version: "2.0"}, Scenes: []Scene{{Nodes: []int{0}}}, Scene: &nine}
		Sanitize(doc)
		if doc.Scene == nil || *doc.Scene != 0 {
			t.Errorf("scene = %v, want 0", doc.Scene)
		}
	})
}

func TestSanitize_Extensions(t *testing.T) {
	doc := &Document{
		Asset:              Asset{Version: "2.0"},
		ExtensionsUsed:     []string{"KHR_texture_transform", "KHR_materials_unlit"},
		ExtensionsRequired: []string{"KHR_texture_basisu"},
		Materials: []Material{{
			Name:       "m",
			Extensions: map[string]any{"KHR_materials_clearcoat": map[string]any{}},
		}},
	}

	Sanitize(doc)

	if !reflect.DeepEqual(doc.ExtensionsUsed, []string{"KHR_materials_unlit"}) {
		t.Errorf("extensionsUsed = %v, want texture extensions removed", doc.ExtensionsUsed)
	}
	if doc.ExtensionsRequired != nil {
		t.Errorf("extensionsRequired = %v, want dropped when emptied", doc.ExtensionsRequired)
	}
	if doc.Materials[0].Extensions != nil {
		t.Error("material extensions not stripped")
	}
}

func TestSanitize_EmptyPBRCollapses(t *testing.T) {
	doc := &Document{
		Asset:     Asset{Version: "2.0"},
		Materials: []Material{{Name: "m", PBRMetallicRoughness: &PBRMetallicRoughness{}}},
	}

	Sanitize(doc)

	if doc.Materials[0].PBRMetallicRoughness != nil {
		t.Error("empty pbrMetallicRoughness object not collapsed")
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	bad := 7
	doc := &Document{
		Asset:          Asset{Version: "2.0"},
		Nodes:          []Node{{Children: []int{}, Matrix: []float64{1}}},
		Materials:      []Material{{Name: "m", Extensions: map[string]any{"x": 1}}},
		Meshes:         []Mesh{{Primitives: []Primitive{{Attributes: map[string]int{}, Material: &bad}}}},
		Scenes:         []Scene{},
		ExtensionsUsed: []string{"EXT_texture_webp"},
	}

	Sanitize(doc)
	once := *doc
	onceNodes := append([]Node(nil), doc.Nodes...)

	Sanitize(doc)

	if !reflect.DeepEqual(*doc, once) || !reflect.DeepEqual(doc.Nodes, onceNodes) {
		t.Error("Sanitize is not idempotent")
	}
}
