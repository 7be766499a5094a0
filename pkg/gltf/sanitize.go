package gltf

// textureExtensions are glTF extensions that only make sense when texture
// data is present. Pruned outputs carry no textures, so these are removed
// from extensionsUsed/extensionsRequired.
var textureExtensions = map[string]bool{
	"KHR_texture_transform":               true,
	"KHR_materials_pbrSpecularGlossiness": true,
	"KHR_texture_basisu":                  true,
	"EXT_texture_webp":                    true,
	"MSFT_texture_dds":                    true,
}

// Sanitize repairs structural defects in a document so it encodes to a valid
// container. It is idempotent and runs unconditionally before every Encode.
// Repairs are fail-soft: malformed optional data is dropped, out-of-range
// references are clamped, nothing aborts.
func Sanitize(doc *Document) {
	for i := range doc.Nodes {
		n := &doc.Nodes[i]
		if len(n.Children) == 0 {
			n.Children = nil
		}
		// A transform matrix is exactly 16 elements; anything else is
		// dropped and the consumer falls back to identity.
		if n.Matrix != nil && len(n.Matrix) != 16 {
			n.Matrix = nil
		}
	}

	for i := range doc.Meshes {
		for j := range doc.Meshes[i].Primitives {
			p := &doc.Meshes[i].Primitives[j]
			if p.Material != nil && (*p.Material < 0 || *p.Material >= len(doc.Materials)) {
				zero := 0
				p.Material = &zero
			}
			if p.Targets != nil && len(p.Targets) == 0 {
				p.Targets = nil
			}
		}
	}

	for i := range doc.Materials {
		m := &doc.Materials[i]
		m.Extensions = nil
		if emptyPBR(m.PBRMetallicRoughness) {
			m.PBRMetallicRoughness = nil
		}
	}

	if doc.Scenes != nil && len(doc.Scenes) == 0 {
		doc.Scenes = nil
	}
	if doc.Scenes == nil {
		doc.Scene = nil
	} else if doc.Scene != nil && (*doc.Scene < 0 || *doc.Scene >= len(doc.Scenes)) {
		zero := 0
		doc.Scene = &zero
	}

	doc.ExtensionsUsed = filterExtensions(doc.ExtensionsUsed)
	doc.ExtensionsRequired = filterExtensions(doc.ExtensionsRequired)
}

// emptyPBR reports whether a pbrMetallicRoughness object carries no fields
// at all (an empty object, which the format treats as absent).
func emptyPBR(p *PBRMetallicRoughness) bool {
	if p == nil {
		return false
	}
	return p.BaseColorFactor == nil && p.BaseColorTexture == nil &&
		p.MetallicFactor == nil && p.RoughnessFactor == nil &&
		p.MetallicRoughnessTexture == nil
}

func filterExtensions(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	kept := names[:0]
	for _, name := range names {
		if !textureExtensions[name] {
			kept = append(kept, name)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}
