package extract

import (
	"fmt"

	"github.com/Faultbox/glbsplit/pkg/gltf"
)

// IndexMaps records, per entity kind, the mapping from an entity's position
// in the source document to its position in the pruned document.
type IndexMaps struct {
	Meshes    map[int]int
	Nodes     map[int]int
	Accessors map[int]int
}

// Prune builds a fresh single-material document from the source document and
// a computed closure. Surviving entities keep their original relative order;
// every cross reference is renumbered through the returned maps. Accessor
// bufferView fields still hold source indices afterwards: they are rewritten
// by Compact once the buffer views have their final positions.
func Prune(doc *gltf.Document, c *Closure, material int) (*gltf.Document, *IndexMaps) {
	maps := &IndexMaps{
		Meshes:    make(map[int]int),
		Nodes:     make(map[int]int),
		Accessors: make(map[int]int),
	}

	name := MaterialName(doc, material)
	out := &gltf.Document{
		Asset:              gltf.Asset{Version: "2.0", Generator: "glbsplit"},
		Materials:          []gltf.Material{syntheticMaterial(doc, material)},
		ExtensionsUsed:     append([]string(nil), doc.ExtensionsUsed...),
		ExtensionsRequired: append([]string(nil), doc.ExtensionsRequired...),
	}

	for ai := range doc.Accessors {
		if !c.Accessors[ai] {
			continue
		}
		maps.Accessors[ai] = len(out.Accessors)
		acc := doc.Accessors[ai]
		out.Accessors = append(out.Accessors, acc)
	}

	for mi := range doc.Meshes {
		if !c.Meshes[mi] {
			continue
		}
		maps.Meshes[mi] = len(out.Meshes)
		src := &doc.Meshes[mi]
		mesh := gltf.Mesh{
			Name:    src.Name,
			Weights: append([]float64(nil), src.Weights...),
		}
		for pi := range src.Primitives {
			p := &src.Primitives[pi]
			if p.Material == nil || *p.Material != material {
				continue
			}
			zero := 0
			np := gltf.Primitive{
				Attributes: make(map[string]int, len(p.Attributes)),
				Material:   &zero,
				Mode:       p.Mode,
			}
			for sem, ai := range p.Attributes {
				if na, ok := maps.Accessors[ai]; ok {
					np.Attributes[sem] = na
				}
			}
			if p.Indices != nil {
				if na, ok := maps.Accessors[*p.Indices]; ok {
					idx := na
					np.Indices = &idx
				}
			}
			mesh.Primitives = append(mesh.Primitives, np)
		}
		out.Meshes = append(out.Meshes, mesh)
	}

	for ni := range doc.Nodes {
		if !c.Nodes[ni] {
			continue
		}
		maps.Nodes[ni] = len(out.Nodes)
		src := &doc.Nodes[ni]
		node := gltf.Node{
			Name:        src.Name,
			Skin:        src.Skin,
			Camera:      src.Camera,
			Matrix:      append([]float64(nil), src.Matrix...),
			Translation: append([]float64(nil), src.Translation...),
			Rotation:    append([]float64(nil), src.Rotation...),
			Scale:       append([]float64(nil), src.Scale...),
			Weights:     append([]float64(nil), src.Weights...),
		}
		if src.Mesh != nil {
			if nm, ok := maps.Meshes[*src.Mesh]; ok {
				mesh := nm
				node.Mesh = &mesh
			}
		}
		out.Nodes = append(out.Nodes, node)
	}
	// Children can only be remapped once every surviving node has its new
	// position, so this runs as a second pass over the source nodes.
	for ni := range doc.Nodes {
		nn, ok := maps.Nodes[ni]
		if !ok {
			continue
		}
		var children []int
		for _, child := range doc.Nodes[ni].Children {
			if nc, ok := maps.Nodes[child]; ok {
				children = append(children, nc)
			}
		}
		out.Nodes[nn].Children = children
	}

	// Fallback: geometry survived but no node roots it. This is the single
	// place synthetic nodes are created.
	if len(out.Nodes) == 0 && len(out.Meshes) > 0 {
		for mi := range out.Meshes {
			mesh := mi
			out.Nodes = append(out.Nodes, gltf.Node{
				Name: fmt.Sprintf("%s_%d", name, mi),
				Mesh: &mesh,
			})
		}
	}

	for si := range doc.Scenes {
		var roots []int
		for _, root := range doc.Scenes[si].Nodes {
			if nr, ok := maps.Nodes[root]; ok {
				roots = append(roots, nr)
			}
		}
		if len(roots) == 0 {
			continue
		}
		out.Scenes = append(out.Scenes, gltf.Scene{Name: doc.Scenes[si].Name, Nodes: roots})
	}
	if len(out.Scenes) == 0 && len(out.Nodes) > 0 {
		// Lists every surviving node, not just true roots. Downstream
		// consumers expect the flatter structure, so no root detection.
		roots := make([]int, len(out.Nodes))
		for i := range roots {
			roots[i] = i
		}
		out.Scenes = []gltf.Scene{{Name: name, Nodes: roots}}
	}
	if len(out.Scenes) > 0 {
		zero := 0
		out.Scene = &zero
	}

	return out, maps
}

// MaterialName returns the material's name, or a deterministic fallback
// derived from its index.
func MaterialName(doc *gltf.Document, material int) string {
	if material >= 0 && material < len(doc.Materials) && doc.Materials[material].Name != "" {
		return doc.Materials[material].Name
	}
	return fmt.Sprintf("material_%d", material)
}

// syntheticMaterial builds the flat-color replacement material: the original
// base color factor survives, every texture reference is dropped.
func syntheticMaterial(doc *gltf.Document, material int) gltf.Material {
	out := gltf.Material{Name: MaterialName(doc, material)}
	pbr := &gltf.PBRMetallicRoughness{BaseColorFactor: []float64{1, 1, 1, 1}}
	if material >= 0 && material < len(doc.Materials) {
		src := &doc.Materials[material]
		out.DoubleSided = src.DoubleSided
		out.AlphaMode = src.AlphaMode
		out.AlphaCutoff = src.AlphaCutoff
		if src.PBRMetallicRoughness != nil {
			if len(src.PBRMetallicRoughness.BaseColorFactor) == 4 {
				pbr.BaseColorFactor = append([]float64(nil), src.PBRMetallicRoughness.BaseColorFactor...)
			}
			pbr.MetallicFactor = src.PBRMetallicRoughness.MetallicFactor
			pbr.RoughnessFactor = src.PBRMetallicRoughness.RoughnessFactor
		}
	}
	out.PBRMetallicRoughness = pbr
	return out
}

// BaseColor returns the RGBA base color factor the synthetic material will
// carry for the given source material.
func BaseColor(doc *gltf.Document, material int) [4]float64 {
	color := [4]float64{1, 1, 1, 1}
	if material < 0 || material >= len(doc.Materials) {
		return color
	}
	pbr := doc.Materials[material].PBRMetallicRoughness
	if pbr != nil && len(pbr.BaseColorFactor) == 4 {
		copy(color[:], pbr.BaseColorFactor)
	}
	return color
}
