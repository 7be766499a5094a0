// Package extract derives single-material containers from a decoded glTF
// container: it computes the closure of entities a material needs, prunes
// and renumbers the scene graph, and repacks the binary payload.
package extract

import (
	"fmt"

	"github.com/Faultbox/glbsplit/pkg/gltf"
)

// Closure is the set of entity indices that must be retained to keep one
// material's geometry valid. Sets are keyed by position in the source
// document's arrays.
type Closure struct {
	Meshes      map[int]bool
	Nodes       map[int]bool
	Accessors   map[int]bool
	BufferViews map[int]bool
}

// MaterialClosure computes the retained entity sets for the material at the
// given index: primitives using the material, the meshes that keep at least
// one such primitive, every node whose subtree reaches a kept mesh, and the
// accessors and buffer views those primitives reference. Out-of-range cross
// references are skipped and reported as warnings. An empty closure (material
// referenced by nothing) is valid.
func MaterialClosure(doc *gltf.Document, material int) (*Closure, []string) {
	c := &Closure{
		Meshes:      make(map[int]bool),
		Nodes:       make(map[int]bool),
		Accessors:   make(map[int]bool),
		BufferViews: make(map[int]bool),
	}
	var warnings []string

	// Primitive filter and accessor closure.
	for mi := range doc.Meshes {
		for pi := range doc.Meshes[mi].Primitives {
			p := &doc.Meshes[mi].Primitives[pi]
			if p.Material == nil || *p.Material != material {
				continue
			}
			c.Meshes[mi] = true
			for _, ai := range p.Attributes {
				if ai < 0 || ai >= len(doc.Accessors) {
					warnings = append(warnings, fmt.Sprintf("mesh %d primitive %d: attribute accessor %d out of range", mi, pi, ai))
					continue
				}
				c.Accessors[ai] = true
			}
			if p.Indices != nil {
				if *p.Indices < 0 || *p.Indices >= len(doc.Accessors) {
					warnings = append(warnings, fmt.Sprintf("mesh %d primitive %d: index accessor %d out of range", mi, pi, *p.Indices))
				} else {
					c.Accessors[*p.Indices] = true
				}
			}
		}
	}

	// Nodes that reference a kept mesh.
	for ni := range doc.Nodes {
		n := &doc.Nodes[ni]
		if n.Mesh == nil {
			continue
		}
		if *n.Mesh < 0 || *n.Mesh >= len(doc.Meshes) {
			warnings = append(warnings, fmt.Sprintf("node %d: mesh %d out of range", ni, *n.Mesh))
			continue
		}
		if c.Meshes[*n.Mesh] {
			c.Nodes[ni] = true
		}
	}

	// Ancestor closure: a node with a kept child is kept. The node pool is
	// a flat array and a node may be the child of several parents, so this
	// rescans until a fixed point instead of assuming a tree.
	for changed := true; changed; {
		changed = false
		for ni := range doc.Nodes {
			if c.Nodes[ni] {
				continue
			}
			for _, child := range doc.Nodes[ni].Children {
				if child < 0 || child >= len(doc.Nodes) {
					continue
				}
				if c.Nodes[child] {
					c.Nodes[ni] = true
					changed = true
					break
				}
			}
		}
	}

	// Buffer-view closure from kept accessors.
	for ai := range doc.Accessors {
		if !c.Accessors[ai] {
			continue
		}
		bv := doc.Accessors[ai].BufferView
		if bv == nil {
			continue
		}
		if *bv < 0 || *bv >= len(doc.BufferViews) {
			warnings = append(warnings, fmt.Sprintf("accessor %d: bufferView %d out of range", ai, *bv))
			continue
		}
		c.BufferViews[*bv] = true
	}

	return c, warnings
}
