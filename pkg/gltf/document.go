// Package gltf provides a document model and GLB container codec for
// glTF 2.0 scene assets. Cross-references inside a document are positional
// indices into the top-level arrays; optional index fields are pointers so
// that "absent" and "zero" stay distinguishable through a decode/encode
// round trip.
package gltf

// Document is the root of a glTF scene description.
type Document struct {
	Asset              Asset        `json:"asset"`
	Scene              *int         `json:"scene,omitempty"`
	Scenes             []Scene      `json:"scenes,omitempty"`
	Nodes              []Node       `json:"nodes,omitempty"`
	Meshes             []Mesh       `json:"meshes,omitempty"`
	Materials          []Material   `json:"materials,omitempty"`
	Accessors          []Accessor   `json:"accessors,omitempty"`
	BufferViews        []BufferView `json:"bufferViews,omitempty"`
	Buffers            []Buffer     `json:"buffers,omitempty"`
	Textures           []Texture    `json:"textures,omitempty"`
	Images             []Image      `json:"images,omitempty"`
	Samplers           []Sampler    `json:"samplers,omitempty"`
	ExtensionsUsed     []string     `json:"extensionsUsed,omitempty"`
	ExtensionsRequired []string     `json:"extensionsRequired,omitempty"`
}

// Asset holds document metadata. Version is required by the format.
type Asset struct {
	Version   string `json:"version"`
	Generator string `json:"generator,omitempty"`
	Copyright string `json:"copyright,omitempty"`
}

// Scene lists the indices of its root nodes.
type Scene struct {
	Name  string `json:"name,omitempty"`
	Nodes []int  `json:"nodes,omitempty"`
}

// Node is an element of the flat node pool. The hierarchy is defined by
// Children; a node may be unreachable from any scene root, which is valid.
// Matrix is kept as a plain slice so a malformed length survives decoding
// and can be repaired by the sanitizer.
type Node struct {
	Name        string    `json:"name,omitempty"`
	Children    []int     `json:"children,omitempty"`
	Mesh        *int      `json:"mesh,omitempty"`
	Skin        *int      `json:"skin,omitempty"`
	Camera      *int      `json:"camera,omitempty"`
	Matrix      []float64 `json:"matrix,omitempty"`
	Translation []float64 `json:"translation,omitempty"`
	Rotation    []float64 `json:"rotation,omitempty"`
	Scale       []float64 `json:"scale,omitempty"`
	Weights     []float64 `json:"weights,omitempty"`
}

// Mesh groups primitives that share a vertex pool.
type Mesh struct {
	Name       string      `json:"name,omitempty"`
	Primitives []Primitive `json:"primitives"`
	Weights    []float64   `json:"weights,omitempty"`
}

// Primitive is a single draw call: an attribute map of semantic name to
// accessor index, plus optional index accessor and material.
type Primitive struct {
	Attributes map[string]int   `json:"attributes"`
	Indices    *int             `json:"indices,omitempty"`
	Material   *int             `json:"material,omitempty"`
	Mode       *int             `json:"mode,omitempty"`
	Targets    []map[string]int `json:"targets,omitempty"`
}

// Material describes surface appearance. Only the fields the pruning
// pipeline reads or rewrites are modeled; extensions are carried opaquely.
type Material struct {
	Name                 string                `json:"name,omitempty"`
	PBRMetallicRoughness *PBRMetallicRoughness `json:"pbrMetallicRoughness,omitempty"`
	NormalTexture        *NormalTextureInfo    `json:"normalTexture,omitempty"`
	OcclusionTexture     *OcclusionTextureInfo `json:"occlusionTexture,omitempty"`
	EmissiveTexture      *TextureInfo          `json:"emissiveTexture,omitempty"`
	EmissiveFactor       []float64             `json:"emissiveFactor,omitempty"`
	AlphaMode            string                `json:"alphaMode,omitempty"`
	AlphaCutoff          *float64              `json:"alphaCutoff,omitempty"`
	DoubleSided          bool                  `json:"doubleSided,omitempty"`
	Extensions           map[string]any        `json:"extensions,omitempty"`
}

// PBRMetallicRoughness is the metallic-roughness material model.
type PBRMetallicRoughness struct {
	BaseColorFactor          []float64    `json:"baseColorFactor,omitempty"`
	BaseColorTexture         *TextureInfo `json:"baseColorTexture,omitempty"`
	MetallicFactor           *float64     `json:"metallicFactor,omitempty"`
	RoughnessFactor          *float64     `json:"roughnessFactor,omitempty"`
	MetallicRoughnessTexture *TextureInfo `json:"metallicRoughnessTexture,omitempty"`
}

// TextureInfo references a texture by index.
type TextureInfo struct {
	Index    int  `json:"index"`
	TexCoord *int `json:"texCoord,omitempty"`
}

// NormalTextureInfo is a TextureInfo with a normal scale.
type NormalTextureInfo struct {
	Index    int      `json:"index"`
	TexCoord *int     `json:"texCoord,omitempty"`
	Scale    *float64 `json:"scale,omitempty"`
}

// OcclusionTextureInfo is a TextureInfo with an occlusion strength.
type OcclusionTextureInfo struct {
	Index    int      `json:"index"`
	TexCoord *int     `json:"texCoord,omitempty"`
	Strength *float64 `json:"strength,omitempty"`
}

// Accessor describes how to interpret a byte range as typed values. The
// pipeline never decodes the values themselves; the fields are carried so
// a pruned accessor re-encodes byte-identically in meaning.
type Accessor struct {
	Name          string    `json:"name,omitempty"`
	BufferView    *int      `json:"bufferView,omitempty"`
	ByteOffset    *int      `json:"byteOffset,omitempty"`
	ComponentType int       `json:"componentType"`
	Normalized    bool      `json:"normalized,omitempty"`
	Count         int       `json:"count"`
	Type          string    `json:"type"`
	Min           []float64 `json:"min,omitempty"`
	Max           []float64 `json:"max,omitempty"`
}

// BufferView is a named byte range within a buffer.
type BufferView struct {
	Name       string `json:"name,omitempty"`
	Buffer     int    `json:"buffer"`
	ByteOffset int    `json:"byteOffset,omitempty"`
	ByteLength int    `json:"byteLength"`
	ByteStride *int   `json:"byteStride,omitempty"`
	Target     *int   `json:"target,omitempty"`
}

// Buffer declares the length of a binary payload. In single-buffer GLB
// containers the data lives in the BIN chunk and URI is empty.
type Buffer struct {
	Name       string `json:"name,omitempty"`
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`
}

// Texture pairs an image with a sampler.
type Texture struct {
	Name    string `json:"name,omitempty"`
	Sampler *int   `json:"sampler,omitempty"`
	Source  *int   `json:"source,omitempty"`
}

// Image is either an embedded bufferView slice or a URI.
type Image struct {
	Name       string `json:"name,omitempty"`
	URI        string `json:"uri,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	BufferView *int   `json:"bufferView,omitempty"`
}

// Sampler holds texture filtering and wrapping modes.
type Sampler struct {
	Name      string `json:"name,omitempty"`
	MagFilter *int   `json:"magFilter,omitempty"`
	MinFilter *int   `json:"minFilter,omitempty"`
	WrapS     *int   `json:"wrapS,omitempty"`
	WrapT     *int   `json:"wrapT,omitempty"`
}

// Container pairs a decoded document with its optional binary payload.
type Container struct {
	Document *Document
	Binary   []byte
}
