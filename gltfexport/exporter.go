package gltfexport

import (
	"log"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/sceneforge/raw2gltf/compress"
	"github.com/sceneforge/raw2gltf/config"
	"github.com/sceneforge/raw2gltf/raw"
	"github.com/sceneforge/raw2gltf/utils"
)

const generatorName = "raw2gltf"

// errMissingReference marks an id used by the input graph that does not
// resolve to a known entity. Always fatal.
var errMissingReference = errors.New("unresolved entity reference")

// Exporter runs one synthesis pass over a raw model. All entity tables,
// caches and the binary blob are scoped to the pass; a fresh Exporter is
// required per model.
type Exporter struct {
	model   *raw.Model
	opts    *config.Options
	encoder compress.Encoder

	doc      *gltf.Document
	layout   *Layout
	sparse   *SparseBuilder
	textures *TextureBuilder
	names    utils.RandomNameGenerator

	materialsByID   map[int64]uint32
	meshBySurfaceID map[int64]uint32
	skinBySurfaceID map[int64]uint32
	nodesByID       map[int64]uint32
	extraSkins      map[int]uint32
}

// NewExporter wires a pass together. encoder may be nil when compression is
// disabled; codec nil selects the PNG codec.
func NewExporter(model *raw.Model, opts *config.Options, encoder compress.Encoder, codec ImageCodec) *Exporter {
	if codec == nil {
		codec = PNGCodec{}
	}

	doc := gltf.NewDocument()
	doc.Asset.Generator = generatorName
	doc.Scenes[0].Name = "Root Scene"

	layout := NewLayout(doc)
	return &Exporter{
		model:   model,
		opts:    opts,
		encoder: encoder,

		doc:      doc,
		layout:   layout,
		sparse:   NewSparseBuilder(layout),
		textures: NewTextureBuilder(doc, model, codec),

		materialsByID:   make(map[int64]uint32),
		meshBySurfaceID: make(map[int64]uint32),
		skinBySurfaceID: make(map[int64]uint32),
		nodesByID:       make(map[int64]uint32),
	}
}

// Export builds the complete document: materials first (meshes reference
// them), then meshes, then the node graph with its forward-reference
// patch-up. The returned document is ready for WriteDocument.
func (e *Exporter) Export() (*gltf.Document, error) {
	if e.opts.Verbose {
		utils.LogDump(e.opts)
	}
	if verts, tris := len(e.model.Vertices), len(e.model.Triangles); verts > 2*tris && tris > 0 {
		log.Printf("Suspiciously many vertices: %d vertices for %d triangles; source geometry may be unindexed", verts, tris)
	}

	for i := range e.model.Materials {
		mat := &e.model.Materials[i]
		materialIx, err := e.exportMaterial(mat)
		if err != nil {
			return nil, err
		}
		e.materialsByID[mat.ID] = materialIx
	}

	if err := e.exportMeshes(); err != nil {
		return nil, err
	}
	if err := e.exportGraph(); err != nil {
		return nil, err
	}

	if e.opts.Verbose {
		log.Printf("Synthesized %d nodes, %d meshes, %d materials, %d textures, %d skins, %d animations, %d cameras",
			len(e.doc.Nodes), len(e.doc.Meshes), len(e.doc.Materials),
			len(e.doc.Textures), len(e.doc.Skins), len(e.doc.Animations), len(e.doc.Cameras))
		log.Printf("Binary blob: %d bytes in %d views, %d accessors",
			len(e.doc.Buffers[0].Data), len(e.doc.BufferViews), len(e.doc.Accessors))
	}

	return e.doc, nil
}
