package gltfexport

import (
	"fmt"
	"log"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/sceneforge/raw2gltf/compress"
	"github.com/sceneforge/raw2gltf/config"
	"github.com/sceneforge/raw2gltf/raw"
)

// surfaceModel is one (surface, material) triangle group with its own
// compact vertex table, remapped in first-use order.
type surfaceModel struct {
	surfaceIx  int
	materialIx int

	vertices []int // indices into the model vertex table
	indices  []uint32
}

type groupKey struct {
	surfaceIx  int
	materialIx int
}

// buildSurfaceModels groups triangles by (surface id, material) preserving
// the order groups first appear. maxVertices > 0 caps a group's vertex
// table (forced 16-bit indices split oversized surfaces).
func buildSurfaceModels(model *raw.Model, maxVertices int) []*surfaceModel {
	var groups []*surfaceModel
	open := make(map[groupKey]*surfaceModel)
	remap := make(map[groupKey]map[int]uint32)

	for ti := range model.Triangles {
		tri := &model.Triangles[ti]
		key := groupKey{tri.SurfaceIndex, tri.MaterialIndex}

		sm := open[key]
		if sm != nil && maxVertices > 0 {
			fresh := 0
			for _, v := range tri.Verts {
				if _, ok := remap[key][v]; !ok {
					fresh++
				}
			}
			if len(sm.vertices)+fresh > maxVertices {
				delete(open, key)
				sm = nil
			}
		}
		if sm == nil {
			sm = &surfaceModel{surfaceIx: tri.SurfaceIndex, materialIx: tri.MaterialIndex}
			open[key] = sm
			remap[key] = make(map[int]uint32)
			groups = append(groups, sm)
		}

		for _, v := range tri.Verts {
			local, ok := remap[key][v]
			if !ok {
				local = uint32(len(sm.vertices))
				remap[key][v] = local
				sm.vertices = append(sm.vertices, v)
			}
			sm.indices = append(sm.indices, local)
		}
	}

	return groups
}

func (e *Exporter) useLongIndices(vertexCount int) bool {
	switch e.opts.IndexWidth {
	case config.IndexWidthAlways32:
		return true
	case config.IndexWidthAlways16:
		return false
	}
	return vertexCount > 65535
}

// exportMeshes builds one mesh per surface, one primitive per
// (surface, material) group.
func (e *Exporter) exportMeshes() error {
	maxVertices := 0
	if e.opts.IndexWidth == config.IndexWidthAlways16 {
		maxVertices = 65535
	}

	for _, sm := range buildSurfaceModels(e.model, maxVertices) {
		if err := e.exportPrimitive(sm); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) exportPrimitive(sm *surfaceModel) error {
	if sm.surfaceIx < 0 || sm.surfaceIx >= len(e.model.Surfaces) {
		return errors.Errorf("Triangle group references unknown surface index %d", sm.surfaceIx)
	}
	if sm.materialIx < 0 || sm.materialIx >= len(e.model.Materials) {
		return errors.Errorf("Triangle group references unknown material index %d", sm.materialIx)
	}
	surface := &e.model.Surfaces[sm.surfaceIx]
	materialIx, ok := e.materialsByID[e.model.Materials[sm.materialIx].ID]
	if !ok {
		return errors.Errorf("Material id %d was never registered", e.model.Materials[sm.materialIx].ID)
	}

	// Surfaces shared by several materials reuse one mesh entity.
	meshIx, ok := e.meshBySurfaceID[surface.ID]
	if !ok {
		defaultDeforms := make([]float32, 0, len(surface.BlendChannels))
		for _, channel := range surface.BlendChannels {
			defaultDeforms = append(defaultDeforms, channel.DefaultDeform)
		}
		e.doc.Meshes = append(e.doc.Meshes, &gltf.Mesh{
			Name:    surface.Name,
			Weights: defaultDeforms,
		})
		meshIx = uint32(len(e.doc.Meshes) - 1)
		e.meshBySurfaceID[surface.ID] = meshIx
	}
	mesh := e.doc.Meshes[meshIx]

	useLong := e.useLongIndices(len(sm.vertices))
	indexComp := gltf.ComponentUshort
	if useLong {
		indexComp = gltf.ComponentUint
	}

	primitive := &gltf.Primitive{
		Material:   gltf.Index(materialIx),
		Attributes: make(map[string]uint32),
	}

	var dracoMesh *compress.Mesh
	if e.opts.Draco.Enabled {
		dracoMesh = &compress.Mesh{VertexCount: len(sm.vertices)}
		for i := 0; i+2 < len(sm.indices); i += 3 {
			dracoMesh.Faces = append(dracoMesh.Faces,
				[3]uint32{sm.indices[i], sm.indices[i+1], sm.indices[i+2]})
		}

		// Compressed geometry keeps accessor metadata (type and count)
		// but no byte views; the blob carries the actual data.
		e.doc.Accessors = append(e.doc.Accessors, &gltf.Accessor{
			ComponentType: indexComp,
			Type:          gltf.AccessorScalar,
			Count:         uint32(len(sm.indices)),
		})
		primitive.Indices = gltf.Index(uint32(len(e.doc.Accessors) - 1))
	} else {
		indicesIx := e.layout.AddAccessorWithView(
			gltf.TargetElementArrayBuffer, indexComp, gltf.AccessorScalar,
			encodeIndices(sm.indices, indexComp), "")
		primitive.Indices = gltf.Index(indicesIx)
	}

	baseAccessors, err := e.exportAttributes(sm, surface, primitive, dracoMesh)
	if err != nil {
		return err
	}

	if err := e.exportMorphTargets(sm, surface, primitive, baseAccessors, indexComp); err != nil {
		return err
	}

	if e.opts.Draco.Enabled {
		if e.encoder == nil {
			return errors.Errorf("Geometry compression requested but no backend is linked")
		}
		result, err := e.encoder.EncodeMesh(dracoMesh, compress.Options{
			SpeedLevel: 10 - e.opts.Draco.CompressionLevel,
			QuantBits: map[compress.AttributeKind]int{
				compress.AttrPosition: e.opts.Draco.QuantBitsPosition,
				compress.AttrTexCoord: e.opts.Draco.QuantBitsTexCoord,
				compress.AttrNormal:   e.opts.Draco.QuantBitsNormal,
				compress.AttrColor:    e.opts.Draco.QuantBitsColor,
				compress.AttrGeneric:  e.opts.Draco.QuantBitsGeneric,
			},
		})
		if err != nil {
			// Declared capability must match content: no uncompressed fallback.
			return errors.Wrapf(err, "Compression backend failed on surface %q", surface.Name)
		}

		viewIx := e.layout.AddRawBufferView(result.Blob)
		primitive.Extensions = gltf.Extensions{
			ExtDracoMeshCompression: &khrDracoExt{
				BufferView: viewIx,
				Attributes: result.AttributeIDs,
			},
		}
		e.markExtensionUsed(ExtDracoMeshCompression, true)
	}

	mesh.Primitives = append(mesh.Primitives, primitive)
	return nil
}

// morphBaseAccessors remembers the dense attribute accessors sparse morph
// channels are layered over.
type morphBaseAccessors struct {
	position *uint32
	normal   *uint32
	tangent  *uint32
}

// exportAttributes streams every present vertex attribute into its own
// accessor; in compression mode the accessors carry no views and the
// streams go to the backend instead.
func (e *Exporter) exportAttributes(sm *surfaceModel, surface *raw.Surface, primitive *gltf.Primitive, dracoMesh *compress.Mesh) (*morphBaseAccessors, error) {
	base := &morphBaseAccessors{}
	attrs := e.model.Attributes

	addFloats := func(semantic string, kind compress.AttributeKind, etype gltf.AccessorType, data interface{}, flat []float32) uint32 {
		var accIx uint32
		if dracoMesh != nil {
			e.doc.Accessors = append(e.doc.Accessors, &gltf.Accessor{
				ComponentType: gltf.ComponentFloat,
				Type:          etype,
				Count:         uint32(len(sm.vertices)),
			})
			accIx = uint32(len(e.doc.Accessors) - 1)
			dracoMesh.Attributes = append(dracoMesh.Attributes, compress.Attribute{
				Kind:       kind,
				Semantic:   semantic,
				Components: int(etype.Components()),
				Floats:     flat,
			})
		} else {
			accIx = e.layout.AddAccessorWithView(gltf.TargetArrayBuffer, gltf.ComponentFloat, etype, data, "")
		}
		primitive.Attributes[semantic] = accIx
		return accIx
	}

	if attrs.Has(raw.AttrPosition) {
		positions := make([]mgl32.Vec3, len(sm.vertices))
		for i, v := range sm.vertices {
			positions[i] = e.model.Vertices[v].Position
		}
		accIx := addFloats(gltf.POSITION, compress.AttrPosition, gltf.AccessorVec3, positions, flattenVec3(positions))
		acc := e.doc.Accessors[accIx]
		acc.Min = surface.Bounds.Min[:]
		acc.Max = surface.Bounds.Max[:]
		base.position = gltf.Index(accIx)
	}
	if attrs.Has(raw.AttrNormal) {
		normals := make([]mgl32.Vec3, len(sm.vertices))
		for i, v := range sm.vertices {
			normals[i] = e.model.Vertices[v].Normal
		}
		accIx := addFloats(gltf.NORMAL, compress.AttrNormal, gltf.AccessorVec3, normals, flattenVec3(normals))
		base.normal = gltf.Index(accIx)
	}
	if attrs.Has(raw.AttrTangent) {
		tangents := make([]mgl32.Vec4, len(sm.vertices))
		for i, v := range sm.vertices {
			tangents[i] = e.model.Vertices[v].Tangent
		}
		accIx := addFloats(gltf.TANGENT, compress.AttrGeneric, gltf.AccessorVec4, tangents, flattenVec4(tangents))
		base.tangent = gltf.Index(accIx)
	}
	if attrs.Has(raw.AttrColor) {
		colors := make([]mgl32.Vec4, len(sm.vertices))
		for i, v := range sm.vertices {
			colors[i] = e.model.Vertices[v].Color
		}
		addFloats(gltf.COLOR_0, compress.AttrColor, gltf.AccessorVec4, colors, flattenVec4(colors))
	}
	if attrs.Has(raw.AttrUV0) {
		uvs := make([]mgl32.Vec2, len(sm.vertices))
		for i, v := range sm.vertices {
			uvs[i] = e.model.Vertices[v].UV0
		}
		addFloats(gltf.TEXCOORD_0, compress.AttrTexCoord, gltf.AccessorVec2, uvs, flattenVec2(uvs))
	}
	if attrs.Has(raw.AttrUV1) {
		uvs := make([]mgl32.Vec2, len(sm.vertices))
		for i, v := range sm.vertices {
			uvs[i] = e.model.Vertices[v].UV1
		}
		addFloats(gltf.TEXCOORD_1, compress.AttrTexCoord, gltf.AccessorVec2, uvs, flattenVec2(uvs))
	}

	groups := e.model.InfluenceGroupCount()
	if attrs.Has(raw.AttrJointIndices) {
		for g := 0; g < groups; g++ {
			joints := make([][4]uint16, len(sm.vertices))
			for i, v := range sm.vertices {
				joints[i] = jointGroup(e.model.Vertices[v].JointIndices, g)
			}
			semantic := fmt.Sprintf("JOINTS_%d", g)
			var accIx uint32
			if dracoMesh != nil {
				e.doc.Accessors = append(e.doc.Accessors, &gltf.Accessor{
					ComponentType: gltf.ComponentUshort,
					Type:          gltf.AccessorVec4,
					Count:         uint32(len(sm.vertices)),
				})
				accIx = uint32(len(e.doc.Accessors) - 1)
				dracoMesh.Attributes = append(dracoMesh.Attributes, compress.Attribute{
					Kind:       compress.AttrGeneric,
					Semantic:   semantic,
					Components: 4,
					Ushorts:    flattenUint16x4(joints),
				})
			} else {
				accIx = e.layout.AddAccessorWithView(gltf.TargetArrayBuffer, gltf.ComponentUshort, gltf.AccessorVec4, joints, "")
			}
			primitive.Attributes[semantic] = accIx
		}
	}
	if attrs.Has(raw.AttrJointWeights) {
		for g := 0; g < groups; g++ {
			weights := make([][4]float32, len(sm.vertices))
			for i, v := range sm.vertices {
				weights[i] = weightGroup(e.model.Vertices[v].JointWeights, g)
			}
			addFloats(fmt.Sprintf("WEIGHTS_%d", g), compress.AttrGeneric, gltf.AccessorVec4,
				weights, flattenFloat32x4(weights))
		}
	}

	return base, nil
}

// exportMorphTargets emits one target per blend channel, in authoring
// order. A vertex joins the sparse delta set only when dense encoding is
// forced or its position delta is nonzero; normal/tangent deltas alone do
// not trigger inclusion (kept as legacy behavior, see DESIGN.md).
func (e *Exporter) exportMorphTargets(sm *surfaceModel, surface *raw.Surface, primitive *gltf.Primitive, base *morphBaseAccessors, indexComp gltf.ComponentType) error {
	for channelIx, channel := range surface.BlendChannels {
		var shapeBounds raw.Bounds
		var positions, normals []mgl32.Vec3
		var tangents []mgl32.Vec4
		var sparseIndices []uint32

		for localIx, v := range sm.vertices {
			vertex := &e.model.Vertices[v]
			if channelIx >= len(vertex.Blends) {
				log.Panicf("Vertex %d carries %d blend deltas, surface %q has %d channels",
					v, len(vertex.Blends), surface.Name, len(surface.BlendChannels))
			}
			blend := vertex.Blends[channelIx]
			shapeBounds.AddPoint(blend.Position)

			include := e.opts.DisableSparseBlendShapes || blend.Position.Len() > 0
			if !include {
				continue
			}
			sparseIndices = append(sparseIndices, uint32(localIx))
			positions = append(positions, blend.Position)
			if e.opts.UseBlendShapeNormals && channel.HasNormals {
				normals = append(normals, blend.Normal)
			}
			if e.opts.UseBlendShapeTangents && channel.HasTangents {
				tangents = append(tangents, blend.Tangent)
			}
		}

		var pAcc uint32
		var nAcc, tAcc *uint32
		if !e.opts.DisableSparseBlendShapes {
			if e.opts.Verbose {
				log.Printf("Channel %q sparse count: %d", channel.Name, len(sparseIndices))
			}
			if base.position == nil {
				return errors.Errorf("Surface %q has blend channels but no positions", surface.Name)
			}

			pAcc = e.sparse.AddSparseAccessor(*base.position, sparseIndices, indexComp, gltf.AccessorVec3, positions, channel.Name)
			if len(normals) != 0 && base.normal != nil {
				nAcc = gltf.Index(e.sparse.AddSparseAccessor(*base.normal, sparseIndices, indexComp, gltf.AccessorVec3, normals, channel.Name))
			}
			if len(tangents) != 0 && base.tangent != nil {
				tAcc = gltf.Index(e.sparse.AddSparseAccessor(*base.tangent, sparseIndices, indexComp, gltf.AccessorVec4, tangents, channel.Name))
			}
		} else {
			pAcc = e.layout.AddAccessorWithView(gltf.TargetArrayBuffer, gltf.ComponentFloat, gltf.AccessorVec3, positions, channel.Name)
			if len(normals) != 0 {
				nAcc = gltf.Index(e.layout.AddAccessorWithView(gltf.TargetArrayBuffer, gltf.ComponentFloat, gltf.AccessorVec3, normals, channel.Name))
			}
			if len(tangents) != 0 {
				tAcc = gltf.Index(e.layout.AddAccessorWithView(gltf.TargetArrayBuffer, gltf.ComponentFloat, gltf.AccessorVec4, tangents, channel.Name))
			}
		}

		acc := e.doc.Accessors[pAcc]
		acc.Min = shapeBounds.Min[:]
		acc.Max = shapeBounds.Max[:]

		target := map[string]uint32{gltf.POSITION: pAcc}
		if nAcc != nil {
			target[gltf.NORMAL] = *nAcc
		}
		if tAcc != nil {
			target[gltf.TANGENT] = *tAcc
		}
		primitive.Targets = append(primitive.Targets, target)
	}
	return nil
}

func jointGroup(indices []uint16, group int) (out [4]uint16) {
	for i := 0; i < 4; i++ {
		if ix := group*4 + i; ix < len(indices) {
			out[i] = indices[ix]
		}
	}
	return
}

func weightGroup(weights []float32, group int) (out [4]float32) {
	for i := 0; i < 4; i++ {
		if ix := group*4 + i; ix < len(weights) {
			out[i] = weights[ix]
		}
	}
	return
}

func flattenVec2(in []mgl32.Vec2) []float32 {
	out := make([]float32, 0, len(in)*2)
	for _, v := range in {
		out = append(out, v[:]...)
	}
	return out
}

func flattenVec3(in []mgl32.Vec3) []float32 {
	out := make([]float32, 0, len(in)*3)
	for _, v := range in {
		out = append(out, v[:]...)
	}
	return out
}

func flattenVec4(in []mgl32.Vec4) []float32 {
	out := make([]float32, 0, len(in)*4)
	for _, v := range in {
		out = append(out, v[:]...)
	}
	return out
}

func flattenFloat32x4(in [][4]float32) []float32 {
	out := make([]float32, 0, len(in)*4)
	for _, v := range in {
		out = append(out, v[:]...)
	}
	return out
}

func flattenUint16x4(in [][4]uint16) []uint16 {
	out := make([]uint16, 0, len(in)*4)
	for _, v := range in {
		out = append(out, v[:]...)
	}
	return out
}
