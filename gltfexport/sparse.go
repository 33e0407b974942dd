package gltfexport

import (
	"log"

	"github.com/qmuntal/gltf"
)

type dummyKey struct {
	comp  gltf.ComponentType
	etype gltf.AccessorType
}

// SparseBuilder layers sparse descriptors over dense base accessors.
// The format forbids zero-length sparse blocks, so channels that change no
// vertices share one-element dummy index/value views, created once per run
// per element type.
type SparseBuilder struct {
	layout *Layout

	dummyIndexViews map[gltf.ComponentType]uint32
	dummyValueViews map[dummyKey]uint32
}

func NewSparseBuilder(layout *Layout) *SparseBuilder {
	return &SparseBuilder{
		layout:          layout,
		dummyIndexViews: make(map[gltf.ComponentType]uint32),
		dummyValueViews: make(map[dummyKey]uint32),
	}
}

func (sb *SparseBuilder) dummyIndexView(indexComp gltf.ComponentType) uint32 {
	if viewIx, ok := sb.dummyIndexViews[indexComp]; ok {
		return viewIx
	}
	viewIx := sb.layout.AllocateView(targetNone)
	sb.layout.AppendData(viewIx, indexComp, gltf.AccessorScalar, encodeIndices([]uint32{0}, indexComp))
	sb.dummyIndexViews[indexComp] = viewIx
	return viewIx
}

func (sb *SparseBuilder) dummyValueView(comp gltf.ComponentType, etype gltf.AccessorType) uint32 {
	key := dummyKey{comp, etype}
	if viewIx, ok := sb.dummyValueViews[key]; ok {
		return viewIx
	}
	if comp != gltf.ComponentFloat {
		log.Panicf("Sparse value views carry float elements, got component type %v", comp)
	}
	viewIx := sb.layout.AllocateView(targetNone)
	sb.layout.AppendData(viewIx, comp, etype, make([]float32, etype.Components()))
	sb.dummyValueViews[key] = viewIx
	return viewIx
}

// AddSparseAccessor builds a sparse accessor over the base accessor for one
// morph channel. indices are ascending local element indices; values holds
// exactly len(indices) changed elements. The result's count always equals
// the base count, and sparse.count is never below 1.
func (sb *SparseBuilder) AddSparseAccessor(baseIx uint32, indices []uint32, indexComp gltf.ComponentType, etype gltf.AccessorType, values interface{}, name string) uint32 {
	doc := sb.layout.doc
	base := doc.Accessors[baseIx]
	if base.Type != etype {
		log.Panicf("Sparse channel %q element shape %v does not match base accessor shape %v", name, etype, base.Type)
	}

	sparse := &gltf.Sparse{}
	if len(indices) == 0 {
		sparse.Count = 1
		sparse.Indices = gltf.SparseIndices{
			BufferView:    sb.dummyIndexView(indexComp),
			ComponentType: indexComp,
		}
		sparse.Values = gltf.SparseValues{
			BufferView: sb.dummyValueView(base.ComponentType, etype),
		}
	} else {
		indexViewIx := sb.layout.AllocateView(targetNone)
		sb.layout.AppendData(indexViewIx, indexComp, gltf.AccessorScalar, encodeIndices(indices, indexComp))

		valueViewIx := sb.layout.AllocateView(targetNone)
		count := sb.layout.AppendData(valueViewIx, base.ComponentType, etype, values)
		if count != uint32(len(indices)) {
			log.Panicf("Sparse channel %q has %d values for %d indices", name, count, len(indices))
		}

		sparse.Count = uint32(len(indices))
		sparse.Indices = gltf.SparseIndices{
			BufferView:    indexViewIx,
			ComponentType: indexComp,
		}
		sparse.Values = gltf.SparseValues{
			BufferView: valueViewIx,
		}
	}

	// No buffer view: the dense base of a morph delta is implicit zeros,
	// the base accessor contributes only count and element shape.
	doc.Accessors = append(doc.Accessors, &gltf.Accessor{
		Name:          name,
		ComponentType: base.ComponentType,
		Type:          etype,
		Count:         base.Count,
		Sparse:        sparse,
	})
	return uint32(len(doc.Accessors) - 1)
}

// encodeIndices narrows indices to the document's index width.
func encodeIndices(indices []uint32, indexComp gltf.ComponentType) interface{} {
	switch indexComp {
	case gltf.ComponentUint:
		return indices
	case gltf.ComponentUshort:
		short := make([]uint16, len(indices))
		for i, v := range indices {
			if v > 65535 {
				log.Panicf("Index %d does not fit 16 bits", v)
			}
			short[i] = uint16(v)
		}
		return short
	}
	log.Panicf("Unsupported index component type %v", indexComp)
	return nil
}
