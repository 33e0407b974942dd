// Package gltfexport synthesizes a glTF 2.0 document from a parsed raw
// scene graph: it lays out the single binary buffer, builds dense and
// sparse accessors, translates materials into metallic-roughness form,
// assembles mesh primitives and the node graph, and serializes the result
// as JSON or a GLB container.
package gltfexport

import (
	"bytes"
	"encoding/binary"
	"log"
	"math"

	"github.com/qmuntal/gltf"
)

const targetNone gltf.Target = 0

// Layout owns the document's single binary buffer. Views are allocated at
// the blob tail and filled through AppendData, which aligns the view start
// to the component size of the data written into it. The buffer only ever
// grows; views never move once written.
type Layout struct {
	doc *gltf.Document
}

func NewLayout(doc *gltf.Document) *Layout {
	if len(doc.Buffers) == 0 {
		doc.Buffers = append(doc.Buffers, &gltf.Buffer{})
	}
	return &Layout{doc: doc}
}

func (l *Layout) buffer() *gltf.Buffer { return l.doc.Buffers[0] }

// AllocateView reserves an empty view at the current blob tail. The final
// offset is fixed on the first AppendData call, after alignment padding.
func (l *Layout) AllocateView(target gltf.Target) uint32 {
	view := &gltf.BufferView{
		Buffer:     0,
		ByteOffset: uint32(len(l.buffer().Data)),
		Target:     target,
	}
	l.doc.BufferViews = append(l.doc.BufferViews, view)
	return uint32(len(l.doc.BufferViews) - 1)
}

// AppendData encodes elements little-endian into the view and returns the
// element count. The view must still be at the blob tail: views are filled
// right after allocation, never revisited.
func (l *Layout) AppendData(viewIx uint32, comp gltf.ComponentType, etype gltf.AccessorType, elements interface{}) uint32 {
	view := l.doc.BufferViews[viewIx]
	buffer := l.buffer()

	var encoded bytes.Buffer
	if err := binary.Write(&encoded, binary.LittleEndian, elements); err != nil {
		log.Panicf("Cannot encode %T elements: %v", elements, err)
	}

	elemSize := comp.ByteSize() * etype.Components()
	if uint32(encoded.Len())%elemSize != 0 {
		log.Panicf("Element data of %d bytes is not a multiple of element size %d", encoded.Len(), elemSize)
	}

	if view.ByteLength == 0 {
		// Pad so the view begins on a component-size boundary. Padding
		// bytes are never referenced by any accessor.
		for uint32(len(buffer.Data))%comp.ByteSize() != 0 {
			buffer.Data = append(buffer.Data, 0)
		}
		view.ByteOffset = uint32(len(buffer.Data))
	} else if view.ByteOffset+view.ByteLength != uint32(len(buffer.Data)) {
		log.Panicf("View %d is no longer at the buffer tail", viewIx)
	}

	buffer.Data = append(buffer.Data, encoded.Bytes()...)
	view.ByteLength += uint32(encoded.Len())
	buffer.ByteLength = uint32(len(buffer.Data))

	return uint32(encoded.Len()) / elemSize
}

// AddRawBufferView stores an opaque blob (compressed geometry) without any
// alignment or usage tag.
func (l *Layout) AddRawBufferView(data []byte) uint32 {
	buffer := l.buffer()
	view := &gltf.BufferView{
		Buffer:     0,
		ByteOffset: uint32(len(buffer.Data)),
		ByteLength: uint32(len(data)),
	}
	buffer.Data = append(buffer.Data, data...)
	buffer.ByteLength = uint32(len(buffer.Data))
	l.doc.BufferViews = append(l.doc.BufferViews, view)
	return uint32(len(l.doc.BufferViews) - 1)
}

// AddAccessorWithView appends elements into a fresh view with the given
// usage tag and creates an accessor over it.
func (l *Layout) AddAccessorWithView(target gltf.Target, comp gltf.ComponentType, etype gltf.AccessorType, elements interface{}, name string) uint32 {
	viewIx := l.AllocateView(target)
	count := l.AppendData(viewIx, comp, etype, elements)

	l.doc.Accessors = append(l.doc.Accessors, &gltf.Accessor{
		Name:          name,
		BufferView:    gltf.Index(viewIx),
		ComponentType: comp,
		Type:          etype,
		Count:         count,
	})
	return uint32(len(l.doc.Accessors) - 1)
}

// AddAccessorAndView is the untagged-view convenience used for animation
// keys, inverse bind matrices and similar non-vertex data. Bounds are
// computed only when asked for; they are never derived implicitly.
func (l *Layout) AddAccessorAndView(comp gltf.ComponentType, etype gltf.AccessorType, elements interface{}, withBounds bool) uint32 {
	accIx := l.AddAccessorWithView(targetNone, comp, etype, elements, "")
	if withBounds {
		acc := l.doc.Accessors[accIx]
		acc.Min, acc.Max = l.ComputeBounds(accIx)
	}
	return accIx
}

// ComputeBounds decodes the accessor's dense elements and returns
// per-component min/max. Only float accessors have meaningful bounds.
func (l *Layout) ComputeBounds(accIx uint32) (min, max []float32) {
	acc := l.doc.Accessors[accIx]
	if acc.ComponentType != gltf.ComponentFloat {
		log.Panicf("Bounds requested for non-float accessor %d", accIx)
	}
	if acc.BufferView == nil || acc.Count == 0 {
		return nil, nil
	}

	components := acc.Type.Components()
	min = make([]float32, components)
	max = make([]float32, components)
	for i := range min {
		min[i] = float32(math.Inf(1))
		max[i] = float32(math.Inf(-1))
	}

	view := l.doc.BufferViews[*acc.BufferView]
	data := l.buffer().Data[view.ByteOffset+acc.ByteOffset:]
	for e := uint32(0); e < acc.Count; e++ {
		for c := uint32(0); c < components; c++ {
			off := (e*components + c) * 4
			v := math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			if v < min[c] {
				min[c] = v
			}
			if v > max[c] {
				max[c] = v
			}
		}
	}
	return min, max
}
