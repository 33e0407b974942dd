package gltfexport

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/qmuntal/gltf"
)

func TestLayoutAlignsViewsToComponentSize(t *testing.T) {
	doc := gltf.NewDocument()
	l := NewLayout(doc)

	// Three uint16 scalars leave the blob tail at offset 6.
	l.AddAccessorWithView(gltf.TargetElementArrayBuffer, gltf.ComponentUshort, gltf.AccessorScalar,
		[]uint16{1, 2, 3}, "")
	// The float view must start on a 4-byte boundary, skipping 2 pad bytes.
	accIx := l.AddAccessorWithView(gltf.TargetArrayBuffer, gltf.ComponentFloat, gltf.AccessorVec3,
		[]float32{1, 2, 3, 4, 5, 6}, "")

	acc := doc.Accessors[accIx]
	view := doc.BufferViews[*acc.BufferView]
	if view.ByteOffset != 8 {
		t.Errorf("float view offset = %d, want 8", view.ByteOffset)
	}
	if view.ByteLength != 24 {
		t.Errorf("float view length = %d, want 24", view.ByteLength)
	}
	if acc.Count != 2 {
		t.Errorf("accessor count = %d, want 2", acc.Count)
	}
	if got := doc.Buffers[0].ByteLength; got != 32 {
		t.Errorf("buffer length = %d, want 32", got)
	}
}

func TestLayoutViewsNeverOverlap(t *testing.T) {
	doc := gltf.NewDocument()
	l := NewLayout(doc)

	l.AddAccessorWithView(targetNone, gltf.ComponentUshort, gltf.AccessorScalar, []uint16{1}, "")
	l.AddAccessorWithView(targetNone, gltf.ComponentFloat, gltf.AccessorVec2, []float32{1, 2}, "")
	l.AddRawBufferView([]byte{0xAA, 0xBB, 0xCC})
	l.AddAccessorWithView(targetNone, gltf.ComponentFloat, gltf.AccessorScalar, []float32{9}, "")

	end := uint32(0)
	for i, view := range doc.BufferViews {
		if view.ByteOffset < end {
			t.Errorf("view %d at offset %d overlaps previous end %d", i, view.ByteOffset, end)
		}
		end = view.ByteOffset + view.ByteLength
	}
	if end > doc.Buffers[0].ByteLength {
		t.Errorf("views end at %d, beyond buffer length %d", end, doc.Buffers[0].ByteLength)
	}
}

func TestLayoutRoundTrip(t *testing.T) {
	doc := gltf.NewDocument()
	l := NewLayout(doc)

	want := []float32{0.5, -1.25, 3e7, 0, 42}
	accIx := l.AddAccessorWithView(targetNone, gltf.ComponentFloat, gltf.AccessorScalar, want, "")

	acc := doc.Accessors[accIx]
	view := doc.BufferViews[*acc.BufferView]
	data := doc.Buffers[0].Data[view.ByteOffset : view.ByteOffset+view.ByteLength]

	got := make([]float32, acc.Count)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, got); err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestComputeBounds(t *testing.T) {
	doc := gltf.NewDocument()
	l := NewLayout(doc)

	accIx := l.AddAccessorAndView(gltf.ComponentFloat, gltf.AccessorVec2,
		[]float32{1, -2, -3, 4, 2, 0}, true)

	acc := doc.Accessors[accIx]
	wantMin := []float32{-3, -2}
	wantMax := []float32{2, 4}
	for i := range wantMin {
		if acc.Min[i] != wantMin[i] {
			t.Errorf("min[%d] = %v, want %v", i, acc.Min[i], wantMin[i])
		}
		if acc.Max[i] != wantMax[i] {
			t.Errorf("max[%d] = %v, want %v", i, acc.Max[i], wantMax[i])
		}
	}
}
