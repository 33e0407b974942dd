// Package compress defines the contract between the glTF synthesis core and
// an external geometry-compression backend (Draco or compatible). Only the
// input/output shape lives here; actual encoders are plugged in by callers.
package compress

// AttributeKind is the backend's quantization class for an attribute.
type AttributeKind int

const (
	AttrGeneric AttributeKind = iota
	AttrPosition
	AttrNormal
	AttrColor
	AttrTexCoord
)

// Attribute is one per-vertex stream handed to the backend. Exactly one of
// Floats/Ushorts is populated; Components is the vector width (1..4) and
// len(data) == Components * vertex count.
type Attribute struct {
	Kind     AttributeKind
	Semantic string // glTF attribute name, e.g. "POSITION", "JOINTS_0"

	Components int
	Floats     []float32
	Ushorts    []uint16
}

// Mesh is one indexed triangle mesh.
type Mesh struct {
	VertexCount int
	Faces       [][3]uint32
	Attributes  []Attribute
}

// Options mirror the enumerated configuration knobs. A quantization value
// of -1 keeps the backend default; SpeedLevel follows the Draco convention
// (10 - compression level).
type Options struct {
	SpeedLevel int
	QuantBits  map[AttributeKind]int
}

// Result is the opaque compressed blob plus the backend's id for every
// attribute, keyed by semantic, as required by the container extension.
type Result struct {
	Blob         []byte
	AttributeIDs map[string]uint32
}

// Encoder compresses one mesh. Any error is fatal to the synthesis run:
// the core never silently falls back to uncompressed geometry.
type Encoder interface {
	EncodeMesh(mesh *Mesh, opts Options) (*Result, error)
}
