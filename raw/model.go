// Package raw holds the source-format-agnostic scene graph that the glTF
// synthesis consumes. It is produced by an upstream parser and treated as
// read-only here; every entity is addressable by a stable integer id.
package raw

import (
	"github.com/go-gl/mathgl/mgl32"
)

type AttributeMask uint32

const (
	AttrPosition AttributeMask = 1 << iota
	AttrNormal
	AttrTangent
	AttrColor
	AttrUV0
	AttrUV1
	AttrJointIndices
	AttrJointWeights
)

func (m AttributeMask) Has(a AttributeMask) bool { return m&a != 0 }

// BlendVertex is one morph-target delta for one vertex.
type BlendVertex struct {
	Position mgl32.Vec3 `json:"position"`
	Normal   mgl32.Vec3 `json:"normal"`
	Tangent  mgl32.Vec4 `json:"tangent"`
}

type Vertex struct {
	Position mgl32.Vec3 `json:"position"`
	Normal   mgl32.Vec3 `json:"normal"`
	Tangent  mgl32.Vec4 `json:"tangent"`
	Color    mgl32.Vec4 `json:"color"`
	UV0      mgl32.Vec2 `json:"uv0"`
	UV1      mgl32.Vec2 `json:"uv1"`

	// Skinning influences, packed in groups of four. len == 4 * influence
	// group count; both slices always have equal length.
	JointIndices []uint16  `json:"jointIndices,omitempty"`
	JointWeights []float32 `json:"jointWeights,omitempty"`

	// One entry per blend channel of the owning surface.
	Blends []BlendVertex `json:"blends,omitempty"`
}

type Triangle struct {
	Verts         [3]int `json:"verts"`
	MaterialIndex int    `json:"materialIndex"`
	SurfaceIndex  int    `json:"surfaceIndex"`
}

type Bounds struct {
	Min mgl32.Vec3 `json:"min"`
	Max mgl32.Vec3 `json:"max"`

	set bool
}

// AddPoint grows the bounds to contain p. The first point initializes the
// bounds exactly; a zero point counts like any other.
func (b *Bounds) AddPoint(p mgl32.Vec3) {
	if !b.set {
		b.Min, b.Max, b.set = p, p, true
		return
	}
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

type BlendChannel struct {
	Name          string  `json:"name"`
	DefaultDeform float32 `json:"defaultDeform"`
	HasNormals    bool    `json:"hasNormals"`
	HasTangents   bool    `json:"hasTangents"`
}

type Surface struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`

	Bounds Bounds `json:"bounds"`

	// Skinning. InverseBindMatrices are row-major as authored by legacy
	// tools; the exporter transposes them into glTF's column-major layout.
	SkeletonRootID      int64        `json:"skeletonRootId,omitempty"`
	JointIDs            []int64      `json:"jointIds,omitempty"`
	InverseBindMatrices []mgl32.Mat4 `json:"inverseBindMatrices,omitempty"`

	BlendChannels []BlendChannel `json:"blendChannels,omitempty"`
}

// Model is the whole parsed scene. Entity tables are flat; all
// cross-references are ids resolved through the lookup methods.
type Model struct {
	Attributes AttributeMask `json:"attributes"`

	Vertices  []Vertex   `json:"vertices"`
	Triangles []Triangle `json:"triangles"`

	Textures   []Texture   `json:"textures,omitempty"`
	Materials  []Material  `json:"materials,omitempty"`
	Surfaces   []Surface   `json:"surfaces,omitempty"`
	Nodes      []Node      `json:"nodes"`
	Animations []Animation `json:"animations,omitempty"`
	Cameras    []Camera    `json:"cameras,omitempty"`
	Lights     []Light     `json:"lights,omitempty"`

	RootNodeID     int64 `json:"rootNodeId"`
	ExtraSkinCount int   `json:"extraSkinCount,omitempty"`
}

// NodeIndexByID returns -1 when the id is unknown.
func (m *Model) NodeIndexByID(id int64) int {
	for i := range m.Nodes {
		if m.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// SurfaceIndexByID returns -1 when the id is unknown.
func (m *Model) SurfaceIndexByID(id int64) int {
	for i := range m.Surfaces {
		if m.Surfaces[i].ID == id {
			return i
		}
	}
	return -1
}

// InfluenceGroupCount is the number of 4-wide JOINTS_n/WEIGHTS_n groups
// needed to carry the widest skinning influence set in the model.
func (m *Model) InfluenceGroupCount() int {
	max := 0
	for i := range m.Vertices {
		if n := len(m.Vertices[i].JointIndices); n > max {
			max = n
		}
	}
	return (max + 3) / 4
}
