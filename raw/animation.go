package raw

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Channel animates one node. Rotations are quaternions stored xyzw.
// Weights carry one value per blend channel per keyframe, flattened in
// keyframe-major order.
type Channel struct {
	NodeIndex int `json:"nodeIndex"`

	Translations []mgl32.Vec3 `json:"translations,omitempty"`
	Rotations    []mgl32.Vec4 `json:"rotations,omitempty"`
	Scales       []mgl32.Vec3 `json:"scales,omitempty"`
	Weights      []float32    `json:"weights,omitempty"`
}

type Animation struct {
	Name     string    `json:"name"`
	Times    []float32 `json:"times"`
	Channels []Channel `json:"channels"`
}
