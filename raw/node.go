package raw

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Node is one transform in the source hierarchy. Rotation is a quaternion
// stored xyzw. Optional references are pointers; SurfaceID follows the
// legacy convention that 0 means "no surface".
type Node struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	NameBytes []byte `json:"nameBytes,omitempty"`
	IsJoint   bool   `json:"isJoint,omitempty"`

	Translation mgl32.Vec3 `json:"translation"`
	Rotation    mgl32.Vec4 `json:"rotation"`
	// RotationEuler (degrees) is accepted from legacy sources in place of
	// Rotation; the loader converts it.
	RotationEuler *mgl32.Vec3 `json:"rotationEuler,omitempty"`
	Scale         mgl32.Vec3  `json:"scale"`

	ChildIDs []int64 `json:"childIds,omitempty"`

	SurfaceID   int64 `json:"surfaceId,omitempty"`
	LightIx     *int  `json:"lightIx,omitempty"`
	ExtraSkinIx *int  `json:"extraSkinIx,omitempty"`

	UserProperties map[string]interface{} `json:"userProperties,omitempty"`
}

type CameraMode string

const (
	CameraPerspective  CameraMode = "perspective"
	CameraOrthographic CameraMode = "orthographic"
)

type PerspectiveCamera struct {
	AspectRatio float32 `json:"aspectRatio"`
	FOVDegreesY float32 `json:"fovDegreesY"`
	NearZ       float32 `json:"nearZ"`
	FarZ        float32 `json:"farZ"`
}

type OrthographicCamera struct {
	MagX  float32 `json:"magX"`
	MagY  float32 `json:"magY"`
	NearZ float32 `json:"nearZ"`
	FarZ  float32 `json:"farZ"`
}

type Camera struct {
	Name   string     `json:"name"`
	NodeID int64      `json:"nodeId"`
	Mode   CameraMode `json:"mode"`

	Perspective  PerspectiveCamera  `json:"perspective"`
	Orthographic OrthographicCamera `json:"orthographic"`
}

type LightType string

const (
	LightDirectional LightType = "directional"
	LightPoint       LightType = "point"
	LightSpot        LightType = "spot"
)

// Light intensity is in the source convention (FBX defaults to 100 for
// "nominal"); the exporter rescales it.
type Light struct {
	Name           string     `json:"name"`
	Type           LightType  `json:"type"`
	Color          mgl32.Vec3 `json:"color"`
	Intensity      float32    `json:"intensity"`
	InnerConeAngle float32    `json:"innerConeAngle,omitempty"`
	OuterConeAngle float32    `json:"outerConeAngle,omitempty"`
}
