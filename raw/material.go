package raw

import (
	"github.com/go-gl/mathgl/mgl32"
)

// TextureUsage names the slot a texture is bound to on a material.
type TextureUsage string

const (
	TextureDiffuse   TextureUsage = "diffuse"
	TextureAlbedo    TextureUsage = "albedo"
	TextureNormal    TextureUsage = "normal"
	TextureEmissive  TextureUsage = "emissive"
	TextureShininess TextureUsage = "shininess"
	TextureOcclusion TextureUsage = "occlusion"
	TextureRoughness TextureUsage = "roughness"
	TextureMetallic  TextureUsage = "metallic"
)

// ShadingModel is the discriminant of the legacy-vs-PBR material variant.
type ShadingModel string

const (
	ShadingUnknown     ShadingModel = "unknown"
	ShadingConstant    ShadingModel = "constant"
	ShadingLambert     ShadingModel = "lambert"
	ShadingBlinn       ShadingModel = "blinn"
	ShadingPhong       ShadingModel = "phong"
	ShadingPBRMetRough ShadingModel = "pbrMetRough"
)

type MaterialType string

const (
	MaterialOpaque             MaterialType = "opaque"
	MaterialTransparent        MaterialType = "transparent"
	MaterialSkinnedOpaque      MaterialType = "skinnedOpaque"
	MaterialSkinnedTransparent MaterialType = "skinnedTransparent"
)

func (t MaterialType) IsTransparent() bool {
	return t == MaterialTransparent || t == MaterialSkinnedTransparent
}

// MetRoughProps carries authored metallic-roughness values.
type MetRoughProps struct {
	DiffuseFactor      mgl32.Vec4 `json:"diffuseFactor"`
	Metallic           float32    `json:"metallic"`
	Roughness          float32    `json:"roughness"`
	InvertRoughnessMap bool       `json:"invertRoughnessMap,omitempty"`
	EmissiveFactor     mgl32.Vec3 `json:"emissiveFactor"`
	EmissiveIntensity  float32    `json:"emissiveIntensity"`
}

// TraditionalProps carries legacy Lambert/Blinn/Phong values.
type TraditionalProps struct {
	DiffuseFactor  mgl32.Vec4 `json:"diffuseFactor"`
	Shininess      float32    `json:"shininess"`
	EmissiveFactor mgl32.Vec3 `json:"emissiveFactor"`
}

// Material is a tagged variant: Shading selects which props pointer is
// populated. Texture slots map usage to an index into Model.Textures;
// an absent key means the slot is unbound.
type Material struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	NameBytes   []byte       `json:"nameBytes,omitempty"`
	Type        MaterialType `json:"type"`
	DoubleSided bool         `json:"doubleSided,omitempty"`

	Textures map[TextureUsage]int `json:"textures,omitempty"`

	Shading     ShadingModel      `json:"shading"`
	MetRough    *MetRoughProps    `json:"metRough,omitempty"`
	Traditional *TraditionalProps `json:"traditional,omitempty"`

	UserProperties map[string]interface{} `json:"userProperties,omitempty"`
}

// Texture returns the texture table index bound to the usage, or -1.
func (m *Material) Texture(usage TextureUsage) int {
	if ix, ok := m.Textures[usage]; ok {
		return ix
	}
	return -1
}

// Texture is an already-encoded source image. FileLocation is the content
// identity legacy pipelines compare by (case-insensitively).
type Texture struct {
	Name         string `json:"name"`
	FileLocation string `json:"fileLocation"`
	MimeType     string `json:"mimeType"`
	Data         []byte `json:"data"`
}
