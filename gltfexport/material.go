package gltfexport

import (
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/sceneforge/raw2gltf/raw"
	"github.com/sceneforge/raw2gltf/utils"
)

// Legacy shading models carry no metallic data; these constants are the
// conventional stand-ins.
const (
	legacyMetallicBlinnPhong = 0.4
	legacyMetallicDefault    = 0.2
	legacyRoughnessDefault   = 0.8
)

// shininessToRoughness maps legacy specular exponents onto the roughness
// scale: shininess 0 -> roughness 1, decreasing monotonically toward 0.
func shininessToRoughness(shininess float32) float32 {
	return float32(math.Sqrt(float64(2.0 / (2.0 + shininess))))
}

// exportMaterial translates one raw material record into the unified
// metallic-roughness descriptor, synthesizing an ORM texture when the
// occlusion/roughness/metallic slots cannot be passed through.
func (e *Exporter) exportMaterial(mat *raw.Material) (uint32, error) {
	simpleTex := func(usage raw.TextureUsage) (*uint32, error) {
		texIx := mat.Texture(usage)
		if texIx < 0 {
			return nil, nil
		}
		return e.textures.Simple(texIx, "simple")
	}

	normalTexture, err := simpleTex(raw.TextureNormal)
	if err != nil {
		return 0, err
	}
	emissiveTexture, err := simpleTex(raw.TextureEmissive)
	if err != nil {
		return 0, err
	}
	var occlusionTexture *uint32

	var emissiveFactor mgl32.Vec3
	var emissiveIntensity float32

	var pbr *gltf.PBRMetallicRoughness
	if e.opts.UsePBRMetRough {
		var baseColorTex, aoMetRoughTex *uint32
		var diffuseFactor mgl32.Vec4
		var metallic, roughness float32

		if mat.Shading == raw.ShadingPBRMetRough {
			props := mat.MetRough
			if props == nil {
				log.Panicf("Material %q tagged %v carries no metallic-roughness props", mat.Name, mat.Shading)
			}

			hasOcclusionMap := mat.Texture(raw.TextureOcclusion) >= 0
			hasRoughnessMap := mat.Texture(raw.TextureRoughness) >= 0
			hasMetallicMap := mat.Texture(raw.TextureMetallic) >= 0

			switch {
			case !hasOcclusionMap && !hasRoughnessMap && !hasMetallicMap:
				// Uniform properties only.
				if e.opts.Verbose {
					log.Printf("Material %s: no ORM textures detected", mat.Name)
				}

			case hasOcclusionMap && hasRoughnessMap && hasMetallicMap &&
				e.texturesAreSame(mat, raw.TextureMetallic, raw.TextureRoughness) &&
				e.texturesAreSame(mat, raw.TextureMetallic, raw.TextureOcclusion):
				// One image already feeds every channel: pass it through.
				if aoMetRoughTex, err = simpleTex(raw.TextureMetallic); err != nil {
					return 0, err
				}
				if e.opts.Verbose {
					log.Printf("Material %s: detected single ORM texture", mat.Name)
				}

			default:
				// Merge occlusion into R, roughness into G, metallic into B.
				// Channels are picked from the sources aligned with where
				// they are going, so an authored ORM texture fed back as its
				// own source passes through unchanged.
				aoMetRoughTex, err = e.textures.Combine(
					[]int{
						mat.Texture(raw.TextureOcclusion),
						mat.Texture(raw.TextureRoughness),
						mat.Texture(raw.TextureMetallic),
					},
					"ao_met_rough",
					func(pixels []utils.ColorFloat) utils.ColorFloat {
						occlusion := float32(1)
						if hasOcclusionMap {
							occlusion = pixels[0][0]
						}
						roughness := pixels[1][1]
						if !hasRoughnessMap {
							roughness *= props.Roughness
						}
						if props.InvertRoughnessMap {
							roughness = 1 - roughness
						}
						metallic := pixels[2][2]
						if !hasMetallicMap {
							metallic *= props.Metallic
						}
						return utils.ColorFloat{occlusion, roughness, metallic, 1}
					})
				if err != nil {
					return 0, err
				}
			}

			if baseColorTex, err = simpleTex(raw.TextureAlbedo); err != nil {
				return 0, err
			}
			diffuseFactor = props.DiffuseFactor
			metallic = props.Metallic
			roughness = props.Roughness
			emissiveFactor = props.EmissiveFactor
			emissiveIntensity = props.EmissiveIntensity
			occlusionTexture = aoMetRoughTex
		} else {
			// Legacy shading: diffuse becomes base color, metallic and
			// roughness come from fixed conversion constants.
			props := mat.Traditional
			if props == nil {
				props = &raw.TraditionalProps{DiffuseFactor: mgl32.Vec4{1, 1, 1, 1}}
			}
			diffuseFactor = props.DiffuseFactor

			if mat.Shading == raw.ShadingBlinn || mat.Shading == raw.ShadingPhong {
				metallic = legacyMetallicBlinnPhong

				aoMetRoughTex, err = e.textures.Combine(
					[]int{mat.Texture(raw.TextureShininess)},
					"ao_met_rough",
					func(pixels []utils.ColorFloat) utils.ColorFloat {
						// The shininess texel scales the scalar exponent; it
						// does not multiply like the other factors.
						shininess := props.Shininess * pixels[0][0]
						return utils.ColorFloat{0, shininessToRoughness(shininess), metallic, 1}
					})
				if err != nil {
					return 0, err
				}

				if aoMetRoughTex != nil {
					// The texture already encodes the full effect.
					metallic, roughness = 1, 1
				} else {
					roughness = shininessToRoughness(props.Shininess)
				}
			} else {
				if mat.Shading != raw.ShadingLambert && mat.Shading != raw.ShadingConstant && e.opts.Verbose {
					log.Printf("Material %s: unsupported shading model %q, using default constants", mat.Name, mat.Shading)
				}
				metallic = legacyMetallicDefault
				roughness = legacyRoughnessDefault
			}

			if baseColorTex, err = simpleTex(raw.TextureDiffuse); err != nil {
				return 0, err
			}
			emissiveFactor = props.EmissiveFactor
			emissiveIntensity = 1
		}

		pbr = newPBRMetallicRoughness(baseColorTex, aoMetRoughTex, diffuseFactor, metallic, roughness)
	}

	var matExtensions gltf.Extensions
	if e.opts.UseKHRMatUnlit {
		// Unlit discards everything lighting would evaluate.
		normalTexture = nil
		emissiveTexture = nil
		emissiveFactor = mgl32.Vec3{}
		emissiveIntensity = 0
		occlusionTexture = nil

		var diffuseFactor mgl32.Vec4
		var baseColorTex *uint32
		if mat.Shading == raw.ShadingPBRMetRough && mat.MetRough != nil {
			diffuseFactor = mat.MetRough.DiffuseFactor
			if baseColorTex, err = simpleTex(raw.TextureAlbedo); err != nil {
				return 0, err
			}
		} else {
			if mat.Traditional != nil {
				diffuseFactor = mat.Traditional.DiffuseFactor
			} else {
				diffuseFactor = mgl32.Vec4{1, 1, 1, 1}
			}
			if baseColorTex, err = simpleTex(raw.TextureDiffuse); err != nil {
				return 0, err
			}
		}

		pbr = newPBRMetallicRoughness(baseColorTex, nil, diffuseFactor, 0, 1)
		matExtensions = gltf.Extensions{ExtMaterialsUnlit: struct{}{}}
		e.markExtensionUsed(ExtMaterialsUnlit, false)
	}

	if occlusionTexture == nil && !e.opts.UseKHRMatUnlit {
		if occlusionTexture, err = simpleTex(raw.TextureOcclusion); err != nil {
			return 0, err
		}
	}

	gltfMaterial := &gltf.Material{
		Name:                 mat.Name,
		DoubleSided:          mat.DoubleSided,
		PBRMetallicRoughness: pbr,
		EmissiveFactor:       emissiveFactor.Mul(emissiveIntensity),
		Extensions:           matExtensions,
	}
	if mat.Type.IsTransparent() {
		gltfMaterial.AlphaMode = gltf.AlphaBlend
	}
	if normalTexture != nil {
		gltfMaterial.NormalTexture = &gltf.NormalTexture{Index: normalTexture}
	}
	if occlusionTexture != nil {
		gltfMaterial.OcclusionTexture = &gltf.OcclusionTexture{Index: occlusionTexture}
	}
	if emissiveTexture != nil {
		gltfMaterial.EmissiveTexture = &gltf.TextureInfo{Index: *emissiveTexture}
	}
	if e.opts.EnableUserProperties && len(mat.UserProperties) != 0 {
		gltfMaterial.Extras = mat.UserProperties
	}

	e.doc.Materials = append(e.doc.Materials, gltfMaterial)
	return uint32(len(e.doc.Materials) - 1), nil
}

// texturesAreSame compares slot bindings by source content identity: slots
// bound to byte-identical files compare equal even across texture entries.
func (e *Exporter) texturesAreSame(mat *raw.Material, a, b raw.TextureUsage) bool {
	texA, texB := mat.Texture(a), mat.Texture(b)
	if texA < 0 || texB < 0 {
		return false
	}
	return e.textures.sourceKey(texA) == e.textures.sourceKey(texB)
}

func newPBRMetallicRoughness(baseColorTex, metRoughTex *uint32, diffuseFactor mgl32.Vec4, metallic, roughness float32) *gltf.PBRMetallicRoughness {
	factor := [4]float32(diffuseFactor)
	pbr := &gltf.PBRMetallicRoughness{
		BaseColorFactor: &factor,
		MetallicFactor:  gltf.Float(metallic),
		RoughnessFactor: gltf.Float(roughness),
	}
	if baseColorTex != nil {
		pbr.BaseColorTexture = &gltf.TextureInfo{Index: *baseColorTex}
	}
	if metRoughTex != nil {
		pbr.MetallicRoughnessTexture = &gltf.TextureInfo{Index: *metRoughTex}
	}
	return pbr
}
