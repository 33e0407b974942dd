package gltfexport

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/sceneforge/raw2gltf/config"
	"github.com/sceneforge/raw2gltf/raw"
	"github.com/sceneforge/raw2gltf/utils"
)

func pngBytes(t *testing.T, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func materialExporter(model *raw.Model, opts *config.Options) *Exporter {
	return NewExporter(model, opts, nil, nil)
}

// storedImage decodes the document image referenced by a texture index.
func storedImage(t *testing.T, doc *gltf.Document, textureIx uint32) image.Image {
	t.Helper()
	img := doc.Images[*doc.Textures[textureIx].Source]
	view := doc.BufferViews[*img.BufferView]
	data := doc.Buffers[0].Data[view.ByteOffset : view.ByteOffset+view.ByteLength]
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return decoded
}

func channel8(c color.Color, i int) int {
	r, g, b, a := c.RGBA()
	return int([]uint32{r, g, b, a}[i] >> 8)
}

func TestShininessToRoughness(t *testing.T) {
	if got := shininessToRoughness(0); got != 1 {
		t.Errorf("roughness(0) = %v, want 1", got)
	}
	if got := shininessToRoughness(2); math.Abs(float64(got)-math.Sqrt(0.5)) > 1e-6 {
		t.Errorf("roughness(2) = %v, want sqrt(0.5)", got)
	}
	if shininessToRoughness(100) >= shininessToRoughness(10) {
		t.Error("roughness must decrease with shininess")
	}
}

func TestOcclusionOnlySynthesizesORM(t *testing.T) {
	model := &raw.Model{
		Textures: []raw.Texture{{
			Name:         "ao",
			FileLocation: "C:/Assets/AO.png",
			MimeType:     "image/png",
			Data:         pngBytes(t, color.NRGBA{R: 51, G: 255, B: 255, A: 255}),
		}},
		Materials: []raw.Material{{
			ID:      1,
			Name:    "pbr",
			Shading: raw.ShadingPBRMetRough,
			MetRough: &raw.MetRoughProps{
				DiffuseFactor: mgl32.Vec4{1, 1, 1, 1},
				Metallic:      0.25,
				Roughness:     0.5,
			},
			Textures: map[raw.TextureUsage]int{raw.TextureOcclusion: 0},
		}},
	}

	e := materialExporter(model, config.DefaultOptions())
	matIx, err := e.exportMaterial(&model.Materials[0])
	if err != nil {
		t.Fatal(err)
	}

	mat := e.doc.Materials[matIx]
	pbr := mat.PBRMetallicRoughness
	if pbr.MetallicRoughnessTexture == nil {
		t.Fatal("expected a synthesized ORM texture")
	}
	if mat.OcclusionTexture == nil || *mat.OcclusionTexture.Index != pbr.MetallicRoughnessTexture.Index {
		t.Error("occlusion must reference the synthesized ORM texture")
	}

	out := storedImage(t, e.doc, pbr.MetallicRoughnessTexture.Index)
	pixel := out.At(0, 0)
	if got := channel8(pixel, 0); got < 50 || got > 52 {
		t.Errorf("R = %d, want occlusion source channel 51", got)
	}
	if got := channel8(pixel, 1); got < 126 || got > 129 {
		t.Errorf("G = %d, want roughness factor 0.5", got)
	}
	if got := channel8(pixel, 2); got < 62 || got > 65 {
		t.Errorf("B = %d, want metallic factor 0.25", got)
	}
}

func TestIdenticalORMPassesThrough(t *testing.T) {
	source := pngBytes(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	model := &raw.Model{
		Textures: []raw.Texture{{
			Name:         "orm",
			FileLocation: "Textures/ORM.PNG",
			MimeType:     "image/png",
			Data:         source,
		}},
		Materials: []raw.Material{{
			ID:      1,
			Name:    "pbr",
			Shading: raw.ShadingPBRMetRough,
			MetRough: &raw.MetRoughProps{
				DiffuseFactor: mgl32.Vec4{1, 1, 1, 1},
				Metallic:      1,
				Roughness:     1,
			},
			Textures: map[raw.TextureUsage]int{
				raw.TextureOcclusion: 0,
				raw.TextureRoughness: 0,
				raw.TextureMetallic:  0,
			},
		}},
	}

	e := materialExporter(model, config.DefaultOptions())
	if _, err := e.exportMaterial(&model.Materials[0]); err != nil {
		t.Fatal(err)
	}

	if len(e.doc.Textures) != 1 {
		t.Fatalf("textures = %d, want the single pass-through", len(e.doc.Textures))
	}
	img := e.doc.Images[*e.doc.Textures[0].Source]
	view := e.doc.BufferViews[*img.BufferView]
	stored := e.doc.Buffers[0].Data[view.ByteOffset : view.ByteOffset+view.ByteLength]
	if !bytes.Equal(stored, source) {
		t.Error("pass-through must keep the source bytes unmodified")
	}
}

func TestUnlitDiscardsLightingInputs(t *testing.T) {
	model := &raw.Model{
		Textures: []raw.Texture{
			{Name: "n", FileLocation: "n.png", MimeType: "image/png", Data: pngBytes(t, color.NRGBA{B: 255, A: 255})},
			{Name: "e", FileLocation: "e.png", MimeType: "image/png", Data: pngBytes(t, color.NRGBA{R: 255, A: 255})},
		},
		Materials: []raw.Material{{
			ID:      1,
			Name:    "flat",
			Shading: raw.ShadingLambert,
			Textures: map[raw.TextureUsage]int{
				raw.TextureNormal:   0,
				raw.TextureEmissive: 1,
			},
		}},
	}

	opts := config.DefaultOptions()
	opts.UseKHRMatUnlit = true
	e := materialExporter(model, opts)
	matIx, err := e.exportMaterial(&model.Materials[0])
	if err != nil {
		t.Fatal(err)
	}

	mat := e.doc.Materials[matIx]
	if mat.NormalTexture != nil || mat.EmissiveTexture != nil || mat.OcclusionTexture != nil {
		t.Error("unlit material must carry no normal/emissive/occlusion references")
	}
	pbr := mat.PBRMetallicRoughness
	if *pbr.MetallicFactor != 0 || *pbr.RoughnessFactor != 1 {
		t.Errorf("unlit factors = %v/%v, want 0/1", *pbr.MetallicFactor, *pbr.RoughnessFactor)
	}
	if _, ok := mat.Extensions[ExtMaterialsUnlit]; !ok {
		t.Error("material must be tagged unlit")
	}
	found := false
	for _, ext := range e.doc.ExtensionsUsed {
		found = found || ext == ExtMaterialsUnlit
	}
	if !found {
		t.Error("document must list the unlit extension as used")
	}
}

func TestBlinnConversionConstants(t *testing.T) {
	model := &raw.Model{
		Materials: []raw.Material{{
			ID:      1,
			Name:    "legacy",
			Shading: raw.ShadingBlinn,
			Traditional: &raw.TraditionalProps{
				DiffuseFactor: mgl32.Vec4{1, 1, 1, 1},
				Shininess:     2,
			},
		}},
	}

	e := materialExporter(model, config.DefaultOptions())
	matIx, err := e.exportMaterial(&model.Materials[0])
	if err != nil {
		t.Fatal(err)
	}

	pbr := e.doc.Materials[matIx].PBRMetallicRoughness
	if *pbr.MetallicFactor != legacyMetallicBlinnPhong {
		t.Errorf("metallic = %v, want %v", *pbr.MetallicFactor, legacyMetallicBlinnPhong)
	}
	if math.Abs(float64(*pbr.RoughnessFactor)-math.Sqrt(0.5)) > 1e-6 {
		t.Errorf("roughness = %v, want sqrt(0.5)", *pbr.RoughnessFactor)
	}
}

func TestTransparentMaterialBlends(t *testing.T) {
	model := &raw.Model{
		Materials: []raw.Material{{
			ID:      1,
			Name:    "glass",
			Type:    raw.MaterialTransparent,
			Shading: raw.ShadingLambert,
		}},
	}

	e := materialExporter(model, config.DefaultOptions())
	matIx, err := e.exportMaterial(&model.Materials[0])
	if err != nil {
		t.Fatal(err)
	}
	if e.doc.Materials[matIx].AlphaMode != gltf.AlphaBlend {
		t.Errorf("alpha mode = %v, want blend", e.doc.Materials[matIx].AlphaMode)
	}
}

func TestCombineDeduplicatesRequests(t *testing.T) {
	model := &raw.Model{
		Textures: []raw.Texture{{
			Name:         "a",
			FileLocation: "A.png",
			MimeType:     "image/png",
			Data:         pngBytes(t, color.NRGBA{R: 100, G: 100, B: 100, A: 255}),
		}},
	}
	doc := gltf.NewDocument()
	NewLayout(doc)
	tb := NewTextureBuilder(doc, model, PNGCodec{})

	invert := func(pixels []utils.ColorFloat) utils.ColorFloat {
		p := pixels[0]
		return utils.ColorFloat{1 - p[0], 1 - p[1], 1 - p[2], 1}
	}
	first, err := tb.Combine([]int{0}, "invert", invert)
	if err != nil {
		t.Fatal(err)
	}
	second, err := tb.Combine([]int{0}, "invert", invert)
	if err != nil {
		t.Fatal(err)
	}

	if *first != *second {
		t.Errorf("repeated request produced texture %d then %d, want one shared entity", *first, *second)
	}
	if len(doc.Textures) != 1 {
		t.Errorf("textures = %d, want 1", len(doc.Textures))
	}
}

func TestCombineAllUnboundYieldsNothing(t *testing.T) {
	doc := gltf.NewDocument()
	tb := NewTextureBuilder(doc, &raw.Model{}, PNGCodec{})

	tex, err := tb.Combine([]int{-1, -1}, "orm", func(pixels []utils.ColorFloat) utils.ColorFloat {
		return pixels[0]
	})
	if err != nil {
		t.Fatal(err)
	}
	if tex != nil {
		t.Error("unbound-only request must produce no texture")
	}
}
