package gltfexport

import (
	"bytes"
	"image"
	"log"
	"strings"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/sceneforge/raw2gltf/raw"
	"github.com/sceneforge/raw2gltf/utils"
)

// PixelCombiner maps one pixel from each source image to one output pixel.
// Unbound sources are fed opaque white so combiners can substitute their
// own constants per channel.
type PixelCombiner func(pixels []utils.ColorFloat) utils.ColorFloat

// TextureBuilder turns raw texture table entries into document textures.
// Requests are content-addressed by (combiner tag, ordered source image
// identities): an identical request returns the texture created for the
// first one instead of re-encoding.
type TextureBuilder struct {
	doc   *gltf.Document
	model *raw.Model
	codec ImageCodec

	defaultSampler *uint32
	byContent      map[string]uint32
}

func NewTextureBuilder(doc *gltf.Document, model *raw.Model, codec ImageCodec) *TextureBuilder {
	return &TextureBuilder{
		doc:       doc,
		model:     model,
		codec:     codec,
		byContent: make(map[string]uint32),
	}
}

func (tb *TextureBuilder) sampler() uint32 {
	if tb.defaultSampler == nil {
		tb.doc.Samplers = append(tb.doc.Samplers, &gltf.Sampler{
			Name:      "default_sampler",
			MagFilter: gltf.MagLinear,
			MinFilter: gltf.MinLinear,
			WrapS:     gltf.WrapRepeat,
			WrapT:     gltf.WrapRepeat,
		})
		tb.defaultSampler = gltf.Index(uint32(len(tb.doc.Samplers) - 1))
	}
	return *tb.defaultSampler
}

func (tb *TextureBuilder) sourceKey(texIx int) string {
	if texIx < 0 {
		return "-"
	}
	return strings.ToLower(tb.model.Textures[texIx].FileLocation)
}

func (tb *TextureBuilder) addTexture(key, name, mimeType string, data []byte) (*uint32, error) {
	imageIx, err := modeler.WriteImage(tb.doc, name+"_image", mimeType, bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to store image %q", name)
	}

	tb.doc.Textures = append(tb.doc.Textures, &gltf.Texture{
		Name:    name,
		Sampler: gltf.Index(tb.sampler()),
		Source:  gltf.Index(imageIx),
	})
	textureIx := uint32(len(tb.doc.Textures) - 1)
	tb.byContent[key] = textureIx
	return gltf.Index(textureIx), nil
}

// Simple passes one source image through unmodified.
func (tb *TextureBuilder) Simple(texIx int, tag string) (*uint32, error) {
	if texIx < 0 || texIx >= len(tb.model.Textures) {
		return nil, errors.Errorf("Texture index %d out of range for tag %q", texIx, tag)
	}
	key := tag + "/" + tb.sourceKey(texIx)
	if textureIx, ok := tb.byContent[key]; ok {
		return gltf.Index(textureIx), nil
	}

	tex := &tb.model.Textures[texIx]
	return tb.addTexture(key, tex.Name, tex.MimeType, tex.Data)
}

// Combine merges the source images pixel-by-pixel into one new image of the
// same dimensions. Entries of -1 are unbound slots. With no bound source at
// all there is nothing to merge and no texture is produced.
func (tb *TextureBuilder) Combine(texIndices []int, tag string, combine PixelCombiner) (*uint32, error) {
	keys := make([]string, len(texIndices))
	anyBound := false
	for i, texIx := range texIndices {
		keys[i] = tb.sourceKey(texIx)
		anyBound = anyBound || texIx >= 0
	}
	if !anyBound {
		return nil, nil
	}

	key := tag + "/" + strings.Join(keys, ",")
	if textureIx, ok := tb.byContent[key]; ok {
		return gltf.Index(textureIx), nil
	}

	var name string
	var bounds image.Rectangle
	sources := make([]image.Image, len(texIndices))
	for i, texIx := range texIndices {
		if texIx < 0 {
			continue
		}
		tex := &tb.model.Textures[texIx]
		img, err := tb.codec.Decode(tex.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to decode texture %q", tex.Name)
		}
		if name == "" {
			name = tex.Name + "_" + tag
			bounds = img.Bounds()
		} else if img.Bounds().Size() != bounds.Size() {
			log.Panicf("Combined sources must share dimensions: %q is %v, want %v",
				tex.Name, img.Bounds().Size(), bounds.Size())
		}
		sources[i] = img
	}

	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	pixels := make([]utils.ColorFloat, len(sources))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			for i, src := range sources {
				if src == nil {
					pixels[i] = utils.ColorFloat{1, 1, 1, 1}
					continue
				}
				r, g, b, a := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				pixels[i] = utils.ColorFloat{
					float32(r) / 65535,
					float32(g) / 65535,
					float32(b) / 65535,
					float32(a) / 65535,
				}
			}
			out.Set(x, y, combine(pixels))
		}
	}

	data, mimeType, err := tb.codec.Encode(out)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to encode combined texture %q", name)
	}
	return tb.addTexture(key, name, mimeType, data)
}
