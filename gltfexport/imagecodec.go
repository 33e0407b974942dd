package gltfexport

import (
	"bytes"
	"image"
	_ "image/jpeg"
	"image/png"

	"github.com/pkg/errors"
)

// ImageCodec decodes source images to pixel grids and encodes composited
// grids back to bytes. The default codec emits PNG; callers can substitute
// their own (e.g. for KTX or basis output).
type ImageCodec interface {
	Decode(data []byte) (image.Image, error)
	Encode(img image.Image) (data []byte, mimeType string, err error)
}

type PNGCodec struct{}

func (PNGCodec) Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "Failed to decode source image")
	}
	return img, nil
}

func (PNGCodec) Encode(img image.Image) ([]byte, string, error) {
	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return nil, "", errors.Wrap(err, "Failed to encode composited image")
	}
	return out.Bytes(), "image/png", nil
}
