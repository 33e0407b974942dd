package gltfexport

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

const (
	glbMagic   uint32 = 0x46546C67 // "glTF"
	glbVersion uint32 = 2

	chunkTypeJSON uint32 = 0x4E4F534A // "JSON"
	chunkTypeBIN  uint32 = 0x004E4942 // "BIN\0"
)

// WriteDocument serializes the finished document. JSON mode embeds the
// binary blob as a base64 data URI so the output stays one file; binary
// mode writes the two-chunk GLB container.
//
// A write or seek failure leaves the destination in an undefined state;
// partially written bytes are never a usable document.
func WriteDocument(w io.WriteSeeker, doc *gltf.Document, binaryOutput bool) error {
	if binaryOutput {
		return writeGLB(w, doc)
	}
	return writeJSON(w, doc)
}

func writeJSON(w io.Writer, doc *gltf.Document) error {
	buffer := doc.Buffers[0]
	if len(buffer.Data) != 0 {
		buffer.URI = "data:application/octet-stream;base64," +
			base64.StdEncoding.EncodeToString(buffer.Data)
	}

	payload, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return errors.Wrap(err, "Failed to marshal document")
	}
	if _, err := w.Write(payload); err != nil {
		return errors.Wrap(err, "Failed to write document")
	}
	return nil
}

// writeGLB emits the container with placeholder length fields, then seeks
// back to patch them once the payload sizes are known. Chunk lengths are
// post-padding lengths: JSON is padded with ASCII spaces, the binary blob
// with zero bytes, both to 4-byte boundaries.
func writeGLB(w io.WriteSeeker, doc *gltf.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "Failed to marshal document")
	}

	// Header: magic, version, total length patched later.
	if err := writeUint32(w, glbMagic, glbVersion, 0); err != nil {
		return err
	}

	// JSON chunk: length patched later.
	if err := writeUint32(w, 0, chunkTypeJSON); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return errors.Wrap(err, "Failed to write document chunk")
	}
	jsonLength := uint32(len(payload))
	for jsonLength%4 != 0 {
		if _, err := w.Write([]byte{' '}); err != nil {
			return errors.Wrap(err, "Failed to pad document chunk")
		}
		jsonLength++
	}

	totalLength := 12 + 8 + jsonLength
	var binLength uint32
	binChunkOffset := int64(totalLength)

	blob := doc.Buffers[0].Data
	if len(blob) != 0 {
		if err := writeUint32(w, 0, chunkTypeBIN); err != nil {
			return err
		}
		if _, err := w.Write(blob); err != nil {
			return errors.Wrap(err, "Failed to write binary chunk")
		}
		binLength = uint32(len(blob))
		for binLength%4 != 0 {
			if _, err := w.Write([]byte{0}); err != nil {
				return errors.Wrap(err, "Failed to pad binary chunk")
			}
			binLength++
		}
		totalLength += 8 + binLength
	}

	if err := patchUint32(w, 8, totalLength); err != nil {
		return err
	}
	if err := patchUint32(w, 12, jsonLength); err != nil {
		return err
	}
	if binLength != 0 {
		if err := patchUint32(w, binChunkOffset, binLength); err != nil {
			return err
		}
	}

	if _, err := w.Seek(0, io.SeekEnd); err != nil {
		return errors.Wrap(err, "Failed to seek to container end")
	}
	return nil
}

func writeUint32(w io.Writer, values ...uint32) error {
	for _, v := range values {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return errors.Wrap(err, "Failed to write container field")
		}
	}
	return nil
}

func patchUint32(w io.WriteSeeker, offset int64, value uint32) error {
	if _, err := w.Seek(offset, io.SeekStart); err != nil {
		return errors.Wrapf(err, "Failed to seek to length field at %d", offset)
	}
	return writeUint32(w, value)
}
