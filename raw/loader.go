package raw

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/sceneforge/raw2gltf/utils"
)

// ReadModel decodes a JSON-serialized scene graph and normalizes legacy
// fields: byte-array names are decoded with the configured charmap, euler
// rotations become quaternions.
func ReadModel(r io.Reader) (*Model, error) {
	var m Model
	dec := json.NewDecoder(r)
	if err := dec.Decode(&m); err != nil {
		return nil, errors.Wrap(err, "Failed to decode scene graph")
	}

	for i := range m.Nodes {
		node := &m.Nodes[i]
		if node.Name == "" && len(node.NameBytes) != 0 {
			node.Name = utils.BytesToString(node.NameBytes)
		}
		if node.RotationEuler != nil {
			q := utils.EulerToQuat(*node.RotationEuler)
			node.Rotation = mglVec4(q.V, q.W)
			node.RotationEuler = nil
		}
		if node.Rotation == ([4]float32{}) {
			node.Rotation = [4]float32{0, 0, 0, 1}
		}
		if node.Scale == ([3]float32{}) {
			node.Scale = [3]float32{1, 1, 1}
		}
	}
	for i := range m.Materials {
		mat := &m.Materials[i]
		if mat.Name == "" && len(mat.NameBytes) != 0 {
			mat.Name = utils.BytesToString(mat.NameBytes)
		}
	}

	return &m, nil
}

func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open scene graph %q", path)
	}
	defer f.Close()

	return ReadModel(f)
}

func mglVec4(v [3]float32, w float32) [4]float32 {
	return [4]float32{v[0], v[1], v[2], w}
}
