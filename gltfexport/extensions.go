package gltfexport

// Extension identifiers emitted by the exporter.
const (
	ExtMaterialsUnlit       = "KHR_materials_unlit"
	ExtLightsPunctual       = "KHR_lights_punctual"
	ExtDracoMeshCompression = "KHR_draco_mesh_compression"
)

// khrLight is one entry of the document-level KHR_lights_punctual array.
type khrLight struct {
	Name      string        `json:"name,omitempty"`
	Type      string        `json:"type"`
	Color     [3]float32    `json:"color"`
	Intensity float32       `json:"intensity"`
	Spot      *khrLightSpot `json:"spot,omitempty"`
}

type khrLightSpot struct {
	InnerConeAngle float32 `json:"innerConeAngle"`
	OuterConeAngle float32 `json:"outerConeAngle"`
}

// khrDracoExt is the per-primitive KHR_draco_mesh_compression payload:
// the raw blob's view plus the backend's id for each compressed attribute.
type khrDracoExt struct {
	BufferView uint32            `json:"bufferView"`
	Attributes map[string]uint32 `json:"attributes"`
}

func (e *Exporter) markExtensionUsed(name string, required bool) {
	for _, used := range e.doc.ExtensionsUsed {
		if used == name {
			return
		}
	}
	e.doc.ExtensionsUsed = append(e.doc.ExtensionsUsed, name)
	if required {
		e.doc.ExtensionsRequired = append(e.doc.ExtensionsRequired, name)
	}
}
