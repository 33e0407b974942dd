package gltfexport

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/sceneforge/raw2gltf/config"
	"github.com/sceneforge/raw2gltf/raw"
)

func TestExportNodeHierarchy(t *testing.T) {
	model := testModel()
	doc, err := NewExporter(model, config.DefaultOptions(), nil, nil).Export()
	if err != nil {
		t.Fatal(err)
	}

	if len(doc.Nodes) != 2 {
		t.Fatalf("nodes = %d, want 2", len(doc.Nodes))
	}
	root := doc.Nodes[0]
	if len(root.Children) != 1 || root.Children[0] != 1 {
		t.Errorf("root children = %v, want [1]", root.Children)
	}
	meshNode := doc.Nodes[1]
	if meshNode.Mesh == nil || *meshNode.Mesh != 0 {
		t.Error("surface node must reference its mesh")
	}
	if len(doc.Scenes[0].Nodes) != 1 || doc.Scenes[0].Nodes[0] != 0 {
		t.Errorf("scene roots = %v, want [0]", doc.Scenes[0].Nodes)
	}
}

func TestExportMissingRootIsFatal(t *testing.T) {
	model := testModel()
	model.RootNodeID = 999
	if _, err := NewExporter(model, config.DefaultOptions(), nil, nil).Export(); err == nil {
		t.Fatal("expected an unresolved-reference error")
	}
}

func TestExportSkin(t *testing.T) {
	model := testModel()
	model.Nodes = append(model.Nodes, raw.Node{
		ID: 3, Name: "joint", IsJoint: true, Scale: mgl32.Vec3{1, 1, 1},
	})
	model.Nodes[0].ChildIDs = append(model.Nodes[0].ChildIDs, 3)
	model.Surfaces[0].SkeletonRootID = 3
	model.Surfaces[0].JointIDs = []int64{3}
	model.Surfaces[0].InverseBindMatrices = []mgl32.Mat4{mgl32.Ident4()}

	doc, err := NewExporter(model, config.DefaultOptions(), nil, nil).Export()
	if err != nil {
		t.Fatal(err)
	}

	if len(doc.Skins) != 1 {
		t.Fatalf("skins = %d, want 1", len(doc.Skins))
	}
	skin := doc.Skins[0]
	if len(skin.Joints) != 1 || skin.Joints[0] != 2 {
		t.Errorf("skin joints = %v, want the joint node", skin.Joints)
	}
	if skin.Skeleton == nil || *skin.Skeleton != 2 {
		t.Error("skin must reference the skeleton root node")
	}
	if skin.InverseBindMatrices == nil {
		t.Fatal("skin must carry an inverse-bind-matrix accessor")
	}
	ibm := doc.Accessors[*skin.InverseBindMatrices]
	if ibm.Type != gltf.AccessorMat4 || ibm.Count != 1 {
		t.Errorf("IBM accessor: type %v count %d, want mat4 x1", ibm.Type, ibm.Count)
	}

	if doc.Nodes[1].Skin == nil || *doc.Nodes[1].Skin != 0 {
		t.Error("mesh node must reference the skin")
	}
}

func TestExportCameraWithMissingNode(t *testing.T) {
	model := testModel()
	model.Cameras = []raw.Camera{
		{Name: "orphan", NodeID: 999, Mode: raw.CameraPerspective,
			Perspective: raw.PerspectiveCamera{FOVDegreesY: 45, NearZ: 0.1}},
		{Name: "attached", NodeID: 2, Mode: raw.CameraPerspective,
			Perspective: raw.PerspectiveCamera{FOVDegreesY: 90, NearZ: 0.1, FarZ: 100}},
	}

	doc, err := NewExporter(model, config.DefaultOptions(), nil, nil).Export()
	if err != nil {
		t.Fatal(err)
	}

	// The orphan still gets its entity, only the attachment is skipped.
	if len(doc.Cameras) != 2 {
		t.Fatalf("cameras = %d, want 2", len(doc.Cameras))
	}
	for _, node := range doc.Nodes {
		if node.Camera != nil && *node.Camera == 0 {
			t.Error("orphan camera must stay unattached")
		}
	}
	if doc.Nodes[1].Camera == nil || *doc.Nodes[1].Camera != 1 {
		t.Error("second camera must attach to its node")
	}

	yfov := doc.Cameras[1].Perspective.Yfov
	if math.Abs(float64(yfov)-math.Pi/2) > 1e-5 {
		t.Errorf("yfov = %v, want pi/2 for 90 degrees", yfov)
	}
	if doc.Cameras[1].Perspective.Zfar == nil || *doc.Cameras[1].Perspective.Zfar != 100 {
		t.Error("zfar must carry through when positive")
	}
}

func TestExportLights(t *testing.T) {
	model := testModel()
	model.Lights = []raw.Light{{
		Name:      "sun",
		Type:      raw.LightDirectional,
		Color:     mgl32.Vec3{1, 1, 1},
		Intensity: 100,
	}}
	lightIx := 0
	model.Nodes[1].LightIx = &lightIx

	opts := config.DefaultOptions()
	opts.UseKHRLightsPunctual = true
	doc, err := NewExporter(model, opts, nil, nil).Export()
	if err != nil {
		t.Fatal(err)
	}

	ext, ok := doc.Extensions[ExtLightsPunctual].(map[string]interface{})
	if !ok {
		t.Fatal("document must carry the punctual-lights extension")
	}
	lights := ext["lights"].([]khrLight)
	if len(lights) != 1 {
		t.Fatalf("lights = %d, want 1", len(lights))
	}
	if lights[0].Intensity != 1 {
		t.Errorf("intensity = %v, want source 100 scaled to 1", lights[0].Intensity)
	}
	if _, ok := doc.Nodes[1].Extensions[ExtLightsPunctual]; !ok {
		t.Error("node must reference its light")
	}
}

func TestExportAnimations(t *testing.T) {
	model := testModel()
	model.Animations = []raw.Animation{
		{Name: "empty"},
		{
			Name:  "slide",
			Times: []float32{0, 0.5, 1},
			Channels: []raw.Channel{{
				NodeIndex:    1,
				Translations: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}},
				Rotations:    []mgl32.Vec4{{0, 0, 0, 1}, {0, 0, 0, 1}, {0, 0, 0, 1}},
			}},
		},
	}

	doc, err := NewExporter(model, config.DefaultOptions(), nil, nil).Export()
	if err != nil {
		t.Fatal(err)
	}

	// The zero-channel animation is skipped, not an error.
	if len(doc.Animations) != 1 {
		t.Fatalf("animations = %d, want 1", len(doc.Animations))
	}
	anim := doc.Animations[0]
	if len(anim.Samplers) != 2 || len(anim.Channels) != 2 {
		t.Fatalf("samplers/channels = %d/%d, want 2/2", len(anim.Samplers), len(anim.Channels))
	}

	if anim.Samplers[0].Input == nil || anim.Samplers[0].Output == nil {
		t.Fatal("sampler must reference its input and output accessors")
	}
	timeAcc := doc.Accessors[*anim.Samplers[0].Input]
	if timeAcc.Min[0] != 0 || timeAcc.Max[0] != 1 {
		t.Errorf("time bounds = %v..%v, want 0..1", timeAcc.Min, timeAcc.Max)
	}
	if *anim.Samplers[0].Input != *anim.Samplers[1].Input {
		t.Error("channels of one animation must share the time accessor")
	}

	if anim.Channels[0].Target.Path != gltf.TRSTranslation {
		t.Errorf("first channel path = %v, want translation", anim.Channels[0].Target.Path)
	}
	if anim.Channels[1].Target.Path != gltf.TRSRotation {
		t.Errorf("second channel path = %v, want rotation", anim.Channels[1].Target.Path)
	}
	if *anim.Channels[0].Target.Node != 1 {
		t.Errorf("channel node = %d, want 1", *anim.Channels[0].Target.Node)
	}
}

func TestExtraSkins(t *testing.T) {
	model := testModel()
	model.ExtraSkinCount = 1
	model.Nodes = append(model.Nodes, raw.Node{
		ID: 3, Name: "joint", IsJoint: true, Scale: mgl32.Vec3{1, 1, 1},
	})
	model.Nodes[0].ChildIDs = append(model.Nodes[0].ChildIDs, 3)
	group := 0
	model.Nodes[2].ExtraSkinIx = &group

	doc, err := NewExporter(model, config.DefaultOptions(), nil, nil).Export()
	if err != nil {
		t.Fatal(err)
	}

	if len(doc.Skins) != 1 {
		t.Fatalf("skins = %d, want 1", len(doc.Skins))
	}
	skin := doc.Skins[0]
	if skin.InverseBindMatrices != nil || skin.Skeleton != nil {
		t.Error("extra skins are joints-only")
	}
	if len(skin.Joints) != 1 || skin.Joints[0] != 2 {
		t.Errorf("extra skin joints = %v, want the joint node", skin.Joints)
	}
	if doc.Nodes[2].Skin == nil {
		t.Error("node must reference its extra skin")
	}
}
