package gltfexport

import (
	"fmt"
	"log"
	"math"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/sceneforge/raw2gltf/raw"
)

// exportGraph creates node/camera/light/skin/animation entities. Assembly
// is two-phase: registration assigns every node its permanent index, then
// patch-up resolves the id references between them. A reference still
// unresolved after patch-up is fatal.
func (e *Exporter) exportGraph() error {
	if err := e.registerNodes(); err != nil {
		return err
	}
	if err := e.patchNodeReferences(); err != nil {
		return err
	}
	e.exportCameras()
	e.exportLights()
	if err := e.exportAnimations(); err != nil {
		return err
	}
	return e.exportScene()
}

func (e *Exporter) registerNodes() error {
	for i := range e.model.Nodes {
		node := &e.model.Nodes[i]
		if _, ok := e.nodesByID[node.ID]; ok {
			return errors.Errorf("Duplicate node id %d", node.ID)
		}

		name := node.Name
		if name == "" {
			name = e.names.RandomName()
		}
		gltfNode := &gltf.Node{
			Name:        name,
			Translation: node.Translation,
			Rotation:    node.Rotation,
			Scale:       node.Scale,
		}
		if e.opts.EnableUserProperties && len(node.UserProperties) != 0 {
			gltfNode.Extras = node.UserProperties
		}

		e.nodesByID[node.ID] = uint32(len(e.doc.Nodes))
		e.doc.Nodes = append(e.doc.Nodes, gltfNode)
	}
	return nil
}

func (e *Exporter) nodeIndexByID(id int64) (uint32, error) {
	ix, ok := e.nodesByID[id]
	if !ok {
		return 0, errors.Wrapf(errMissingReference, "Node id %d", id)
	}
	return ix, nil
}

func (e *Exporter) patchNodeReferences() error {
	for i := range e.model.Nodes {
		node := &e.model.Nodes[i]
		gltfNode := e.doc.Nodes[e.nodesByID[node.ID]]

		for _, childID := range node.ChildIDs {
			childIx, err := e.nodeIndexByID(childID)
			if err != nil {
				return errors.Wrapf(err, "Child of node %q", node.Name)
			}
			gltfNode.Children = append(gltfNode.Children, childIx)
		}

		if node.SurfaceID != 0 {
			surfaceIx := e.model.SurfaceIndexByID(node.SurfaceID)
			if surfaceIx < 0 {
				return errors.Wrapf(errMissingReference, "Surface id %d on node %q", node.SurfaceID, node.Name)
			}
			surface := &e.model.Surfaces[surfaceIx]
			meshIx, ok := e.meshBySurfaceID[surface.ID]
			if !ok {
				return errors.Wrapf(errMissingReference, "Surface %q on node %q has no geometry", surface.Name, node.Name)
			}
			gltfNode.Mesh = gltf.Index(meshIx)

			if len(surface.JointIDs) != 0 && gltfNode.Skin == nil {
				skinIx, err := e.skinForSurface(surface)
				if err != nil {
					return err
				}
				gltfNode.Skin = gltf.Index(skinIx)
			}
		}

		if node.ExtraSkinIx != nil && gltfNode.Skin == nil {
			skinIx, err := e.extraSkin(*node.ExtraSkinIx)
			if err != nil {
				return errors.Wrapf(err, "Extra skin on node %q", node.Name)
			}
			gltfNode.Skin = gltf.Index(skinIx)
		}
	}
	return nil
}

// skinForSurface builds (or reuses) the skin of a skinned surface: joint
// node indices, transposed inverse bind matrices and the skeleton root.
func (e *Exporter) skinForSurface(surface *raw.Surface) (uint32, error) {
	if skinIx, ok := e.skinBySurfaceID[surface.ID]; ok {
		return skinIx, nil
	}

	skin := &gltf.Skin{Name: surface.Name + "_skin"}
	for _, jointID := range surface.JointIDs {
		jointIx, err := e.nodeIndexByID(jointID)
		if err != nil {
			return 0, errors.Wrapf(err, "Joint of surface %q", surface.Name)
		}
		skin.Joints = append(skin.Joints, jointIx)
	}

	if surface.SkeletonRootID != 0 {
		rootIx, err := e.nodeIndexByID(surface.SkeletonRootID)
		if err != nil {
			return 0, errors.Wrapf(err, "Skeleton root of surface %q", surface.Name)
		}
		skin.Skeleton = gltf.Index(rootIx)
	}

	if len(surface.InverseBindMatrices) != 0 {
		if len(surface.InverseBindMatrices) != len(surface.JointIDs) {
			return 0, errors.Errorf("Surface %q has %d joints but %d inverse bind matrices",
				surface.Name, len(surface.JointIDs), len(surface.InverseBindMatrices))
		}
		// Source matrices are row-major; glTF wants column-major.
		flat := make([]float32, 0, len(surface.InverseBindMatrices)*16)
		for _, m := range surface.InverseBindMatrices {
			t := m.Transpose()
			flat = append(flat, t[:]...)
		}
		ibmIx := e.layout.AddAccessorWithView(targetNone, gltf.ComponentFloat, gltf.AccessorMat4,
			flat, surface.Name+"_ibm")
		skin.InverseBindMatrices = gltf.Index(ibmIx)
	}

	skinIx := uint32(len(e.doc.Skins))
	e.doc.Skins = append(e.doc.Skins, skin)
	e.skinBySurfaceID[surface.ID] = skinIx
	return skinIx, nil
}

// extraSkin returns the joints-only skin for one extra-skin group: no
// inverse bind matrices, no skeleton root, joints are every joint node.
func (e *Exporter) extraSkin(group int) (uint32, error) {
	if group < 0 || group >= e.model.ExtraSkinCount {
		return 0, errors.Wrapf(errMissingReference, "Extra skin group %d of %d", group, e.model.ExtraSkinCount)
	}
	if e.extraSkins == nil {
		e.extraSkins = make(map[int]uint32, e.model.ExtraSkinCount)
	}
	if skinIx, ok := e.extraSkins[group]; ok {
		return skinIx, nil
	}

	skin := &gltf.Skin{Name: fmt.Sprintf("extra_skin_%d", group)}
	for i := range e.model.Nodes {
		if e.model.Nodes[i].IsJoint {
			skin.Joints = append(skin.Joints, e.nodesByID[e.model.Nodes[i].ID])
		}
	}

	skinIx := uint32(len(e.doc.Skins))
	e.doc.Skins = append(e.doc.Skins, skin)
	e.extraSkins[group] = skinIx
	return skinIx, nil
}

// exportCameras always creates the camera entity; a camera whose node is
// missing stays unattached (warned, not fatal).
func (e *Exporter) exportCameras() {
	for i := range e.model.Cameras {
		camera := &e.model.Cameras[i]

		gltfCamera := &gltf.Camera{Name: camera.Name}
		switch camera.Mode {
		case raw.CameraOrthographic:
			gltfCamera.Orthographic = &gltf.Orthographic{
				Xmag:  camera.Orthographic.MagX,
				Ymag:  camera.Orthographic.MagY,
				Znear: camera.Orthographic.NearZ,
				Zfar:  camera.Orthographic.FarZ,
			}
		default:
			perspective := &gltf.Perspective{
				Yfov:  camera.Perspective.FOVDegreesY * math.Pi / 180,
				Znear: camera.Perspective.NearZ,
			}
			if camera.Perspective.AspectRatio > 0 {
				perspective.AspectRatio = gltf.Float(camera.Perspective.AspectRatio)
			}
			if camera.Perspective.FarZ > 0 {
				perspective.Zfar = gltf.Float(camera.Perspective.FarZ)
			}
			gltfCamera.Perspective = perspective
		}

		cameraIx := uint32(len(e.doc.Cameras))
		e.doc.Cameras = append(e.doc.Cameras, gltfCamera)

		nodeIx, ok := e.nodesByID[camera.NodeID]
		if !ok {
			log.Printf("Camera %q references unknown node id %d, leaving it unattached", camera.Name, camera.NodeID)
			continue
		}
		e.doc.Nodes[nodeIx].Camera = gltf.Index(cameraIx)
	}
}

// exportLights emits the punctual-lights document extension and attaches
// lights to their nodes. Source intensity follows the legacy convention
// where 100 is nominal.
func (e *Exporter) exportLights() {
	if !e.opts.UseKHRLightsPunctual || len(e.model.Lights) == 0 {
		return
	}

	lights := make([]khrLight, 0, len(e.model.Lights))
	for i := range e.model.Lights {
		light := &e.model.Lights[i]
		entry := khrLight{
			Name:      light.Name,
			Type:      string(light.Type),
			Color:     light.Color,
			Intensity: light.Intensity / 100,
		}
		if light.Type == raw.LightSpot {
			entry.Spot = &khrLightSpot{
				InnerConeAngle: light.InnerConeAngle,
				OuterConeAngle: light.OuterConeAngle,
			}
		}
		lights = append(lights, entry)
	}

	if e.doc.Extensions == nil {
		e.doc.Extensions = gltf.Extensions{}
	}
	e.doc.Extensions[ExtLightsPunctual] = map[string]interface{}{"lights": lights}
	e.markExtensionUsed(ExtLightsPunctual, false)

	for i := range e.model.Nodes {
		node := &e.model.Nodes[i]
		if node.LightIx == nil {
			continue
		}
		if *node.LightIx < 0 || *node.LightIx >= len(lights) {
			log.Printf("Node %q references unknown light index %d, skipping", node.Name, *node.LightIx)
			continue
		}
		gltfNode := e.doc.Nodes[e.nodesByID[node.ID]]
		if gltfNode.Extensions == nil {
			gltfNode.Extensions = gltf.Extensions{}
		}
		gltfNode.Extensions[ExtLightsPunctual] = map[string]interface{}{"light": *node.LightIx}
	}
}

// exportAnimations emits one shared time accessor per animation and one
// linear sampler per animated property per channel.
func (e *Exporter) exportAnimations() error {
	for i := range e.model.Animations {
		anim := &e.model.Animations[i]
		if len(anim.Channels) == 0 {
			log.Printf("Animation %q has no channels, skipping", anim.Name)
			continue
		}

		name := anim.Name
		if name == "" {
			name = e.names.RandomName()
		}

		timeIx := e.layout.AddAccessorWithView(targetNone, gltf.ComponentFloat, gltf.AccessorScalar,
			anim.Times, name+"_times")
		timeAcc := e.doc.Accessors[timeIx]
		timeAcc.Min, timeAcc.Max = scalarBounds(anim.Times)

		gltfAnim := &gltf.Animation{Name: name}
		addSampler := func(nodeIx uint32, path gltf.TRSProperty, outputIx uint32) {
			gltfAnim.Samplers = append(gltfAnim.Samplers, &gltf.AnimationSampler{
				Input:         gltf.Index(timeIx),
				Output:        gltf.Index(outputIx),
				Interpolation: gltf.InterpolationLinear,
			})
			gltfAnim.Channels = append(gltfAnim.Channels, &gltf.Channel{
				Sampler: gltf.Index(uint32(len(gltfAnim.Samplers) - 1)),
				Target: gltf.ChannelTarget{
					Node: gltf.Index(nodeIx),
					Path: path,
				},
			})
		}

		for c := range anim.Channels {
			channel := &anim.Channels[c]
			if channel.NodeIndex < 0 || channel.NodeIndex >= len(e.model.Nodes) {
				return errors.Wrapf(errMissingReference, "Channel %d of animation %q, node index %d",
					c, name, channel.NodeIndex)
			}
			nodeIx := e.nodesByID[e.model.Nodes[channel.NodeIndex].ID]

			if len(channel.Translations) != 0 {
				addSampler(nodeIx, gltf.TRSTranslation, e.layout.AddAccessorWithView(
					targetNone, gltf.ComponentFloat, gltf.AccessorVec3, channel.Translations, name+"_t"))
			}
			if len(channel.Rotations) != 0 {
				addSampler(nodeIx, gltf.TRSRotation, e.layout.AddAccessorWithView(
					targetNone, gltf.ComponentFloat, gltf.AccessorVec4, channel.Rotations, name+"_r"))
			}
			if len(channel.Scales) != 0 {
				addSampler(nodeIx, gltf.TRSScale, e.layout.AddAccessorWithView(
					targetNone, gltf.ComponentFloat, gltf.AccessorVec3, channel.Scales, name+"_s"))
			}
			if len(channel.Weights) != 0 {
				addSampler(nodeIx, gltf.TRSWeights, e.layout.AddAccessorWithView(
					targetNone, gltf.ComponentFloat, gltf.AccessorScalar, channel.Weights, name+"_w"))
			}
		}

		e.doc.Animations = append(e.doc.Animations, gltfAnim)
	}
	return nil
}

func (e *Exporter) exportScene() error {
	rootIx, err := e.nodeIndexByID(e.model.RootNodeID)
	if err != nil {
		return errors.Wrap(err, "Scene root")
	}
	e.doc.Scenes[0].Nodes = append(e.doc.Scenes[0].Nodes, rootIx)
	return nil
}

func scalarBounds(values []float32) (min, max []float32) {
	if len(values) == 0 {
		return nil, nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return []float32{lo}, []float32{hi}
}
