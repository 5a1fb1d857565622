// Package g3d provides a small retained-mode 3D scene library for Go.
//
// # Overview
//
// g3d draws scene graphs of meshes, lights and cameras with a forward
// metallic-roughness pipeline on gogpu/wgpu. Rendering is offscreen: a
// renderer draws into render targets whose pixels can be read back or
// composed by the postfx package.
//
// # Quick Start
//
//	import "github.com/gogpu/g3d"
//
//	renderer, err := g3d.NewRenderer(g3d.WithSize(800, 600))
//	if err != nil {
//	    return err
//	}
//	defer g3d.DisposeRenderer(renderer)
//
//	scene := g3d.NewScene()
//	defer g3d.DisposeScene(scene)
//	g3d.CreateBasicLights(scene)
//
//	box := g3d.NewMesh(g3d.NewBoxGeometry(1, 1, 1), g3d.NewStandardMaterial())
//	scene.Add(box.Node)
//
//	camera := g3d.NewPerspectiveCamera(50, 4.0/3.0, 0.1, 100)
//	camera.Position = f32.Vec3{0, 1, 4}
//	camera.LookAt(f32.Vec3{})
//
//	if err := renderer.Render(scene, camera); err != nil {
//	    return err
//	}
//	img, err := renderer.ReadPixels()
//
// # Lifecycle
//
// Renderers and scenes are counted in a Registry. NewRenderer and NewScene
// use the Default registry; CheckMultipleInstances warns when more than
// one of either is alive. DisposeScene releases the geometry and materials
// of every mesh of a scene once each. Textures are disposed explicitly.
// DisposeRenderer releases everything resident on the renderer and
// destroys its device unless the device was borrowed with
// WithDeviceProvider or WithHalDevice.
//
// # Coordinate System
//
// Right-handed, +Y up. Cameras look down their local -Z axis. Matrices are
// row-major f32.Mat4 values applied to column vectors, quaternions are
// (x, y, z, w). Clip space depth ranges from 0 to 1.
//
// # Related Packages
//
//   - loader: glTF 2.0 loading from files and HTTP
//   - postfx: effect composer with render, outline and copy passes
//   - controls: orbit camera controls
package g3d

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0-alpha.1"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0

	// VersionPrerelease is the prerelease identifier
	VersionPrerelease = "alpha.1"
)
