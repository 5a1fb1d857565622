// Command g3dview renders a glTF model offscreen, orbiting the camera
// around it with the model outlined, and saves the last frame as a PNG.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log/slog"
	"math"
	"os"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/g3d"
	"github.com/gogpu/g3d/controls"
	"github.com/gogpu/g3d/internal/config"
	"github.com/gogpu/g3d/loader"
	"github.com/gogpu/g3d/postfx"
)

func main() {
	var (
		configPath = flag.String("config", "", "TOML configuration file")
		model      = flag.String("model", "", "glTF/GLB file path or URL (default: a box)")
		frames     = flag.Int("frames", 0, "frames to render (default from config)")
		backend    = flag.String("backend", "", "vulkan or noop (default from config)")
		output     = flag.String("output", "g3dview.png", "PNG file for the last frame, empty to skip")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *model != "" {
		cfg.Model.URL = *model
	}
	if *frames > 0 {
		cfg.Renderer.Frames = *frames
	}
	if *backend != "" {
		cfg.Renderer.Backend = *backend
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level, err := cfg.LogLevel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	g3d.SetLogger(logger)

	if err := run(cfg, *output, logger); err != nil {
		logger.Error("g3dview failed", "err", err)
		os.Exit(1)
	}
}

func rendererOptions(cfg *config.Config) ([]g3d.RendererOption, error) {
	clearHex, err := config.ParseColor(cfg.Renderer.Clear)
	if err != nil {
		return nil, err
	}
	power := gputypes.PowerPreferenceHighPerformance
	if cfg.Renderer.Power == "low-power" {
		power = gputypes.PowerPreferenceLowPower
	}
	opts := []g3d.RendererOption{
		g3d.WithSize(cfg.Renderer.Width, cfg.Renderer.Height),
		g3d.WithAntialias(cfg.Renderer.Antialias),
		g3d.WithPowerPreference(power),
		g3d.WithClearColor(g3d.Hex(clearHex), 1),
		g3d.WithLabel("g3dview"),
	}
	if cfg.Renderer.Backend == "noop" {
		opts = append(opts, g3d.WithBackend(&noop.API{}))
	}
	return opts, nil
}

func run(cfg *config.Config, output string, logger *slog.Logger) error {
	opts, err := rendererOptions(cfg)
	if err != nil {
		return err
	}
	renderer, err := g3d.NewRenderer(opts...)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	defer g3d.DisposeRenderer(renderer)

	scene := g3d.NewScene()
	defer g3d.DisposeScene(scene)
	g3d.CreateBasicLights(scene)

	root, err := loadModel(cfg)
	if err != nil {
		return err
	}
	if err := scene.Add(root); err != nil {
		return err
	}

	camera := g3d.NewPerspectiveCamera(50, 1, 0.1, 1000)
	camera.SetAspect(renderer.Size())
	center, radius := bounds(root)
	camera.Near = radius / 100
	camera.Far = radius * 100
	camera.Position = f32.Vec3{center[0], center[1] + radius, center[2] + 2.5*radius}

	orbit := controls.NewOrbitControls(camera, renderer)
	orbit.Target = center
	orbit.EnableDamping = cfg.Controls.Damping
	orbit.Update()

	composer, err := postfx.NewEffectComposer(renderer, scene, camera)
	if err != nil {
		return fmt.Errorf("create composer: %w", err)
	}
	defer composer.Dispose()

	if cfg.Outline.Enabled {
		visible, err := config.ParseColor(cfg.Outline.Visible)
		if err != nil {
			return err
		}
		hidden, err := config.ParseColor(cfg.Outline.Hidden)
		if err != nil {
			return err
		}
		w, h := renderer.Size()
		outline := postfx.NewOutlinePass(w, h, scene, camera)
		outline.SelectedObjects = []*g3d.Node{root}
		outline.EdgeStrength = float32(cfg.Outline.Strength)
		outline.EdgeGlow = float32(cfg.Outline.Glow)
		outline.EdgeThickness = float32(cfg.Outline.Thickness)
		outline.VisibleEdgeColor = g3d.Hex(visible)
		outline.HiddenEdgeColor = g3d.Hex(hidden)
		outline.PulsePeriod = cfg.Outline.Pulse
		composer.AddPass(outline)
	}

	g3d.CheckMultipleInstances()

	for range cfg.Renderer.Frames {
		orbit.Rotate(float32(cfg.Controls.OrbitSpeed), 0)
		orbit.Update()
		if err := composer.Render(); err != nil {
			return err
		}
	}

	info := renderer.Info()
	reg := g3d.Default()
	logger.Info("rendered",
		"frames", info.Frame,
		"draw_calls", info.DrawCalls,
		"triangles", info.Triangles,
		"geometries", info.Geometries,
		"materials", info.Materials,
		"textures", info.Textures,
		"renderers", reg.RendererCount(),
		"scenes", reg.SceneCount(),
	)

	if output == "" {
		return nil
	}
	img, err := renderer.ReadPixels()
	if err != nil {
		return fmt.Errorf("read pixels: %w", err)
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Info("saved", "file", output)
	return nil
}

func loadModel(cfg *config.Config) (*g3d.Node, error) {
	if cfg.Model.URL == "" {
		box := g3d.NewMesh(g3d.NewBoxGeometry(1, 1, 1), g3d.NewStandardMaterial())
		box.Name = "box"
		box.Material().Color = g3d.Hex(0x3388cc)
		return box.Node, nil
	}
	ctx := context.Background()
	if cfg.Model.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Model.Timeout)
		defer cancel()
	}
	return loader.LoadGLTF(ctx, cfg.Model.URL).Wait()
}

// bounds returns the center and radius of the world space bounding box
// of every mesh under root.
func bounds(root *g3d.Node) (f32.Vec3, float32) {
	root.UpdateWorldMatrix()
	lo := f32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	hi := f32.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	found := false
	root.Traverse(func(n *g3d.Node) {
		if n.Mesh == nil || n.Mesh.Geometry == nil {
			return
		}
		world := n.WorldMatrix()
		for _, p := range n.Mesh.Geometry.Positions {
			w := g3d.TransformPoint(world, p)
			for i := range 3 {
				lo[i] = min(lo[i], w[i])
				hi[i] = max(hi[i], w[i])
			}
			found = true
		}
	})
	if !found {
		return f32.Vec3{}, 1
	}
	center := f32.Vec3{(lo[0] + hi[0]) / 2, (lo[1] + hi[1]) / 2, (lo[2] + hi[2]) / 2}
	dx, dy, dz := hi[0]-lo[0], hi[1]-lo[1], hi[2]-lo[2]
	radius := float32(math.Sqrt(float64(dx*dx+dy*dy+dz*dz))) / 2
	return center, max(radius, 1e-3)
}
