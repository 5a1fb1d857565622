// Package postfx chains fullscreen post-processing passes over a g3d
// renderer.
//
// An EffectComposer renders its passes in order through two ping-pong
// render targets. Each pass reads the previous pass's result and writes the
// next one; the last enabled pass writes the renderer's output target.
//
//	composer, err := postfx.NewEffectComposer(renderer, scene, camera)
//	if err != nil {
//	    return err
//	}
//	defer composer.Dispose()
//
//	outline := postfx.NewOutlinePass(800, 600, scene, camera)
//	outline.SelectedObjects = []*g3d.Node{picked}
//	composer.AddPass(outline)
//
//	for running {
//	    if err := composer.Render(); err != nil {
//	        return err
//	    }
//	}
package postfx

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/g3d"
)

// ErrComposerDisposed is returned when a disposed composer is used.
var ErrComposerDisposed = errors.New("postfx: composer disposed")

// Pass is one step of an EffectComposer.
type Pass interface {
	// Render draws into dst, reading the previous result from src.
	Render(r *g3d.Renderer, dst, src *g3d.RenderTarget) error
	// SetSize is called with the composer size.
	SetSize(width, height int) error
	Enabled() bool
	// Dispose releases the pass's GPU resources.
	Dispose()
}

// Toggle implements the enabled state of a pass. Passes start enabled.
type Toggle struct {
	disabled bool
}

// Enabled reports whether the composer runs the pass.
func (t *Toggle) Enabled() bool { return !t.disabled }

// SetEnabled enables or disables the pass.
func (t *Toggle) SetEnabled(enabled bool) { t.disabled = !enabled }

// EffectComposer renders a chain of passes.
//
// The composer owns its two ping-pong targets and the passes added to it:
// Dispose releases them all. A pass removed with RemovePass is returned to
// the caller.
type EffectComposer struct {
	renderer *g3d.Renderer
	read     *g3d.RenderTarget
	write    *g3d.RenderTarget
	passes   []Pass

	width, height int
	disposed      bool
}

// NewEffectComposer creates a composer at the renderer's size with a
// RenderPass of scene and camera already added.
func NewEffectComposer(r *g3d.Renderer, scene *g3d.Scene, camera *g3d.Camera) (*EffectComposer, error) {
	if r == nil || r.Disposed() {
		return nil, g3d.ErrRendererDisposed
	}
	w, h := r.Size()
	read, err := r.NewRenderTarget(w, h)
	if err != nil {
		return nil, fmt.Errorf("postfx: create read target: %w", err)
	}
	write, err := r.NewRenderTarget(w, h)
	if err != nil {
		read.Dispose()
		return nil, fmt.Errorf("postfx: create write target: %w", err)
	}
	c := &EffectComposer{renderer: r, read: read, write: write, width: w, height: h}
	c.AddPass(NewRenderPass(scene, camera))
	g3d.Logger().Debug("postfx: composer created", "width", w, "height", h)
	return c, nil
}

// AddPass appends p to the chain and sizes it.
func (c *EffectComposer) AddPass(p Pass) {
	c.InsertPass(p, len(c.passes))
}

// InsertPass inserts p at index, clamped to the chain bounds.
func (c *EffectComposer) InsertPass(p Pass, index int) {
	if p == nil {
		return
	}
	index = max(0, min(index, len(c.passes)))
	c.passes = slices.Insert(c.passes, index, p)
	if err := p.SetSize(c.width, c.height); err != nil {
		g3d.Logger().Warn("postfx: pass resize failed", "err", err)
	}
}

// RemovePass removes p from the chain without disposing it. It reports
// whether p was found.
func (c *EffectComposer) RemovePass(p Pass) bool {
	i := slices.Index(c.passes, p)
	if i < 0 {
		return false
	}
	c.passes = slices.Delete(c.passes, i, i+1)
	return true
}

// Passes returns a copy of the chain.
func (c *EffectComposer) Passes() []Pass {
	return slices.Clone(c.passes)
}

// Size returns the size of the composer targets.
func (c *EffectComposer) Size() (width, height int) {
	return c.width, c.height
}

// SetSize resizes the ping-pong targets and every pass.
func (c *EffectComposer) SetSize(width, height int) error {
	if c.disposed {
		return ErrComposerDisposed
	}
	if err := c.read.SetSize(width, height); err != nil {
		return err
	}
	if err := c.write.SetSize(width, height); err != nil {
		return err
	}
	c.width, c.height = width, height
	var errs []error
	for _, p := range c.passes {
		errs = append(errs, p.SetSize(width, height))
	}
	return errors.Join(errs...)
}

// Render runs the enabled passes. The renderer's render target is restored
// afterwards.
func (c *EffectComposer) Render() error {
	if c.disposed {
		return ErrComposerDisposed
	}
	if c.renderer.Disposed() {
		return g3d.ErrRendererDisposed
	}

	last := -1
	for i, p := range c.passes {
		if p.Enabled() {
			last = i
		}
	}
	if last < 0 {
		return nil
	}

	prev := c.renderer.RenderTarget()
	defer c.renderer.SetRenderTarget(prev)

	for i, p := range c.passes[:last+1] {
		if !p.Enabled() {
			continue
		}
		dst := c.write
		if i == last {
			dst = c.renderer.Output()
		}
		if err := p.Render(c.renderer, dst, c.read); err != nil {
			return fmt.Errorf("postfx: pass %d: %w", i, err)
		}
		c.read, c.write = c.write, c.read
	}
	return nil
}

// Dispose releases the targets and every pass. Safe to call more than
// once.
func (c *EffectComposer) Dispose() {
	if c == nil || c.disposed {
		return
	}
	c.disposed = true
	for _, p := range c.passes {
		p.Dispose()
	}
	c.passes = nil
	c.read.Dispose()
	c.write.Dispose()
}
