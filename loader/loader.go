// Package loader loads glTF 2.0 models into g3d node trees.
//
// LoadGLTF fetches and parses a model in the background and resolves once:
//
//	load := loader.LoadGLTF(ctx, "models/helmet.glb")
//	root, err := load.Wait()
//	if err != nil {
//	    return err
//	}
//	scene.Add(root)
//
// Both .gltf (JSON with external or embedded buffers) and .glb files are
// accepted. Base color textures in PNG, JPEG and WebP are decoded.
package loader

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/gogpu/g3d"
)

// Progress reports how much of the primary asset has been read.
type Progress struct {
	Loaded int64
	// Total is -1 when the size is unknown.
	Total int64
}

// Option configures a load.
type Option func(*options)

type options struct {
	fetcher  Fetcher
	progress func(Progress)
}

// WithFetcher replaces the DefaultFetcher.
func WithFetcher(f Fetcher) Option {
	return func(o *options) {
		o.fetcher = f
	}
}

// WithProgress registers a callback invoked from the loading goroutine as
// the asset body is read.
func WithProgress(fn func(Progress)) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// Load is a model load in flight.
type Load struct {
	done chan struct{}
	root *g3d.Node
	err  error
}

// Done is closed once the load has resolved.
func (l *Load) Done() <-chan struct{} {
	return l.done
}

// Wait blocks until the load resolves and returns its root node, or the
// error that ended it.
func (l *Load) Wait() (*g3d.Node, error) {
	<-l.done
	return l.root, l.err
}

// LoadGLTF starts loading the model at url. Failures are logged once at
// error level and returned by Wait as produced by the fetcher or decoder.
func LoadGLTF(ctx context.Context, url string, opts ...Option) *Load {
	o := options{fetcher: &DefaultFetcher{}}
	for _, opt := range opts {
		opt(&o)
	}

	l := &Load{done: make(chan struct{})}
	go func() {
		defer close(l.done)
		l.root, l.err = load(ctx, url, &o)
		if l.err != nil {
			g3d.Logger().Error("loader: model load failed", "url", url, "err", l.err)
			return
		}
		g3d.Logger().Info("loader: model loaded", "url", url, "name", l.root.Name)
	}()
	return l
}

func load(ctx context.Context, url string, o *options) (*g3d.Node, error) {
	asset, err := o.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	defer asset.Body.Close()

	var body io.Reader = asset.Body
	if o.progress != nil {
		body = &progressReader{r: asset.Body, total: asset.Size, fn: o.progress}
	}
	root, err := Decode(body, asset.FS)
	if err != nil {
		return nil, err
	}
	markForUpload(root)
	return root, nil
}

// markForUpload flags every mesh material so the first render writes its
// parameters.
func markForUpload(root *g3d.Node) {
	root.Traverse(func(n *g3d.Node) {
		if n.Mesh == nil {
			return
		}
		for _, m := range n.Mesh.Materials {
			if m != nil {
				m.NeedsUpdate = true
			}
		}
	})
}

type progressReader struct {
	r      io.Reader
	loaded atomic.Int64
	total  int64
	fn     func(Progress)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.fn(Progress{Loaded: p.loaded.Add(int64(n)), Total: p.total})
	}
	return n, err
}
