// Package testgpu provides noop HAL devices and providers for tests.
package testgpu

import (
	"sync/atomic"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// Open creates a noop device and queue. They are destroyed when the test
// finishes.
func Open(t testing.TB) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		t.Fatal("noop backend has no adapter")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

// CountingDevice wraps a device and counts resource creation and
// destruction.
type CountingDevice struct {
	hal.Device

	buffersCreated    atomic.Int32
	buffersDestroyed  atomic.Int32
	texturesCreated   atomic.Int32
	texturesDestroyed atomic.Int32
	groupsCreated     atomic.Int32
	groupsDestroyed   atomic.Int32
	destroyed         atomic.Bool
}

// NewCountingDevice returns a CountingDevice around a fresh noop device.
func NewCountingDevice(t testing.TB) (*CountingDevice, hal.Queue) {
	t.Helper()
	device, queue := Open(t)
	return &CountingDevice{Device: device}, queue
}

func (d *CountingDevice) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	buf, err := d.Device.CreateBuffer(desc)
	if err == nil {
		d.buffersCreated.Add(1)
	}
	return buf, err
}

func (d *CountingDevice) DestroyBuffer(buffer hal.Buffer) {
	d.buffersDestroyed.Add(1)
	d.Device.DestroyBuffer(buffer)
}

func (d *CountingDevice) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	tex, err := d.Device.CreateTexture(desc)
	if err == nil {
		d.texturesCreated.Add(1)
	}
	return tex, err
}

func (d *CountingDevice) DestroyTexture(texture hal.Texture) {
	d.texturesDestroyed.Add(1)
	d.Device.DestroyTexture(texture)
}

func (d *CountingDevice) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	bg, err := d.Device.CreateBindGroup(desc)
	if err == nil {
		d.groupsCreated.Add(1)
	}
	return bg, err
}

func (d *CountingDevice) DestroyBindGroup(group hal.BindGroup) {
	d.groupsDestroyed.Add(1)
	d.Device.DestroyBindGroup(group)
}

// Destroy records the call. The wrapped noop device is destroyed by the
// test cleanup registered in Open.
func (d *CountingDevice) Destroy() {
	d.destroyed.Store(true)
}

// LiveBuffers returns created minus destroyed buffers.
func (d *CountingDevice) LiveBuffers() int {
	return int(d.buffersCreated.Load() - d.buffersDestroyed.Load())
}

// LiveTextures returns created minus destroyed textures.
func (d *CountingDevice) LiveTextures() int {
	return int(d.texturesCreated.Load() - d.texturesDestroyed.Load())
}

// LiveBindGroups returns created minus destroyed bind groups.
func (d *CountingDevice) LiveBindGroups() int {
	return int(d.groupsCreated.Load() - d.groupsDestroyed.Load())
}

// BuffersCreated returns the number of buffers created so far.
func (d *CountingDevice) BuffersCreated() int { return int(d.buffersCreated.Load()) }

// TexturesCreated returns the number of textures created so far.
func (d *CountingDevice) TexturesCreated() int { return int(d.texturesCreated.Load()) }

// Destroyed reports whether Destroy was called.
func (d *CountingDevice) Destroyed() bool { return d.destroyed.Load() }

// Provider is a gpucontext.DeviceProvider exposing a HAL device and queue.
type Provider struct {
	HAL    hal.Device
	Q      hal.Queue
	Format gputypes.TextureFormat
}

var _ gpucontext.DeviceProvider = (*Provider)(nil)

type device struct{}

type queue struct{}

type adapter struct{}

func (p *Provider) Device() gpucontext.Device             { return device{} }
func (p *Provider) Queue() gpucontext.Queue               { return queue{} }
func (p *Provider) Adapter() gpucontext.Adapter           { return adapter{} }
func (p *Provider) SurfaceFormat() gputypes.TextureFormat { return p.Format }

// AdapterInfo describes the noop adapter as a software one.
func (p *Provider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "noop", Type: gpucontext.AdapterTypeSoftware}
}

// HalDevice returns the HAL device.
func (p *Provider) HalDevice() any { return p.HAL }

// HalQueue returns the HAL queue.
func (p *Provider) HalQueue() any { return p.Q }
