package g3d

import (
	"errors"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Register the Vulkan backend for the default device path.
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// InstanceFactory creates backend instances. Registered HAL backends and
// noop.API satisfy it.
type InstanceFactory interface {
	CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error)
}

// gpuDevice is the device a renderer draws with, either opened by the
// renderer or borrowed from the host.
type gpuDevice struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	variant  gputypes.Backend
	adapter  string
	owned    bool
}

// openDevice resolves the device described by o. Errors reported by the
// backend are returned unmodified.
func openDevice(o *rendererOptions) (*gpuDevice, error) {
	if o.device != nil {
		if o.queue == nil {
			return nil, errors.New("g3d: WithHalDevice requires a queue")
		}
		return &gpuDevice{device: o.device, queue: o.queue, adapter: "external"}, nil
	}
	if o.provider != nil {
		return borrowDevice(o)
	}

	factory := o.backend
	var variant gputypes.Backend
	if factory == nil {
		backend, ok := hal.GetBackend(gputypes.BackendVulkan)
		if !ok {
			return nil, ErrNoBackend
		}
		factory = backend
		variant = gputypes.BackendVulkan
	} else if v, ok := factory.(interface{ Variant() gputypes.Backend }); ok {
		variant = v.Variant()
	}

	instance, err := factory.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		Logger().Debug("g3d: create instance failed", "err", err)
		return nil, err
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	selected := selectAdapter(adapters, o.powerPreference)

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		Logger().Debug("g3d: open device failed", "adapter", selected.Info.Name, "err", err)
		return nil, err
	}
	Logger().Debug("g3d: device opened", "adapter", selected.Info.Name, "type", selected.Info.DeviceType)

	return &gpuDevice{
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
		variant:  variant,
		adapter:  selected.Info.Name,
		owned:    true,
	}, nil
}

// borrowDevice takes the HAL device and queue from a host provider.
func borrowDevice(o *rendererOptions) (*gpuDevice, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := o.provider.(halProvider)
	if !ok {
		return nil, errors.New("g3d: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, errors.New("g3d: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, errors.New("g3d: provider HalQueue is not hal.Queue")
	}
	if !o.formatSet {
		if f := o.provider.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
			o.format = f
		}
	}
	return &gpuDevice{device: device, queue: queue, adapter: "shared"}, nil
}

// selectAdapter picks the adapter matching the power preference, falling
// back to the first one.
func selectAdapter(adapters []hal.ExposedAdapter, pref gputypes.PowerPreference) *hal.ExposedAdapter {
	var want gputypes.DeviceType
	switch pref {
	case gputypes.PowerPreferenceHighPerformance:
		want = gputypes.DeviceTypeDiscreteGPU
	case gputypes.PowerPreferenceLowPower:
		want = gputypes.DeviceTypeIntegratedGPU
	default:
		return &adapters[0]
	}
	for i := range adapters {
		if adapters[i].Info.DeviceType == want {
			return &adapters[i]
		}
	}
	return &adapters[0]
}

// release destroys the device and instance when they are owned.
func (d *gpuDevice) release() {
	if !d.owned {
		return
	}
	if d.device != nil {
		d.device.Destroy()
	}
	if d.instance != nil {
		d.instance.Destroy()
	}
	d.device = nil
	d.queue = nil
	d.instance = nil
}
