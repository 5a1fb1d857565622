// Package shader turns the WGSL sources embedded in g3d into backend
// shader modules.
//
// Vulkan consumes SPIR-V, which is produced with naga. Every other backend
// accepts WGSL directly.
package shader

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// ErrEmptySource is returned when a shader has no source text.
var ErrEmptySource = errors.New("shader: empty source")

// CompileSPIRV compiles WGSL source to SPIR-V words.
func CompileSPIRV(wgsl string) ([]uint32, error) {
	if wgsl == "" {
		return nil, ErrEmptySource
	}
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("shader: compile: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("shader: SPIR-V length %d is not a multiple of 4", len(spirvBytes))
	}

	// SPIR-V is a stream of little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return words, nil
}

// Source returns the shader source for the given backend variant.
func Source(variant gputypes.Backend, wgsl string) (hal.ShaderSource, error) {
	if wgsl == "" {
		return hal.ShaderSource{}, ErrEmptySource
	}
	if variant != gputypes.BackendVulkan {
		return hal.ShaderSource{WGSL: wgsl}, nil
	}
	words, err := CompileSPIRV(wgsl)
	if err != nil {
		return hal.ShaderSource{}, err
	}
	return hal.ShaderSource{SPIRV: words}, nil
}

// CreateModule creates a shader module on device from WGSL source.
func CreateModule(device hal.Device, variant gputypes.Backend, label, wgsl string) (hal.ShaderModule, error) {
	src, err := Source(variant, wgsl)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: src,
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module %s: %w", label, err)
	}
	return module, nil
}
