// Package sink wraps the hardware audio output device the renderer
// writes decoded, effected, equalized PCM to.
package sink

import (
	"encoding/hex"
	"runtime"
	"strings"

	"github.com/gen2brain/malgo"
	"github.com/klauspost/cpuid/v2"

	streamerrors "github.com/loomaudio/streamcore/internal/errors"
	"github.com/loomaudio/streamcore/internal/logging"
)

// DeviceInfo describes a playback device available on the host.
type DeviceInfo struct {
	Index int
	Name  string
	ID    string
}

// backendForPlatform mirrors the teacher's per-OS backend selection
// (internal/audiocore/sources/malgo/device.go), same backend choice,
// opposite capture/playback direction.
func backendForPlatform() (malgo.Backend, error) {
	switch runtime.GOOS {
	case "linux":
		return malgo.BackendAlsa, nil
	case "windows":
		return malgo.BackendWasapi, nil
	case "darwin":
		return malgo.BackendCoreaudio, nil
	default:
		return malgo.BackendNull, streamerrors.Newf("unsupported operating system: %s", runtime.GOOS).
			Component("sink").Category(streamerrors.CategoryResourceAlloc).Build()
	}
}

// EnumerateDevices lists playback devices available on the host.
func EnumerateDevices() ([]DeviceInfo, error) {
	backend, err := backendForPlatform()
	if err != nil {
		return nil, err
	}

	ctx, err := malgo.InitContext([]malgo.Backend{backend}, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, streamerrors.New(err).Component("sink").
			Category(streamerrors.CategoryResourceAlloc).
			Context("operation", "init-context").Build()
	}
	defer func() { _ = ctx.Uninit() }()

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, streamerrors.New(err).Component("sink").
			Category(streamerrors.CategoryResourceAlloc).
			Context("operation", "enumerate-devices").Build()
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for i := range infos {
		if strings.Contains(infos[i].Name(), "Discard all samples") {
			continue
		}
		decodedID, err := hexToASCII(infos[i].ID.String())
		if err != nil {
			decodedID = infos[i].ID.String()
		}
		devices = append(devices, DeviceInfo{Index: i, Name: infos[i].Name(), ID: decodedID})
	}
	return devices, nil
}

// selectDevice finds a device by name/ID, falling back to the system
// default, mirroring the teacher's SelectDevice match precedence.
func selectDevice(devices []malgo.DeviceInfo, deviceName string) (*malgo.DeviceInfo, error) {
	if deviceName == "" || deviceName == "default" || deviceName == "sysdefault" {
		for i := range devices {
			if devices[i].IsDefault == 1 {
				return &devices[i], nil
			}
		}
		if len(devices) > 0 {
			return &devices[0], nil
		}
	}

	for i := range devices {
		if devices[i].Name() == deviceName {
			return &devices[i], nil
		}
	}
	for i := range devices {
		decodedID, err := hexToASCII(devices[i].ID.String())
		if err == nil && decodedID == deviceName {
			return &devices[i], nil
		}
	}
	for i := range devices {
		if strings.Contains(devices[i].Name(), deviceName) {
			return &devices[i], nil
		}
	}

	return nil, streamerrors.Newf("no matching playback device found: %s", deviceName).
		Component("sink").Category(streamerrors.CategoryInvalidParameter).
		Context("device_name", deviceName).Context("available_devices", len(devices)).Build()
}

func hexToASCII(hexStr string) (string, error) {
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// logCapabilities logs the host's SIMD capability once, following the
// teacher's general capability-aware startup logging pattern.
func logCapabilities() {
	logging.ForComponent("sink").Info("host SIMD capability",
		"cpu", cpuid.CPU.BrandName,
		"avx2", cpuid.CPU.Supports(cpuid.AVX2),
		"avx512f", cpuid.CPU.Supports(cpuid.AVX512F),
		"neon", cpuid.CPU.Supports(cpuid.ASIMD),
	)
}
