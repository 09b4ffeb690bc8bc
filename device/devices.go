// Package device binds the microphone and speaker to PortAudio.
package device

import (
	"fmt"
	"log/slog"

	"github.com/gordonklaus/portaudio"
)

const framesPerBuffer = 1024

// Initialize brings PortAudio up for the lifetime of the returned release func.
func Initialize() (func(), error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return func() {
		if err := portaudio.Terminate(); err != nil {
			slog.Error("Failed to terminate PortAudio", "error", err)
		}
	}, nil
}

// InputDevice is a capture device and its PortAudio index, the value
// accepted as MicrophoneConfig.DeviceID.
type InputDevice struct {
	Index int
	*portaudio.DeviceInfo
}

// ListInputDevices returns every device with at least one input channel.
// PortAudio must be initialized.
func ListInputDevices() ([]InputDevice, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to get devices: %w", err)
	}

	inputDevices := make([]InputDevice, 0)
	for i, device := range devices {
		if device.MaxInputChannels > 0 {
			inputDevices = append(inputDevices, InputDevice{Index: i, DeviceInfo: device})
		}
	}

	return inputDevices, nil
}

func inputParameters(deviceID int, sampleRate float64) (portaudio.StreamParameters, error) {
	var device *portaudio.DeviceInfo
	if deviceID >= 0 { // Negative selects the default input device
		devices, err := portaudio.Devices()
		if err != nil {
			return portaudio.StreamParameters{}, fmt.Errorf("failed to get audio devices: %w", err)
		}
		if deviceID >= len(devices) {
			return portaudio.StreamParameters{}, fmt.Errorf("invalid device ID %d", deviceID)
		}
		device = devices[deviceID]
		if device.MaxInputChannels == 0 {
			return portaudio.StreamParameters{}, fmt.Errorf("device %d (%s) is not an input device", deviceID, device.Name)
		}
		slog.Info("Using specified audio device",
			"deviceID", deviceID,
			"deviceName", device.Name,
			"inputChannels", device.MaxInputChannels)
	} else {
		var err error
		device, err = portaudio.DefaultInputDevice()
		if err != nil {
			return portaudio.StreamParameters{}, fmt.Errorf("failed to get default input device: %w", err)
		}
		slog.Info("Using default audio device",
			"deviceName", device.Name,
			"inputChannels", device.MaxInputChannels)
	}

	return portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 1,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: framesPerBuffer,
	}, nil
}
