package mic

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

type Device struct {
	Name              string
	HostAPI           string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	DefaultInput      bool
	DefaultOutput     bool
}

// Devices lists every portaudio device.
func Devices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("init portaudio: %w", err)
	}
	defer portaudio.Terminate()

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	defIn, _ := portaudio.DefaultInputDevice()
	defOut, _ := portaudio.DefaultOutputDevice()

	out := make([]Device, 0, len(infos))
	for _, d := range infos {
		dev := Device{
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			MaxOutputChannels: d.MaxOutputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
			DefaultInput:      defIn != nil && defIn.Name == d.Name,
			DefaultOutput:     defOut != nil && defOut.Name == d.Name,
		}
		if d.HostApi != nil {
			dev.HostAPI = d.HostApi.Name
		}
		out = append(out, dev)
	}

	return out, nil
}

func (d Device) String() string {
	s := fmt.Sprintf("%s (%s) in=%d out=%d %.0f Hz", d.Name, d.HostAPI, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate)
	if d.DefaultInput {
		s += " [default input]"
	}
	if d.DefaultOutput {
		s += " [default output]"
	}
	return s
}

// Describe returns one line per device.
func Describe() ([]string, error) {
	devs, err := Devices()
	if err != nil {
		return nil, err
	}

	lines := make([]string, len(devs))
	for i, d := range devs {
		lines[i] = d.String()
	}
	return lines, nil
}
