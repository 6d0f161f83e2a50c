// Package presets generates starter manifests.
package presets

import (
	"errors"
	"fmt"
	"slices"

	"github.com/modoterra/bootsift/pkg/manifest"
	"github.com/modoterra/bootsift/pkg/rules"
)

// ErrUnknownPreset is returned by Generate for a name not in Names.
var ErrUnknownPreset = errors.New("unknown preset")

const (
	Boot   = "boot"
	Kernel = "kernel"
)

// Names lists the available presets, default first.
func Names() []string {
	return []string{Boot, Kernel}
}

// Generate returns the manifest for the named preset.
func Generate(name string) (*manifest.Manifest, error) {
	switch name {
	case Boot, "":
		return GenerateBoot(), nil
	case Kernel:
		return GenerateKernel(), nil
	default:
		return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknownPreset, name, Names())
	}
}

// GenerateBoot covers all eight built-in boot log categories.
func GenerateBoot() *manifest.Manifest {
	return manifest.FromDefinitions(rules.Defaults())
}

// GenerateKernel keeps only the categories fed by kernel messages.
func GenerateKernel() *manifest.Manifest {
	keep := []string{rules.CriticalErrors, rules.HardwareDriver, rules.MountFS}

	var defs []rules.Definition
	for _, d := range rules.Defaults() {
		if slices.Contains(keep, d.Name) {
			defs = append(defs, d)
		}
	}
	return manifest.FromDefinitions(defs)
}
