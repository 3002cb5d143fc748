package codegen

import (
	"maps"
	"slices"
)

// Artifacts are build requirements discovered while generating steps.
type Artifacts struct {
	// Extensions maps a Go module path to the version the generated code
	// needs at deployment.
	Extensions map[string]string `json:"extensions,omitempty"`

	// AppSettings are configuration names the host must provide, sorted.
	AppSettings []string `json:"app_settings,omitempty"`
}

// AddExtension records a required module version. A later version for the
// same module replaces an earlier one only when it is not empty.
func (a *Artifacts) AddExtension(module, version string) {
	if a.Extensions == nil {
		a.Extensions = make(map[string]string)
	}
	if version == "" && a.Extensions[module] != "" {
		return
	}
	a.Extensions[module] = version
}

// AddAppSetting records a required app setting.
func (a *Artifacts) AddAppSetting(name string) {
	if name == "" {
		return
	}
	i, found := slices.BinarySearch(a.AppSettings, name)
	if found {
		return
	}
	a.AppSettings = slices.Insert(a.AppSettings, i, name)
}

// Merge adds other's requirements to a.
func (a *Artifacts) Merge(other Artifacts) {
	for _, module := range slices.Sorted(maps.Keys(other.Extensions)) {
		a.AddExtension(module, other.Extensions[module])
	}
	for _, name := range other.AppSettings {
		a.AddAppSetting(name)
	}
}

// Empty reports whether nothing was recorded.
func (a Artifacts) Empty() bool {
	return len(a.Extensions) == 0 && len(a.AppSettings) == 0
}
