package galprof

import (
	"fmt"
	"maps"
	"slices"
)

// Registered model types.
const (
	NonParametricGalaxyType = "nonparametric galaxy model"
	NonParametricWarpType   = "nonparametric warp galaxy model"
	SersicGalaxyType        = "sersic galaxy model"
)

// modelKind wires a transform and a profile together with the spec chain
// their parameters come from, least specific first.
type modelKind struct {
	transform CoordinateTransform
	profile   Profile
	providers []specProvider
}

func (k modelKind) chain() []specProvider {
	chain := append([]specProvider{baseModelSpecs{}}, k.providers...)
	return append(chain, k.profile)
}

var modelKinds = map[string]modelKind{
	NonParametricGalaxyType: {
		transform: GalaxyTransform{},
		profile:   NonParametric{},
		providers: []specProvider{GalaxyTransform{}},
	},
	NonParametricWarpType: {
		transform: WarpTransform{},
		profile:   NonParametric{},
		providers: []specProvider{GalaxyTransform{}, WarpTransform{}},
	},
	SersicGalaxyType: {
		transform: GalaxyTransform{},
		profile:   Sersic{},
		providers: []specProvider{GalaxyTransform{}},
	},
}

func lookupModelType(modelType string) (modelKind, error) {
	kind, ok := modelKinds[modelType]
	if !ok {
		return modelKind{}, fmt.Errorf("%q: %w", modelType, ErrUnknownModelType)
	}
	return kind, nil
}

// ModelTypes lists the registered model type names, sorted.
func ModelTypes() []string {
	return slices.Sorted(maps.Keys(modelKinds))
}
