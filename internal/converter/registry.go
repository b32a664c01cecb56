package converter

import (
	"slices"

	"github.com/abduss/transmute/internal/config"
)

// Registry is an ordered list of variants. The first variant accepting a pair wins.
type Registry struct {
	variants []Variant
}

// NewRegistry keeps variants in the given order.
func NewRegistry(variants ...Variant) *Registry {
	return &Registry{variants: slices.Clone(variants)}
}

// DefaultVariants returns drawio, inkscape and imagemagick, in that order.
func DefaultVariants(cfg config.ConverterConfig) []Variant {
	return []Variant{
		Drawio(cfg.DrawioBinary),
		Inkscape(cfg.InkscapeBinary),
		ImageMagick(cfg.MagickBinary),
	}
}

// Lookup returns the first variant that converts in to out.
func (r *Registry) Lookup(in, out string) (Variant, bool) {
	for _, v := range r.variants {
		if v.CanConvert(in, out) {
			return v, true
		}
	}
	return Variant{}, false
}

// CompatibleTargets is the sorted union of every variant's targets for format.
func (r *Registry) CompatibleTargets(format string) []string {
	var targets []string
	for _, v := range r.variants {
		targets = append(targets, v.CompatibleTargets(format)...)
	}
	slices.Sort(targets)
	return slices.Compact(append([]string{}, targets...))
}

// Variants returns the registered variants in order.
func (r *Registry) Variants() []Variant {
	return slices.Clone(r.variants)
}
