package converter

import (
	"path/filepath"
	"slices"
	"strings"
)

// Kind tags a converter variant.
type Kind int

const (
	KindDrawio Kind = iota
	KindInkscape
	KindImageMagick
)

func (k Kind) String() string {
	switch k {
	case KindDrawio:
		return "drawio"
	case KindInkscape:
		return "inkscape"
	case KindImageMagick:
		return "imagemagick"
	default:
		return "unknown"
	}
}

// Variant describes one external tool: what it accepts, how to call it and
// where to find what it wrote.
type Variant struct {
	Kind    Kind
	Tool    string
	Formats []string

	accepts  func(in, out string) bool
	args     func(inputPath, outputDir, target, out, quality string) []string
	patterns func(stem, out string) []string
}

// Normalize lower-cases a format token and folds common aliases.
func Normalize(format string) string {
	f := strings.ToLower(strings.TrimLeft(strings.TrimSpace(format), "."))
	switch f {
	case "jpeg":
		return "jpg"
	case "tif":
		return "tiff"
	}
	return f
}

// Supports reports whether format is in the variant's supported set.
func (v Variant) Supports(format string) bool {
	return slices.Contains(v.Formats, Normalize(format))
}

// CanConvert applies the supported set and the variant's directionality.
func (v Variant) CanConvert(in, out string) bool {
	in, out = Normalize(in), Normalize(out)
	if !v.Supports(in) || !v.Supports(out) {
		return false
	}
	return v.accepts(in, out)
}

// CompatibleTargets returns the sorted formats reachable from format.
func (v Variant) CompatibleTargets(format string) []string {
	targets := []string{}
	for _, out := range v.Formats {
		if v.CanConvert(format, out) {
			targets = append(targets, out)
		}
	}
	slices.Sort(targets)
	return targets
}

// exportFrom accepts only pairs whose source is native and whose target is not.
func exportFrom(native string) func(in, out string) bool {
	return func(in, out string) bool {
		return in == native && out != native
	}
}

// Drawio exports draw.io diagrams with drawio-export.
func Drawio(tool string) Variant {
	return Variant{
		Kind:    KindDrawio,
		Tool:    orDefault(tool, "drawio-export"),
		Formats: []string{"drawio", "png", "pdf", "svg"},
		accepts: exportFrom("drawio"),
		args: func(inputPath, outputDir, _, out, _ string) []string {
			args := []string{"-f", out, "-o", outputDir + string(filepath.Separator)}
			if out == "png" {
				args = append(args, "-t")
			}
			return append(args, inputPath)
		},
		patterns: func(_, out string) []string {
			return []string{"Page-*." + out, "*Page-*." + out, "*." + out}
		},
	}
}

// Inkscape exports SVG documents.
func Inkscape(tool string) Variant {
	return Variant{
		Kind:    KindInkscape,
		Tool:    orDefault(tool, "inkscape"),
		Formats: []string{"svg", "png", "pdf", "eps", "emf"},
		accepts: exportFrom("svg"),
		args: func(inputPath, _, target, out, _ string) []string {
			return []string{inputPath, "--export-type=" + out, "--export-filename=" + target}
		},
		patterns: func(stem, out string) []string {
			return []string{stem + "." + out, "*." + out}
		},
	}
}

// ImageMagick converts between raster formats.
func ImageMagick(tool string) Variant {
	return Variant{
		Kind:    KindImageMagick,
		Tool:    orDefault(tool, "magick"),
		Formats: []string{"png", "jpg", "gif", "bmp", "tiff", "webp"},
		accepts: func(in, out string) bool { return in != out },
		args: func(inputPath, _, target, _, quality string) []string {
			args := []string{inputPath}
			if quality != "" {
				args = append(args, "-quality", quality)
			}
			return append(args, target)
		},
		// Multi-frame input is written as stem-0.ext, stem-1.ext, ...
		patterns: func(stem, out string) []string {
			return []string{stem + "." + out, stem + "-0." + out, "*." + out}
		},
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
