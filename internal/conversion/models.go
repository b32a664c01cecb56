package conversion

import "github.com/abduss/transmute/internal/file"

// Request asks for one original to be converted.
type Request struct {
	ID           string `json:"id"`
	OutputFormat string `json:"output_format"`
	// Quality is passed to converters that take one, e.g. "85" for JPEG.
	Quality string `json:"quality,omitempty"`
}

// Entry is one original with the files converted from it.
type Entry struct {
	file.Record
	Conversion  *file.Record  `json:"conversion"`
	Conversions []file.Record `json:"conversions"`
}
