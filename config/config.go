package config

import (
	"io/ioutil"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// IndexWidth selects the component type of triangle index accessors.
type IndexWidth int

const (
	// IndexWidthAuto emits 16-bit indices and switches to 32-bit only when a
	// primitive has more than 65535 vertices (strictly greater).
	IndexWidthAuto IndexWidth = iota
	IndexWidthAlways16
	IndexWidthAlways32
)

func ParseIndexWidth(s string) (IndexWidth, error) {
	switch s {
	case "auto":
		return IndexWidthAuto, nil
	case "never", "16":
		return IndexWidthAlways16, nil
	case "always", "32":
		return IndexWidthAlways32, nil
	}
	return IndexWidthAuto, errors.Errorf("Unknown index width %q", s)
}

// DracoOptions configure the external geometry-compression backend.
// A quantization value of -1 leaves the backend default in place.
type DracoOptions struct {
	Enabled           bool `yaml:"enabled"`
	CompressionLevel  int  `yaml:"compressionLevel"`
	QuantBitsPosition int  `yaml:"quantBitsPosition"`
	QuantBitsTexCoord int  `yaml:"quantBitsTexCoord"`
	QuantBitsNormal   int  `yaml:"quantBitsNormal"`
	QuantBitsColor    int  `yaml:"quantBitsColor"`
	QuantBitsGeneric  int  `yaml:"quantBitsGeneric"`
}

// Options are the enumerated knobs the synthesis core consumes. Main fills
// them from flags; LoadOptions overlays a YAML file.
type Options struct {
	IndexWidth               IndexWidth   `yaml:"-"`
	IndexWidthName           string       `yaml:"indexWidth"`
	UsePBRMetRough           bool         `yaml:"usePBRMetRough"`
	UseKHRMatUnlit           bool         `yaml:"useKHRMatUnlit"`
	UseKHRLightsPunctual     bool         `yaml:"useKHRLightsPunctual"`
	DisableSparseBlendShapes bool         `yaml:"disableSparseBlendShapes"`
	UseBlendShapeNormals     bool         `yaml:"useBlendShapeNormals"`
	UseBlendShapeTangents    bool         `yaml:"useBlendShapeTangents"`
	EnableUserProperties     bool         `yaml:"enableUserProperties"`
	Draco                    DracoOptions `yaml:"draco"`
	OutputBinary             bool         `yaml:"outputBinary"`
	Verbose                  bool         `yaml:"verbose"`
}

func DefaultOptions() *Options {
	return &Options{
		IndexWidth:     IndexWidthAuto,
		UsePBRMetRough: true,
		Draco: DracoOptions{
			CompressionLevel:  7,
			QuantBitsPosition: -1,
			QuantBitsTexCoord: -1,
			QuantBitsNormal:   -1,
			QuantBitsColor:    -1,
			QuantBitsGeneric:  -1,
		},
	}
}

// LoadOptions reads a YAML options file on top of the defaults.
func LoadOptions(path string) (*Options, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot read options file %q", path)
	}

	opts := DefaultOptions()
	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, errors.Wrapf(err, "Cannot parse options file %q", path)
	}
	if opts.IndexWidthName != "" {
		if opts.IndexWidth, err = ParseIndexWidth(opts.IndexWidthName); err != nil {
			return nil, err
		}
	}
	return opts, nil
}
