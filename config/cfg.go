package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	// PageConfig describes page geometry for generated documents. All values
	// are in twips (1/20 pt).
	PageConfig struct {
		Width  int `yaml:"width" validate:"min=2000"`
		Height int `yaml:"height" validate:"min=2000"`
		Margin int `yaml:"margin" validate:"min=0"`
	}

	ImagesConfig struct {
		FetchTimeoutSec int `yaml:"fetch_timeout_sec" validate:"min=1"`
		// Raster images with either dimension above this limit are downscaled
		// before embedding. Zero disables downscaling.
		DownscalePx int `yaml:"downscale_px" validate:"min=0"`
		JPEGQuality int `yaml:"jpeg_quality_level" validate:"min=40,max=100"`
	}

	DiagramsConfig struct {
		ServiceURL      string `yaml:"service_url" validate:"omitempty,url"`
		MaxURLLength    int    `yaml:"max_url_length" validate:"min=0"`
		FetchTimeoutSec int    `yaml:"fetch_timeout_sec" validate:"min=1"`
		Tool            string `yaml:"tool"`
		ToolTimeoutSec  int    `yaml:"tool_timeout_sec" validate:"min=1"`
	}

	DocumentConfig struct {
		FixZip                bool           `yaml:"fix_zip"`
		StylePath             string         `yaml:"style_path" sanitize:"assure_file_access"`
		OutputNameTemplate    string         `yaml:"output_name_template"`
		FileNameTransliterate bool           `yaml:"file_name_transliterate"`
		Author                string         `yaml:"author" validate:"required"`
		Initials              string         `yaml:"initials" validate:"required"`
		Page                  PageConfig     `yaml:"page"`
		Images                ImagesConfig   `yaml:"images"`
		Diagrams              DiagramsConfig `yaml:"diagrams"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Document  DocumentConfig `yaml:"document"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above, alternative is to use struct
	// field name and reflection which I want to avoid for now
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
