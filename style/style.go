// Package style implements the layered document style configuration. A fully
// resolved Config always carries a value for every key - defaults guarantee
// totality, higher priority layers replace values wholesale.
package style

import (
	"fmt"
	"strconv"
	"strings"
)

// Style keys. Every layer may supply any subset of these, anything else is a
// configuration error.
const (
	KeyFontBody        = "font_body"
	KeyFontHeading     = "font_heading"
	KeyFontCode        = "font_code"
	KeyFontSize        = "font_size"
	KeyColorHeading    = "color_heading"
	KeyColorBody       = "color_body"
	KeyTableHeaderBG   = "table_header_bg"
	KeyTableHeaderText = "table_header_text"
	KeyTableAltRow     = "table_alt_row"
	KeyTableBorder     = "table_border"
	KeyTableBorderSize = "table_border_size"
	KeyTableCellMargin = "table_cell_margin"
	KeyTableFontSize   = "table_font_size"
	KeyTableBandedRows = "table_banded_rows"
	KeyCodeBG          = "code_bg"
	KeyCodeFontSize    = "code_font_size"
)

// Keys lists all defined style keys in canonical order.
var Keys = []string{
	KeyFontBody, KeyFontHeading, KeyFontCode, KeyFontSize,
	KeyColorHeading, KeyColorBody,
	KeyTableHeaderBG, KeyTableHeaderText, KeyTableAltRow,
	KeyTableBorder, KeyTableBorderSize, KeyTableCellMargin,
	KeyTableFontSize, KeyTableBandedRows,
	KeyCodeBG, KeyCodeFontSize,
}

// Layer is a partial assignment of style keys to raw string values.
type Layer map[string]string

// Defaults returns the built-in lowest priority layer. It defines every key.
func Defaults() Layer {
	return Layer{
		KeyFontBody:        "Arial",
		KeyFontHeading:     "Arial",
		KeyFontCode:        "Consolas",
		KeyFontSize:        "10.5",
		KeyColorHeading:    "2D3B4D",
		KeyColorBody:       "333333",
		KeyTableHeaderBG:   "D5E8F0",
		KeyTableHeaderText: "2D3B4D",
		KeyTableAltRow:     "F2F2F2",
		KeyTableBorder:     "CCCCCC",
		KeyTableBorderSize: "4",
		KeyTableCellMargin: "28",
		KeyTableFontSize:   "9.5",
		KeyTableBandedRows: "true",
		KeyCodeBG:          "F5F5F5",
		KeyCodeFontSize:    "9",
	}
}

// Config is a fully resolved, immutable style set. It is threaded through
// every render call - there is no global style state.
type Config struct {
	FontBody    string
	FontHeading string
	FontCode    string

	FontSize      float64 // points
	TableFontSize float64
	CodeFontSize  float64

	ColorHeading    string // RRGGBB, no leading '#'
	ColorBody       string
	TableHeaderBG   string
	TableHeaderText string
	TableAltRow     string
	TableBorder     string
	CodeBG          string

	TableBorderSize int // eighths of a point
	TableCellMargin int // twips
	TableBandedRows bool
}

// ConfigurationError reports an invalid or unknown style value. It is fatal -
// nothing is written when style resolution fails.
type ConfigurationError struct {
	Key    string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("style key %q: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("style key %q value %q: %s", e.Key, e.Value, e.Reason)
}

var knownKeys = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Keys))
	for _, k := range Keys {
		m[k] = struct{}{}
	}
	return m
}()

// Resolve merges layers (lowest to highest priority) on top of built-in
// defaults and produces a complete Config. A key present in a higher layer
// fully replaces the lower value.
func Resolve(layers ...Layer) (*Config, error) {
	merged := Defaults()
	for _, l := range layers {
		for k, v := range l {
			if _, ok := knownKeys[k]; !ok {
				return nil, &ConfigurationError{Key: k, Reason: "unknown style key"}
			}
			merged[k] = v
		}
	}

	var (
		cfg Config
		err error
	)
	cfg.FontBody = merged[KeyFontBody]
	cfg.FontHeading = merged[KeyFontHeading]
	cfg.FontCode = merged[KeyFontCode]

	if cfg.FontSize, err = positiveFloat(KeyFontSize, merged[KeyFontSize]); err != nil {
		return nil, err
	}
	if cfg.TableFontSize, err = positiveFloat(KeyTableFontSize, merged[KeyTableFontSize]); err != nil {
		return nil, err
	}
	if cfg.CodeFontSize, err = positiveFloat(KeyCodeFontSize, merged[KeyCodeFontSize]); err != nil {
		return nil, err
	}
	if cfg.TableBorderSize, err = positiveInt(KeyTableBorderSize, merged[KeyTableBorderSize]); err != nil {
		return nil, err
	}
	if cfg.TableCellMargin, err = positiveInt(KeyTableCellMargin, merged[KeyTableCellMargin]); err != nil {
		return nil, err
	}

	if cfg.ColorHeading, err = hexColor(KeyColorHeading, merged[KeyColorHeading]); err != nil {
		return nil, err
	}
	if cfg.ColorBody, err = hexColor(KeyColorBody, merged[KeyColorBody]); err != nil {
		return nil, err
	}
	if cfg.TableHeaderBG, err = hexColor(KeyTableHeaderBG, merged[KeyTableHeaderBG]); err != nil {
		return nil, err
	}
	if cfg.TableHeaderText, err = hexColor(KeyTableHeaderText, merged[KeyTableHeaderText]); err != nil {
		return nil, err
	}
	if cfg.TableAltRow, err = hexColor(KeyTableAltRow, merged[KeyTableAltRow]); err != nil {
		return nil, err
	}
	if cfg.TableBorder, err = hexColor(KeyTableBorder, merged[KeyTableBorder]); err != nil {
		return nil, err
	}
	if cfg.CodeBG, err = hexColor(KeyCodeBG, merged[KeyCodeBG]); err != nil {
		return nil, err
	}

	cfg.TableBandedRows = Truthy(merged[KeyTableBandedRows])
	return &cfg, nil
}

// Truthy interprets the small boolean vocabulary accepted by boolean-like
// style values. Anything else is false.
func Truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "yes", "1":
		return true
	}
	return false
}

func positiveFloat(key, v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, &ConfigurationError{Key: key, Value: v, Reason: "not a number"}
	}
	if f <= 0 {
		return 0, &ConfigurationError{Key: key, Value: v, Reason: "must be positive"}
	}
	return f, nil
}

func positiveInt(key, v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, &ConfigurationError{Key: key, Value: v, Reason: "not an integer"}
	}
	if n <= 0 {
		return 0, &ConfigurationError{Key: key, Value: v, Reason: "must be positive"}
	}
	return n, nil
}

func hexColor(key, v string) (string, error) {
	c := strings.TrimPrefix(strings.TrimSpace(v), "#")
	if len(c) != 6 {
		return "", &ConfigurationError{Key: key, Value: v, Reason: "not an RRGGBB color"}
	}
	for _, r := range c {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return "", &ConfigurationError{Key: key, Value: v, Reason: "not an RRGGBB color"}
		}
	}
	return strings.ToUpper(c), nil
}

// HalfPoints converts a point size to the half-point units WordprocessingML
// run sizes use.
func HalfPoints(pt float64) int {
	return int(pt*2 + 0.5)
}
