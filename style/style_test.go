package style

import (
	"errors"
	"testing"
)

func TestResolveDefaultsComplete(t *testing.T) {
	d := Defaults()
	if len(d) != len(Keys) {
		t.Fatalf("defaults define %d keys, want %d", len(d), len(Keys))
	}
	for _, k := range Keys {
		if _, ok := d[k]; !ok {
			t.Errorf("defaults missing key %q", k)
		}
	}
	if _, err := Resolve(); err != nil {
		t.Fatalf("resolving defaults: %v", err)
	}
}

func TestResolvePriority(t *testing.T) {
	low := Layer{KeyFontBody: "Georgia", KeyFontSize: "12"}
	high := Layer{KeyFontBody: "Calibri"}

	cfg, err := Resolve(low, high)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.FontBody != "Calibri" {
		t.Errorf("FontBody = %q, want highest layer value", cfg.FontBody)
	}
	if cfg.FontSize != 12 {
		t.Errorf("FontSize = %v, want 12 from lower layer", cfg.FontSize)
	}
	if cfg.FontCode != "Consolas" {
		t.Errorf("FontCode = %q, want default", cfg.FontCode)
	}
}

func TestResolveUnknownKey(t *testing.T) {
	_, err := Resolve(Layer{"font_weight": "bold"})
	var cerr *ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cerr.Key != "font_weight" {
		t.Errorf("error key = %q", cerr.Key)
	}
}

func TestResolveBadValues(t *testing.T) {
	cases := []Layer{
		{KeyFontSize: "large"},
		{KeyFontSize: "-2"},
		{KeyTableBorderSize: "1.5"},
		{KeyTableCellMargin: "0"},
		{KeyColorBody: "bluish"},
		{KeyCodeBG: "#F5F"},
	}
	for _, l := range cases {
		if _, err := Resolve(l); err == nil {
			t.Errorf("layer %v: expected error", l)
		}
	}
}

func TestResolveColorNormalization(t *testing.T) {
	cfg, err := Resolve(Layer{KeyColorBody: "#aabbcc"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ColorBody != "AABBCC" {
		t.Errorf("ColorBody = %q, want AABBCC", cfg.ColorBody)
	}
}

func TestTruthy(t *testing.T) {
	for _, v := range []string{"true", "Yes", "1", " TRUE "} {
		if !Truthy(v) {
			t.Errorf("Truthy(%q) = false", v)
		}
	}
	for _, v := range []string{"false", "no", "0", "", "on"} {
		if Truthy(v) {
			t.Errorf("Truthy(%q) = true", v)
		}
	}
}

func TestHalfPoints(t *testing.T) {
	if got := HalfPoints(10.5); got != 21 {
		t.Errorf("HalfPoints(10.5) = %d, want 21", got)
	}
	if got := HalfPoints(9); got != 18 {
		t.Errorf("HalfPoints(9) = %d, want 18", got)
	}
}

func TestParseLayer(t *testing.T) {
	l, err := ParseLayer("# comment\nfont_body: \"Georgia\"\ntable_banded_rows: no\n\ncolor_heading: '112233'\n")
	if err != nil {
		t.Fatal(err)
	}
	if l[KeyFontBody] != "Georgia" {
		t.Errorf("font_body = %q", l[KeyFontBody])
	}
	if l[KeyTableBandedRows] != "no" {
		t.Errorf("table_banded_rows = %q", l[KeyTableBandedRows])
	}
	if l[KeyColorHeading] != "112233" {
		t.Errorf("color_heading = %q", l[KeyColorHeading])
	}
}

func TestParseLayerUnknownKey(t *testing.T) {
	_, err := ParseLayer("line_height: 1.5\n")
	var cerr *ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestExtractDirective(t *testing.T) {
	content := "# Doc\n\n<!-- docx-style\nfont_body: Georgia\ncode_bg: EEEEEE\n-->\n\nBody text.\n"
	l, rest, err := ExtractDirective(content)
	if err != nil {
		t.Fatal(err)
	}
	if l[KeyFontBody] != "Georgia" || l[KeyCodeBG] != "EEEEEE" {
		t.Errorf("layer = %v", l)
	}
	if rest == content {
		t.Error("directive was not removed from content")
	}
	if _, _, err := ExtractDirective(rest); err != nil {
		t.Fatal(err)
	}
}

func TestExtractDirectiveAbsent(t *testing.T) {
	content := "plain markdown\n"
	l, rest, err := ExtractDirective(content)
	if err != nil {
		t.Fatal(err)
	}
	if len(l) != 0 || rest != content {
		t.Errorf("expected no-op, got layer %v rest %q", l, rest)
	}
}

func TestStripFrontMatter(t *testing.T) {
	content := "---\ntitle: X\n---\n# Heading\n"
	if got := StripFrontMatter(content); got != "# Heading\n" {
		t.Errorf("got %q", got)
	}
	plain := "# Heading\n\n---\n\ntext\n"
	if got := StripFrontMatter(plain); got != plain {
		t.Errorf("rule in body was stripped: %q", got)
	}
}
