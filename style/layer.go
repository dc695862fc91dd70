package style

import (
	"regexp"
	"strings"
)

// docxStyleRe matches the inline document directive:
//
//	<!-- docx-style
//	key: value
//	-->
var docxStyleRe = regexp.MustCompile(`(?s)<!--\s*docx-style\s*\n(.*?)-->`)

// frontMatterRe matches a leading YAML front matter block.
var frontMatterRe = regexp.MustCompile(`(?s)\A---\s*\n.*?\n---\s*\n`)

// ParseLayer parses "key: value" lines into a Layer. Blank lines and lines
// starting with '#' are skipped; quotes around values are stripped. Unknown
// keys are rejected.
func ParseLayer(src string) (Layer, error) {
	l := Layer{}
	for line := range strings.Lines(src) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if _, ok := knownKeys[key]; !ok {
			return nil, &ConfigurationError{Key: key, Reason: "unknown style key"}
		}
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)
		l[key] = value
	}
	return l, nil
}

// ExtractDirective pulls the inline docx-style directive out of Markdown
// content. It returns the parsed layer (possibly empty) and the content with
// the directive removed.
func ExtractDirective(content string) (Layer, string, error) {
	m := docxStyleRe.FindStringSubmatch(content)
	if m == nil {
		return Layer{}, content, nil
	}
	l, err := ParseLayer(m[1])
	if err != nil {
		return nil, content, err
	}
	return l, docxStyleRe.ReplaceAllString(content, ""), nil
}

// StripFrontMatter removes a leading YAML front matter block, if present.
func StripFrontMatter(content string) string {
	return frontMatterRe.ReplaceAllString(content, "")
}
