package config

import (
	"fmt"
	"strings"

	"golang.org/x/image/colornames"
)

func (c *Config) normalize() error {
	c.Timeline.Transition = strings.ToLower(strings.TrimSpace(c.Timeline.Transition))
	if c.Timeline.Transition == "" {
		c.Timeline.Transition = defaultTransition
	}

	if err := c.Theme.normalize(); err != nil {
		return err
	}

	c.Engines.MermaidBinary = strings.TrimSpace(c.Engines.MermaidBinary)
	c.Engines.KatexBinary = strings.TrimSpace(c.Engines.KatexBinary)
	if c.Engines.MermaidBinary == "" {
		c.Engines.MermaidBinary = defaultMermaidBinary
	}
	if c.Engines.KatexBinary == "" {
		c.Engines.KatexBinary = defaultKatexBinary
	}
	langs := make([]string, 0, len(c.Engines.FallbackLanguages))
	for _, lang := range c.Engines.FallbackLanguages {
		if lang = strings.ToLower(strings.TrimSpace(lang)); lang != "" {
			langs = append(langs, lang)
		}
	}
	if len(langs) == 0 {
		langs = append(langs, defaultFallbackLanguages...)
	}
	c.Engines.FallbackLanguages = langs

	c.Audio.FFprobeBinary = strings.TrimSpace(c.Audio.FFprobeBinary)
	if c.Audio.FFprobeBinary == "" {
		c.Audio.FFprobeBinary = defaultFFprobeBinary
	}

	var err error
	if c.Engines.ScratchDir, err = expandPath(strings.TrimSpace(c.Engines.ScratchDir)); err != nil {
		return err
	}
	if c.Audio.Dir, err = expandPath(strings.TrimSpace(c.Audio.Dir)); err != nil {
		return err
	}
	if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
		return err
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Summary.ShareURL = strings.TrimSpace(c.Summary.ShareURL)
	return nil
}

func (t *Theme) normalize() error {
	colors := []struct {
		key   string
		value *string
	}{
		{"theme.background", &t.Background},
		{"theme.primary", &t.Primary},
		{"theme.primary_text", &t.PrimaryText},
		{"theme.primary_border", &t.PrimaryBorder},
		{"theme.line", &t.Line},
		{"theme.secondary", &t.Secondary},
		{"theme.tertiary", &t.Tertiary},
		{"theme.error_color", &t.ErrorColor},
	}
	for _, c := range colors {
		normalized, err := NormalizeColor(*c.value)
		if err != nil {
			return fmt.Errorf("%s: %w", c.key, err)
		}
		*c.value = normalized
	}
	t.FontFamily = strings.TrimSpace(t.FontFamily)
	t.FontSize = strings.TrimSpace(t.FontSize)
	t.CodeStyle = strings.ToLower(strings.TrimSpace(t.CodeStyle))
	return nil
}

// NormalizeColor turns a CSS color name or hex literal into lower-case
// #rrggbb (or #rrggbbaa) form.
func NormalizeColor(value string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return "", fmt.Errorf("empty color")
	}
	if strings.HasPrefix(v, "#") {
		hex := v[1:]
		if !isHex(hex) {
			return "", fmt.Errorf("invalid hex color %q", value)
		}
		switch len(hex) {
		case 3:
			return "#" + string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]}), nil
		case 6, 8:
			return v, nil
		}
		return "", fmt.Errorf("invalid hex color %q", value)
	}
	rgba, ok := colornames.Map[v]
	if !ok {
		return "", fmt.Errorf("unknown color name %q", value)
	}
	return fmt.Sprintf("#%02x%02x%02x", rgba.R, rgba.G, rgba.B), nil
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}
