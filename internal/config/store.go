package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"mk4/internal/domain"
)

// Store defines persistence operations for app settings.
type Store interface {
	Load() (domain.Settings, error)
	Save(domain.Settings) error
}

// INIStore persists settings in a sectioned INI file. Keys and section
// names are matched case-insensitively on load; when the same key
// appears twice in a section (any casing), the later entry wins.
type INIStore struct {
	path string
}

// NewINIStore creates an INI-backed settings store.
func NewINIStore(path string) *INIStore {
	return &INIStore{path: path}
}

// Load reads settings from disk. A missing file yields defaults with no
// error. A malformed file yields defaults plus a *domain.ConfigParseError
// so the caller can warn without aborting.
func (s *INIStore) Load() (domain.Settings, error) {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return DefaultSettings(), nil
	}

	file, err := ini.LoadSources(ini.LoadOptions{Insensitive: true}, s.path)
	if err != nil {
		return DefaultSettings(), &domain.ConfigParseError{Path: s.path, Err: err}
	}

	cfg := DefaultSettings()

	ffmpeg := file.Section("ffmpeg")
	if enc := strings.TrimSpace(ffmpeg.Key("encoder").String()); domain.IsKnownEncoder(enc) {
		cfg.Encoder = enc
	}
	if crf := ffmpeg.Key("crf").MustInt(DefaultCRF); crf >= 0 && crf <= 51 {
		cfg.CRF = crf
	}

	font := file.Section("font")
	if name := strings.TrimSpace(font.Key("name").String()); name != "" {
		cfg.FontName = name
	}
	if size := font.Key("size").MustInt(DefaultFontSize); size > 0 {
		cfg.FontSize = size
	}

	gui := file.Section("gui")
	switch domain.Theme(strings.ToLower(strings.TrimSpace(gui.Key("theme").String()))) {
	case domain.ThemeDark:
		cfg.Theme = domain.ThemeDark
	case domain.ThemeLight:
		cfg.Theme = domain.ThemeLight
	}
	if lang := strings.TrimSpace(gui.Key("language").String()); lang != "" {
		cfg.Language = lang
	}
	cfg.AutoDeleteMKV = gui.Key("autodeletemkv").MustBool(false)

	if langs := file.Section("tracks").Key("languages").Strings(","); len(langs) > 0 {
		cfg.PreferredLanguages = langs
	}

	cfg.OutputDir = strings.TrimSpace(file.Section("output").Key("directory").String())

	return cfg, nil
}

// Save writes the canonical-case key layout and creates parent
// directories. Settings are normalized so a save/load round-trip is
// field-for-field stable.
func (s *INIStore) Save(cfg domain.Settings) error {
	cfg = Normalize(cfg)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	file := ini.Empty()

	ffmpeg, err := file.NewSection("FFMPEG")
	if err != nil {
		return err
	}
	ffmpeg.Key("ENCODER").SetValue(cfg.Encoder)
	ffmpeg.Key("CRF").SetValue(itoa(cfg.CRF))

	font, err := file.NewSection("FONT")
	if err != nil {
		return err
	}
	font.Key("Size").SetValue(itoa(cfg.FontSize))
	font.Key("Name").SetValue(cfg.FontName)

	gui, err := file.NewSection("GUI")
	if err != nil {
		return err
	}
	gui.Key("theme").SetValue(string(cfg.Theme))
	gui.Key("language").SetValue(cfg.Language)
	gui.Key("autodeletemkv").SetValue(boolString(cfg.AutoDeleteMKV))

	if len(cfg.PreferredLanguages) > 0 {
		tracks, err := file.NewSection("TRACKS")
		if err != nil {
			return err
		}
		tracks.Key("languages").SetValue(strings.Join(cfg.PreferredLanguages, ","))
	}

	if cfg.OutputDir != "" {
		output, err := file.NewSection("OUTPUT")
		if err != nil {
			return err
		}
		output.Key("directory").SetValue(cfg.OutputDir)
	}

	return file.SaveTo(s.path)
}

// Normalize trims user input and replaces invalid fields with defaults.
func Normalize(cfg domain.Settings) domain.Settings {
	cfg.Encoder = strings.TrimSpace(cfg.Encoder)
	if !domain.IsKnownEncoder(cfg.Encoder) {
		cfg.Encoder = DefaultEncoder
	}
	if cfg.CRF < 0 || cfg.CRF > 51 {
		cfg.CRF = DefaultCRF
	}
	cfg.FontName = strings.TrimSpace(cfg.FontName)
	if cfg.FontName == "" {
		cfg.FontName = DefaultFontName
	}
	if cfg.FontSize <= 0 {
		cfg.FontSize = DefaultFontSize
	}
	if cfg.Theme != domain.ThemeDark {
		cfg.Theme = domain.ThemeLight
	}
	cfg.Language = strings.TrimSpace(cfg.Language)
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	var langs []string
	for _, lang := range cfg.PreferredLanguages {
		if lang = strings.TrimSpace(lang); lang != "" {
			langs = append(langs, lang)
		}
	}
	cfg.PreferredLanguages = langs
	cfg.OutputDir = strings.TrimSpace(cfg.OutputDir)
	return cfg
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
