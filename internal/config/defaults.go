package config

import (
	"os"
	"path/filepath"

	"mk4/internal/domain"
)

// Defaults for every settings field. Any absent or unparseable value in
// the backing file resolves to these.
const (
	DefaultEncoder  = "libx264"
	DefaultCRF      = 23
	DefaultFontName = "Arial"
	DefaultFontSize = 24
	DefaultLanguage = "en"
)

// DefaultSettings returns baseline configuration for first launch.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		Encoder:            DefaultEncoder,
		CRF:                DefaultCRF,
		FontName:           DefaultFontName,
		FontSize:           DefaultFontSize,
		Theme:              domain.ThemeLight,
		Language:           DefaultLanguage,
		AutoDeleteMKV:      false,
		PreferredLanguages: nil,
		OutputDir:          "",
	}
}

// DefaultPath returns the per-user location of the settings file.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".mk4", "config.ini")
}
