package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"mk4/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.ini")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// TestDefaultSettings verifies baseline defaults are present.
func TestDefaultSettings(t *testing.T) {
	cfg := DefaultSettings()
	if cfg.Encoder != "libx264" {
		t.Fatalf("encoder = %q, want libx264", cfg.Encoder)
	}
	if cfg.CRF != 23 {
		t.Fatalf("crf = %d, want 23", cfg.CRF)
	}
	if cfg.FontName != "Arial" || cfg.FontSize != 24 {
		t.Fatalf("font = %q/%d, want Arial/24", cfg.FontName, cfg.FontSize)
	}
	if cfg.Theme != domain.ThemeLight {
		t.Fatalf("theme = %q, want light", cfg.Theme)
	}
	if cfg.AutoDeleteMKV {
		t.Fatal("auto-delete should default to off")
	}
}

// TestLoadMissingReturnsDefaults checks first-run behavior.
func TestLoadMissingReturnsDefaults(t *testing.T) {
	store := NewINIStore(filepath.Join(t.TempDir(), "missing", "config.ini"))

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, DefaultSettings()) {
		t.Fatalf("settings = %+v, want defaults", got)
	}
}

// TestLoadMalformedReturnsDefaultsAndParseError checks that a broken
// file degrades to defaults instead of failing the caller.
func TestLoadMalformedReturnsDefaultsAndParseError(t *testing.T) {
	store := NewINIStore(writeConfig(t, "this is not an ini file\n"))

	got, err := store.Load()
	var parseErr *domain.ConfigParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want *domain.ConfigParseError", err)
	}
	if !reflect.DeepEqual(got, DefaultSettings()) {
		t.Fatalf("settings = %+v, want defaults", got)
	}
}

// TestLoadCaseInsensitiveKeys checks mixed-case sections and keys.
func TestLoadCaseInsensitiveKeys(t *testing.T) {
	store := NewINIStore(writeConfig(t, `[ffmpeg]
Encoder = libx265
[Font]
SIZE = 32
NAME = Helvetica
[GUI]
Theme = DARK
AutoDeleteMKV = yes
`))

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Encoder != "libx265" {
		t.Fatalf("encoder = %q, want libx265", got.Encoder)
	}
	if got.FontSize != 32 || got.FontName != "Helvetica" {
		t.Fatalf("font = %q/%d, want Helvetica/32", got.FontName, got.FontSize)
	}
	if got.Theme != domain.ThemeDark {
		t.Fatalf("theme = %q, want dark", got.Theme)
	}
	if !got.AutoDeleteMKV {
		t.Fatal("autodeletemkv = yes should parse as true")
	}
}

// TestLoadDuplicateKeyLastWins checks last-write-wins for duplicated
// keys that differ only in case.
func TestLoadDuplicateKeyLastWins(t *testing.T) {
	store := NewINIStore(writeConfig(t, `[FFMPEG]
crf = 23
CRF = 18
`))

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.CRF != 18 {
		t.Fatalf("crf = %d, want 18 (later key wins)", got.CRF)
	}
}

// TestLoadInvalidValuesFallBackToDefaults checks type coercion.
func TestLoadInvalidValuesFallBackToDefaults(t *testing.T) {
	store := NewINIStore(writeConfig(t, `[FFMPEG]
ENCODER = not-an-encoder
CRF = ninety
[FONT]
Size = -4
[GUI]
theme = sepia
autodeletemkv = maybe
`))

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := DefaultSettings()
	if got.Encoder != want.Encoder || got.CRF != want.CRF {
		t.Fatalf("encoder/crf = %q/%d, want defaults", got.Encoder, got.CRF)
	}
	if got.FontSize != want.FontSize {
		t.Fatalf("font size = %d, want %d", got.FontSize, want.FontSize)
	}
	if got.Theme != domain.ThemeLight {
		t.Fatalf("theme = %q, want light", got.Theme)
	}
	if got.AutoDeleteMKV {
		t.Fatal("unparseable bool should default to false")
	}
}

// TestLoadOutOfRangeCRFFallsBack checks CRF range validation.
func TestLoadOutOfRangeCRFFallsBack(t *testing.T) {
	store := NewINIStore(writeConfig(t, "[FFMPEG]\nCRF = 99\n"))

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.CRF != DefaultCRF {
		t.Fatalf("crf = %d, want %d", got.CRF, DefaultCRF)
	}
}

// TestSaveAndLoadRoundTrip checks persisted settings fidelity.
func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := NewINIStore(filepath.Join(t.TempDir(), "cfg", "config.ini"))
	want := domain.Settings{
		Encoder:            "hevc_nvenc",
		CRF:                18,
		FontName:           "Noto Sans",
		FontSize:           30,
		Theme:              domain.ThemeDark,
		Language:           "fr",
		AutoDeleteMKV:      true,
		PreferredLanguages: []string{"fre", "eng"},
		OutputDir:          "/tmp/out",
	}

	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("settings = %+v, want %+v", got, want)
	}
}

// TestSaveNormalizesInvalidFields checks that a save/load cycle never
// persists out-of-range values.
func TestSaveNormalizesInvalidFields(t *testing.T) {
	store := NewINIStore(filepath.Join(t.TempDir(), "config.ini"))
	if err := store.Save(domain.Settings{Encoder: "bogus", CRF: 400, FontSize: -1}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := DefaultSettings()
	if got.Encoder != want.Encoder || got.CRF != want.CRF || got.FontSize != want.FontSize {
		t.Fatalf("settings = %+v, want defaults for invalid fields", got)
	}
}

// TestNormalizeLeavesInputIntact checks that cleaning the language list
// copies instead of filtering the caller's slice in place.
func TestNormalizeLeavesInputIntact(t *testing.T) {
	langs := []string{" fre ", "", "eng"}
	cfg := domain.Settings{PreferredLanguages: langs}

	got := Normalize(cfg)

	if !reflect.DeepEqual(langs, []string{" fre ", "", "eng"}) {
		t.Fatalf("input slice mutated: %q", langs)
	}
	if !reflect.DeepEqual(got.PreferredLanguages, []string{"fre", "eng"}) {
		t.Fatalf("PreferredLanguages = %q", got.PreferredLanguages)
	}
}
