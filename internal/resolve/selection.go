package resolve

import (
	"strings"

	"golang.org/x/text/language"

	"mk4/internal/domain"
)

// MKV files commonly tag tracks with ISO 639-2 bibliographic codes,
// which x/text does not parse. Map them to terminology codes first.
var iso639BtoT = map[string]string{
	"alb": "sqi",
	"arm": "hye",
	"baq": "eus",
	"bur": "mya",
	"chi": "zho",
	"cze": "ces",
	"dut": "nld",
	"fre": "fra",
	"geo": "kat",
	"ger": "deu",
	"gre": "ell",
	"ice": "isl",
	"mac": "mkd",
	"may": "msa",
	"per": "fas",
	"rum": "ron",
	"slo": "slk",
	"tib": "bod",
	"wel": "cym",
}

// LanguageMatches reports whether a track language tag and a preferred
// language refer to the same base language. Tags that fail to parse
// fall back to case-insensitive equality.
func LanguageMatches(trackLang, preferred string) bool {
	track := strings.ToLower(strings.TrimSpace(trackLang))
	pref := strings.ToLower(strings.TrimSpace(preferred))
	if track == "" || pref == "" {
		return false
	}
	if track == pref {
		return true
	}

	trackTag, okTrack := parseTag(track)
	prefTag, okPref := parseTag(pref)
	if !okTrack || !okPref {
		return false
	}
	trackBase, _ := trackTag.Base()
	prefBase, _ := prefTag.Base()
	return trackBase == prefBase
}

func parseTag(s string) (language.Tag, bool) {
	if t, ok := iso639BtoT[s]; ok {
		s = t
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, false
	}
	return tag, true
}

// SelectSubtitle picks the subtitle track to burn in. An explicit
// request is validated against the probed list and falls back to the
// default policy when absent. The default policy walks the preference
// list in order, then takes the first subtitle track, then none.
func SelectSubtitle(file domain.MediaFile, opts Options) (int, *domain.InvalidTrackError) {
	if opts.NoSubtitles {
		return domain.NoSubtitle, nil
	}

	var invalid *domain.InvalidTrackError
	if opts.SubtitleIndex != AutoTrack {
		if hasSubtitleIndex(file, opts.SubtitleIndex) {
			return opts.SubtitleIndex, nil
		}
		invalid = &domain.InvalidTrackError{
			Path:  file.Path,
			Kind:  "subtitle",
			Index: opts.SubtitleIndex,
			Count: len(file.Subtitles),
		}
	}

	for _, pref := range opts.PreferredLanguages {
		for _, track := range file.Subtitles {
			if LanguageMatches(track.Language, pref) {
				return track.Index, invalid
			}
		}
	}
	if len(file.Subtitles) > 0 {
		return file.Subtitles[0].Index, invalid
	}
	return domain.NoSubtitle, invalid
}

// SelectAudio picks the audio track. An explicit request is validated
// and falls back to the default policy when absent. The default policy
// prefers a language match and otherwise takes the first track.
func SelectAudio(file domain.MediaFile, opts Options) (int, *domain.InvalidTrackError) {
	var invalid *domain.InvalidTrackError
	if opts.AudioIndex != AutoTrack {
		if hasAudioIndex(file, opts.AudioIndex) {
			return opts.AudioIndex, nil
		}
		invalid = &domain.InvalidTrackError{
			Path:  file.Path,
			Kind:  "audio",
			Index: opts.AudioIndex,
			Count: len(file.Audio),
		}
	}

	for _, pref := range opts.PreferredLanguages {
		for _, track := range file.Audio {
			if LanguageMatches(track.Language, pref) {
				return track.Index, invalid
			}
		}
	}
	// First audio track, also the degraded default when the probe
	// yielded no descriptors.
	return 0, invalid
}

func hasSubtitleIndex(file domain.MediaFile, index int) bool {
	for _, track := range file.Subtitles {
		if track.Index == index {
			return true
		}
	}
	return false
}

func hasAudioIndex(file domain.MediaFile, index int) bool {
	for _, track := range file.Audio {
		if track.Index == index {
			return true
		}
	}
	return false
}
