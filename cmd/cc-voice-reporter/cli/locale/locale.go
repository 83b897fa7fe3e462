// Package locale resolves the target narration language: detecting it from
// the environment when not configured, and rendering a BCP-47 code into a
// human-readable name for the summarizer's system prompt. Genuinely
// out-of-scope machinery (voice selection, translation) stays out; this is
// the thin glue spec.md §1 says still has to exist at the interface.
package locale

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

// DefaultTag is used when nothing in the environment names a language.
const DefaultTag = "en"

// Detect returns a BCP-47-ish language code from the environment, checking
// LC_ALL, LC_MESSAGES, and LANG in that order (the standard POSIX locale
// precedence), then DefaultTag.
func Detect() string {
	for _, envVar := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if tag := fromEnvValue(os.Getenv(envVar)); tag != "" {
			return tag
		}
	}
	return DefaultTag
}

// fromEnvValue extracts a language tag from a POSIX locale value such as
// "en_US.UTF-8" or "fr_FR", returning "" if it names no usable language
// (e.g. "C" or "POSIX").
func fromEnvValue(value string) string {
	if value == "" || value == "C" || value == "POSIX" {
		return ""
	}
	base := value
	if idx := strings.IndexAny(base, ".@"); idx >= 0 {
		base = base[:idx]
	}
	base = strings.ReplaceAll(base, "_", "-")
	if base == "" {
		return ""
	}
	if _, err := language.Parse(base); err != nil {
		return ""
	}
	return base
}

// DisplayName renders tag as a readable English name (e.g. "French" for
// "fr"), falling back to the tag itself if it cannot be parsed.
func DisplayName(tag string) string {
	parsed, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	name := display(parsed)
	if name == "" {
		return tag
	}
	return name
}

func display(tag language.Tag) string {
	base, confidence := tag.Base()
	if confidence == language.No {
		return ""
	}
	return languageNames[base.String()]
}

// languageNames covers the common cases; x/text's full display.Tags
// catalog is unnecessarily heavy for a handful of narration languages, so
// this package maps the codes most likely to appear in LANG/LC_ALL values
// on developer machines, falling back to the raw tag for anything else.
var languageNames = map[string]string{
	"en": "English",
	"fr": "French",
	"de": "German",
	"es": "Spanish",
	"it": "Italian",
	"pt": "Portuguese",
	"ja": "Japanese",
	"ko": "Korean",
	"zh": "Chinese",
	"ru": "Russian",
	"nl": "Dutch",
	"sv": "Swedish",
	"pl": "Polish",
	"tr": "Turkish",
	"vi": "Vietnamese",
	"th": "Thai",
	"ar": "Arabic",
	"hi": "Hindi",
}

// Phrases holds the handful of fixed notification strings the daemon
// orchestrator speaks directly rather than through the LLM summarizer:
// spec.md §4.5's table marks the ask-question suffix, the
// permission-required phrase, the awaiting-input phrase, and the
// summary-failed template all "localized", and the speech queue's
// project-switch announcement is localized the same way. Unlike narration
// text (which the summarizer's system prompt asks the LLM to produce in the
// resolved language via DisplayName), these five never reach the LLM, so
// they need their own small per-language table.
type Phrases struct {
	AwaitingConfirmation string // appended after an AskUserQuestion's question text
	PermissionNeeded     string
	AwaitingInput        string
	SummaryFailed        string // formatted with the pending event count via fmt.Sprintf
	ProjectPlaying       string // formatted with the project's display name via fmt.Sprintf, spoken on a project switch
}

// phraseTable covers the languages most likely to appear in LANG/LC_ALL
// values on developer machines; PhrasesFor falls back to English for
// anything else, matching languageNames' "raw tag for anything else"
// fallback philosophy.
var phraseTable = map[string]Phrases{
	"en": {
		AwaitingConfirmation: "Awaiting confirmation",
		PermissionNeeded:     "permission required",
		AwaitingInput:        "awaiting input",
		SummaryFailed:        "summary failed (%d events)",
		ProjectPlaying:       "%s is now playing",
	},
	"fr": {
		AwaitingConfirmation: "En attente de confirmation",
		PermissionNeeded:     "autorisation requise",
		AwaitingInput:        "en attente d'une saisie",
		SummaryFailed:        "échec du résumé (%d événements)",
		ProjectPlaying:       "%s est maintenant actif",
	},
	"de": {
		AwaitingConfirmation: "Wartet auf Bestätigung",
		PermissionNeeded:     "Berechtigung erforderlich",
		AwaitingInput:        "wartet auf Eingabe",
		SummaryFailed:        "Zusammenfassung fehlgeschlagen (%d Ereignisse)",
		ProjectPlaying:       "%s ist jetzt aktiv",
	},
	"es": {
		AwaitingConfirmation: "Esperando confirmación",
		PermissionNeeded:     "se requiere permiso",
		AwaitingInput:        "esperando entrada",
		SummaryFailed:        "resumen fallido (%d eventos)",
		ProjectPlaying:       "%s está reproduciendo ahora",
	},
	"it": {
		AwaitingConfirmation: "In attesa di conferma",
		PermissionNeeded:     "autorizzazione richiesta",
		AwaitingInput:        "in attesa di input",
		SummaryFailed:        "riepilogo non riuscito (%d eventi)",
		ProjectPlaying:       "%s è ora in riproduzione",
	},
	"pt": {
		AwaitingConfirmation: "Aguardando confirmação",
		PermissionNeeded:     "permissão necessária",
		AwaitingInput:        "aguardando entrada",
		SummaryFailed:        "falha no resumo (%d eventos)",
		ProjectPlaying:       "%s está em reprodução agora",
	},
	"ja": {
		AwaitingConfirmation: "確認待ち",
		PermissionNeeded:     "許可が必要です",
		AwaitingInput:        "入力待ち",
		SummaryFailed:        "要約に失敗しました(%dイベント)",
		ProjectPlaying:       "%sを再生中です",
	},
	"zh": {
		AwaitingConfirmation: "等待确认",
		PermissionNeeded:     "需要授权",
		AwaitingInput:        "等待输入",
		SummaryFailed:        "摘要失败(%d 个事件)",
		ProjectPlaying:       "正在播报%s",
	},
	"ru": {
		AwaitingConfirmation: "Ожидание подтверждения",
		PermissionNeeded:     "требуется разрешение",
		AwaitingInput:        "ожидание ввода",
		SummaryFailed:        "не удалось создать сводку (%d событий)",
		ProjectPlaying:       "сейчас озвучивается %s",
	},
}

// PhrasesFor returns the phraseTable entry matching tag's base language,
// falling back to English when tag doesn't parse or names a language
// outside the table.
func PhrasesFor(tag string) Phrases {
	parsed, err := language.Parse(tag)
	if err != nil {
		return phraseTable["en"]
	}
	base, confidence := parsed.Base()
	if confidence == language.No {
		return phraseTable["en"]
	}
	if p, ok := phraseTable[base.String()]; ok {
		return p
	}
	return phraseTable["en"]
}

// MatchStrings picks the best of the supported tags for a requested
// language code, using x/text's matcher so regional variants (e.g.
// "fr-CA") fall back sensibly to their base language.
func MatchStrings(requested string, supported ...string) string {
	tags := make([]language.Tag, 0, len(supported))
	for _, s := range supported {
		if t, err := language.Parse(s); err == nil {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		return requested
	}
	matcher := language.NewMatcher(tags)
	_, index, _ := matcher.Match(language.Make(requested))
	return supported[index]
}
