package language

import "strings"

type locale struct {
	code    string // BCP-47 locale as Amazon Transcribe spells it
	display string
	clm     bool // custom language model training available
}

var locales = []locale{
	{"en-US", "US English", true},
	{"en-GB", "British English", true},
	{"en-AU", "Australian English", true},
	{"en-IN", "Indian English", true},
	{"en-IE", "Irish English", false},
	{"en-NZ", "New Zealand English", false},
	{"es-US", "US Spanish", true},
	{"es-ES", "Spanish", false},
	{"de-DE", "German", true},
	{"fr-FR", "French", false},
	{"fr-CA", "Canadian French", false},
	{"it-IT", "Italian", false},
	{"pt-BR", "Brazilian Portuguese", false},
	{"ja-JP", "Japanese", true},
	{"ko-KR", "Korean", false},
	{"hi-IN", "Hindi", true},
	{"nl-NL", "Dutch", false},
	{"zh-CN", "Mandarin Chinese", false},
}

// Three-letter and word forms that some tools emit instead of ISO 639-1.
var aliases = map[string]string{
	"eng": "en", "english": "en",
	"spa": "es", "spanish": "es",
	"deu": "de", "ger": "de", "german": "de",
	"fra": "fr", "fre": "fr", "french": "fr",
	"ita": "it", "italian": "it",
	"por": "pt", "portuguese": "pt",
	"jpn": "ja", "japanese": "ja",
	"kor": "ko", "korean": "ko",
	"hin": "hi", "hindi": "hi",
	"nld": "nl", "dut": "nl", "dutch": "nl",
	"zho": "zh", "chi": "zh", "chinese": "zh",
}

var byCode map[string]*locale

func init() {
	byCode = make(map[string]*locale, len(locales))
	for i := range locales {
		l := &locales[i]
		byCode[strings.ToLower(l.code)] = l
	}
}

func lookup(code string) *locale {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
	return byCode[key]
}

// Normalize returns the canonical spelling of a known locale ("en_us" ->
// "en-US"), or the trimmed input when the locale is unknown.
func Normalize(code string) string {
	if l := lookup(code); l != nil {
		return l.code
	}
	return strings.TrimSpace(code)
}

// Known reports whether code names a supported locale.
func Known(code string) bool {
	return lookup(code) != nil
}

// SupportsCustomModels reports whether custom language models can be trained
// for the locale.
func SupportsCustomModels(code string) bool {
	l := lookup(code)
	return l != nil && l.clm
}

// ToISO2 reduces a locale, ISO 639-2 code or language word to ISO 639-1.
// Unknown input with a two letter language part passes through; anything
// else yields "".
func ToISO2(code string) string {
	code = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
	if code == "" {
		return ""
	}
	base, _, _ := strings.Cut(code, "-")
	if mapped, ok := aliases[base]; ok {
		return mapped
	}
	if len(base) == 2 {
		return base
	}
	return ""
}

// DisplayName returns a human-readable name for a locale. Unknown codes are
// returned as given.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if l := lookup(code); l != nil {
		return l.display
	}
	return strings.TrimSpace(code)
}

// CustomModelLocales lists the locales that can train custom models.
func CustomModelLocales() []string {
	var out []string
	for _, l := range locales {
		if l.clm {
			out = append(out, l.code)
		}
	}
	return out
}
