// Package lang defines the languages veritas answers in and the localized
// strings shown alongside model output.
package lang

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Language is a supported output language.
type Language string

const (
	English Language = "en"
	Russian Language = "ru"

	Default = English
)

var (
	supported = []language.Tag{language.English, language.Russian}
	matcher   = language.NewMatcher(supported)
)

// Supported returns every supported language, default first.
func Supported() []Language {
	return []Language{English, Russian}
}

// Parse maps a BCP-47 tag or Accept-Language style list to a supported
// language. Anything unrecognized yields English.
func Parse(s string) Language {
	if s == "" {
		return Default
	}
	tags, _, err := language.ParseAcceptLanguage(s)
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default
	}
	return fromTag(supported[idx])
}

func fromTag(t language.Tag) Language {
	if t == language.Russian {
		return Russian
	}
	return English
}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	return l == English || l == Russian
}

// Tag returns the x/text tag for l.
func (l Language) Tag() language.Tag {
	if l == Russian {
		return language.Russian
	}
	return language.English
}

// Name returns the English name of the language, as used in prompts.
func (l Language) Name() string {
	if l == Russian {
		return "Russian"
	}
	return "English"
}

// String implements fmt.Stringer.
func (l Language) String() string {
	if !l.Valid() {
		return string(Default)
	}
	return string(l)
}

// Text returns the localized form of key. Keys are the English strings below.
func (l Language) Text(key string) string {
	p, ok := printers[l]
	if !ok {
		p = printers[Default]
	}
	return p.Sprintf(key)
}

// Message keys. The English text is the key itself.
const (
	ImpactFallback    = "Could not assess impact."
	WebSource         = "Web Source"
	MapsSource        = "Google Maps Location"
	ViralityFailed    = "Analysis failed"
	AnalysisError     = "Analysis error. Please try again."
	ChatGreeting      = "Hello! I'm Veritas Assistant. Paste a claim you've seen online or ask me how to tell fact from fiction."
	ChatError         = "Sorry, I couldn't get an answer right now. Please try again."
	ChatSystemPersona = "You are 'Veritas Assistant', an expert in media literacy, fact-checking, and digital safety. Your goal is to help users identify fake news, explain logical fallacies, and teach critical thinking. Be concise, scientific, yet accessible. Answer in English."
)

var printers = func() map[Language]*message.Printer {
	cat := buildCatalog()
	m := make(map[Language]*message.Printer, len(supported))
	for _, l := range Supported() {
		m[l] = message.NewPrinter(l.Tag(), message.Catalog(cat))
	}
	return m
}()

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	ru := map[string]string{
		ImpactFallback:    "Не удалось оценить влияние.",
		WebSource:         "Веб-источник",
		MapsSource:        "Локация Google Maps",
		ViralityFailed:    "Анализ не удался",
		AnalysisError:     "Ошибка анализа. Пожалуйста, попробуйте снова.",
		ChatGreeting:      "Здравствуйте! Я Veritas Assistant. Вставьте утверждение, которое вы видели в сети, или спросите, как отличить факт от вымысла.",
		ChatError:         "Извините, сейчас не удалось получить ответ. Пожалуйста, попробуйте снова.",
		ChatSystemPersona: "Вы — 'Veritas Assistant', эксперт по медиаграмотности, проверке фактов и цифровой безопасности. Ваша цель — помогать пользователям выявлять фейковые новости, объяснять логические ошибки и учить критическому мышлению. Будьте кратки, научны, но доступны. Отвечайте на русском языке.",
	}
	for key, val := range ru {
		_ = b.SetString(language.English, key, key)
		_ = b.SetString(language.Russian, key, val)
	}
	return b
}
