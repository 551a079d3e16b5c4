package i18n

import (
	"embed"
	"encoding/json"
	"sync"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

var (
	bundle   *goi18n.Bundle
	once     sync.Once
	fallback = "en"
)

// Init loads the embedded locales. Safe to call more than once.
func Init() {
	once.Do(func() {
		bundle = goi18n.NewBundle(language.English)
		bundle.RegisterUnmarshalFunc("json", json.Unmarshal)
		for _, file := range []string{"locales/active.en.json", "locales/active.es.json"} {
			if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
				panic(err)
			}
		}
	})
}

// Load adds an extra message file from disk, overriding embedded messages with the same ID.
func Load(path string) error {
	Init()
	_, err := bundle.LoadMessageFile(path)
	return err
}

// SetDefaultLanguage sets the language used when none of the requested ones is supported.
func SetDefaultLanguage(lang string) {
	if lang != "" {
		fallback = lang
	}
}

// Localize renders messageID in the first supported language of langs.
// Unknown IDs fall back to the ID itself so callers always get a message.
func Localize(messageID string, data map[string]interface{}, langs ...string) string {
	Init()
	localizer := goi18n.NewLocalizer(bundle, append(langs, fallback)...)
	msg, err := localizer.Localize(&goi18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID
	}
	return msg
}
