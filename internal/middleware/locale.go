package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"github.com/noah-isme/site-cms-api/pkg/localized"
)

// ContextLocaleKey is the gin context key storing the negotiated locale.
const ContextLocaleKey = "locale"

// LocaleHeader lets clients pick a locale without touching Accept-Language.
const LocaleHeader = "X-Locale"

var localeMatcher = language.NewMatcher(supportedTags())

func supportedTags() []language.Tag {
	tags := make([]language.Tag, len(localized.Supported))
	for i, l := range localized.Supported {
		tags[i] = language.Make(string(l))
	}
	return tags
}

// Locale resolves the request locale from ?locale=, X-Locale, then Accept-Language, and
// falls back to def. The result is always a supported locale.
func Locale(def localized.Locale) gin.HandlerFunc {
	if !localized.IsSupported(string(def)) {
		def = localized.ZhCN
	}
	return func(c *gin.Context) {
		locale, ok := matchLocale(c.Query("locale"))
		if !ok {
			locale, ok = matchLocale(c.GetHeader(LocaleHeader))
		}
		if !ok {
			locale, ok = matchAcceptLanguage(c.GetHeader("Accept-Language"))
		}
		if !ok {
			locale = def
		}
		c.Set(ContextLocaleKey, locale)
		c.Header("Content-Language", string(locale))
		c.Next()
	}
}

// LocaleFromContext returns the negotiated locale or def when none was set.
func LocaleFromContext(c *gin.Context, def localized.Locale) localized.Locale {
	if value, exists := c.Get(ContextLocaleKey); exists {
		if locale, ok := value.(localized.Locale); ok {
			return locale
		}
	}
	return def
}

func matchLocale(raw string) (localized.Locale, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	for _, l := range localized.Supported {
		if strings.EqualFold(raw, string(l)) {
			return l, true
		}
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return "", false
	}
	return match(tag)
}

func matchAcceptLanguage(header string) (localized.Locale, bool) {
	if strings.TrimSpace(header) == "" {
		return "", false
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return "", false
	}
	return match(tags...)
}

func match(tags ...language.Tag) (localized.Locale, bool) {
	_, index, confidence := localeMatcher.Match(tags...)
	if confidence == language.No || index < 0 || index >= len(localized.Supported) {
		return "", false
	}
	return localized.Supported[index], true
}
