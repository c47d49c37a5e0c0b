// Package localized models per-locale copy stored inside site configs.
package localized

import (
	"strings"

	"github.com/noah-isme/site-cms-api/pkg/jsonvalue"
)

// Locale is a supported content locale code.
type Locale string

const (
	ZhCN Locale = "zh-CN"
	En   Locale = "en"
	ZhTW Locale = "zh-TW"
)

// Supported lists the content locales in fallback order.
var Supported = []Locale{ZhCN, En, ZhTW}

// Value maps each supported locale to its text. A missing or empty entry means the locale
// is not configured; no fallback text is injected here.
type Value map[Locale]string

// IsSupported reports whether code is one of the supported locales.
func IsSupported(code string) bool {
	for _, l := range Supported {
		if string(l) == code {
			return true
		}
	}
	return false
}

// IsLocalizedShape reports whether obj looks like a localized string: every key is a
// supported locale and every value is a string. The empty object qualifies.
func IsLocalizedShape(obj *jsonvalue.Object) bool {
	if obj == nil {
		return false
	}
	for _, key := range obj.Keys() {
		if !IsSupported(key) {
			return false
		}
		v, _ := obj.Get(key)
		if _, ok := v.(string); !ok {
			return false
		}
	}
	return true
}

// Ensure normalises arbitrary JSON into a Value holding exactly the supported locales.
// Unsupported codes are dropped and non-string entries become empty.
func Ensure(raw jsonvalue.Value) Value {
	out := make(Value, len(Supported))
	obj, _ := raw.(*jsonvalue.Object)
	for _, l := range Supported {
		out[l] = ""
		if obj == nil {
			continue
		}
		if v, ok := obj.Get(string(l)); ok {
			if s, ok := v.(string); ok {
				out[l] = s
			}
		}
	}
	return out
}

// GetText returns the text for locale, falling back to the first populated locale and
// finally to fallback.
func GetText(v Value, locale Locale, fallback string) string {
	if locale != "" {
		if text := v[locale]; text != "" {
			return text
		}
	}
	for _, l := range Supported {
		if text := v[l]; text != "" {
			return text
		}
	}
	return fallback
}

// SetText returns a copy of v with locale set to text.
func SetText(v Value, locale Locale, text string) Value {
	out := make(Value, len(v)+1)
	for k, s := range v {
		out[k] = s
	}
	if IsSupported(string(locale)) {
		out[locale] = text
	}
	return out
}

// Serialize trims every entry. Empty entries are dropped unless preserveEmpty is set,
// which keeps them as explicit clears.
func Serialize(v Value, preserveEmpty bool) map[string]string {
	out := make(map[string]string, len(Supported))
	for _, l := range Supported {
		text, ok := v[l]
		if !ok && !preserveEmpty {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" && !preserveEmpty {
			continue
		}
		out[string(l)] = text
	}
	return out
}

// SerializeObject is Serialize returning an object ordered by Supported.
func SerializeObject(v Value, preserveEmpty bool) *jsonvalue.Object {
	flat := Serialize(v, preserveEmpty)
	obj := jsonvalue.NewObject()
	for _, l := range Supported {
		if text, ok := flat[string(l)]; ok {
			obj.Set(string(l), text)
		}
	}
	return obj
}

// Resolve walks value and replaces every localized leaf with its text for locale.
func Resolve(value jsonvalue.Value, locale Locale) jsonvalue.Value {
	switch node := value.(type) {
	case *jsonvalue.Object:
		if node.Len() > 0 && IsLocalizedShape(node) {
			return GetText(Ensure(node), locale, "")
		}
		out := jsonvalue.NewObject()
		for _, key := range node.Keys() {
			child, _ := node.Get(key)
			out.Set(key, Resolve(child, locale))
		}
		return out
	case jsonvalue.Array:
		out := make(jsonvalue.Array, len(node))
		for i, item := range node {
			out[i] = Resolve(item, locale)
		}
		return out
	default:
		return node
	}
}
