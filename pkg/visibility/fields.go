package visibility

import (
	"sort"
	"strings"

	"github.com/ettle/strcase"

	"github.com/noah-isme/site-cms-api/pkg/jsonvalue"
	"github.com/noah-isme/site-cms-api/pkg/localized"
)

// Category buckets fields for batch show/hide actions.
type Category string

const (
	CategoryCopy     Category = "copy"
	CategoryButton   Category = "button"
	CategoryCarousel Category = "carousel"
	CategoryAll      Category = "all"
	CategoryNone     Category = ""
)

// FieldType is the declared type of a collected field.
type FieldType string

const (
	FieldString    FieldType = "string"
	FieldNumber    FieldType = "number"
	FieldBoolean   FieldType = "boolean"
	FieldNull      FieldType = "null"
	FieldArray     FieldType = "array"
	FieldLocalized FieldType = "localized"
)

// Field is one hideable leaf of a site config.
type Field struct {
	Path     string    `json:"path"`
	Type     FieldType `json:"type"`
	Category Category  `json:"category,omitempty"`
}

var (
	carouselTokens = tokenSet("carousel", "slide", "slides", "slider", "banner", "banners", "gallery", "swiper")
	buttonTokens   = tokenSet("button", "buttons", "btn", "cta", "link", "links", "href", "action")
	copyTokens     = tokenSet("title", "subtitle", "heading", "headline", "description", "desc", "text", "copy", "label", "body", "summary", "content", "caption", "intro", "tagline")
)

func tokenSet(tokens ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		out[t] = struct{}{}
	}
	return out
}

// ClassifyCategory buckets a field by its dotted path and type. Carousel wins over button,
// button over copy; text fields with no recognised token fall back to copy.
func ClassifyCategory(path string, fieldType FieldType) Category {
	tokens := pathTokens(path)
	switch {
	case hasAny(tokens, carouselTokens):
		return CategoryCarousel
	case hasAny(tokens, buttonTokens):
		return CategoryButton
	case hasAny(tokens, copyTokens):
		return CategoryCopy
	case fieldType == FieldString || fieldType == FieldLocalized:
		return CategoryCopy
	default:
		return CategoryNone
	}
}

func pathTokens(path string) []string {
	var tokens []string
	for _, segment := range strings.Split(path, ".") {
		for _, token := range strings.Split(strcase.ToSnake(segment), "_") {
			if token != "" {
				tokens = append(tokens, token)
			}
		}
	}
	return tokens
}

func hasAny(tokens []string, set map[string]struct{}) bool {
	for _, t := range tokens {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

// CollectFields lists the hideable fields of a site config in document order. Objects are
// walked recursively; localized values and arrays count as single fields; _meta is skipped.
func CollectFields(root *jsonvalue.Object) []Field {
	var fields []Field
	collect(root, "", &fields)
	return fields
}

func collect(obj *jsonvalue.Object, prefix string, out *[]Field) {
	if obj == nil {
		return
	}
	for _, key := range obj.Keys() {
		if prefix == "" && key == "_meta" {
			continue
		}
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		value, _ := obj.Get(key)
		if child, ok := value.(*jsonvalue.Object); ok && !(child.Len() > 0 && localized.IsLocalizedShape(child)) {
			collect(child, path, out)
			continue
		}
		fieldType := typeOf(value)
		*out = append(*out, Field{Path: path, Type: fieldType, Category: ClassifyCategory(path, fieldType)})
	}
}

func typeOf(value jsonvalue.Value) FieldType {
	switch jsonvalue.KindOf(value) {
	case jsonvalue.KindString:
		return FieldString
	case jsonvalue.KindNumber:
		return FieldNumber
	case jsonvalue.KindBoolean:
		return FieldBoolean
	case jsonvalue.KindArray:
		return FieldArray
	case jsonvalue.KindObject:
		return FieldLocalized
	default:
		return FieldNull
	}
}

// SelectCategory returns the sorted paths of fields in category; CategoryAll selects
// every field.
func SelectCategory(fields []Field, category Category) []string {
	paths := make([]string, 0, len(fields))
	for _, f := range fields {
		if category == CategoryAll || f.Category == category {
			paths = append(paths, f.Path)
		}
	}
	sort.Strings(paths)
	return paths
}

// ParseCategory validates a category name.
func ParseCategory(raw string) (Category, bool) {
	switch c := Category(strings.ToLower(strings.TrimSpace(raw))); c {
	case CategoryCopy, CategoryButton, CategoryCarousel, CategoryAll:
		return c, true
	default:
		return CategoryNone, false
	}
}
