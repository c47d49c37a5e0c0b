package visibility

import (
	"sort"

	"github.com/noah-isme/site-cms-api/pkg/jsonvalue"
)

// FromValue reads the persisted shape {pages:{p:{hidden,sections,fields}}}. Entries of the
// wrong type are ignored, so a damaged record degrades to "visible".
func FromValue(raw *jsonvalue.Object) *Config {
	cfg := New()
	if raw == nil {
		return cfg
	}
	pagesRaw, _ := raw.Get("pages")
	pages, ok := pagesRaw.(*jsonvalue.Object)
	if !ok {
		return cfg
	}
	for _, key := range pages.Keys() {
		entryRaw, _ := pages.Get(key)
		entry, ok := entryRaw.(*jsonvalue.Object)
		if !ok {
			continue
		}
		page := newPage()
		if hidden, ok := entry.Get("hidden"); ok {
			page.Hidden, _ = hidden.(bool)
		}
		readFlags(entry, "sections", page.Sections)
		readFlags(entry, "fields", page.Fields)
		cfg.Pages[key] = page
	}
	return cfg
}

func readFlags(entry *jsonvalue.Object, name string, into map[string]bool) {
	raw, _ := entry.Get(name)
	obj, ok := raw.(*jsonvalue.Object)
	if !ok {
		return
	}
	for _, key := range obj.Keys() {
		v, _ := obj.Get(key)
		if flag, ok := v.(bool); ok {
			into[key] = flag
		}
	}
}

// ToValue renders cfg in the persisted shape with keys sorted.
func ToValue(cfg *Config) *jsonvalue.Object {
	pages := jsonvalue.NewObject()
	if cfg != nil {
		for _, key := range sortedKeys(cfg.Pages) {
			page := cfg.Pages[key]
			if page == nil {
				continue
			}
			entry := jsonvalue.NewObject()
			entry.Set("hidden", page.Hidden)
			entry.Set("sections", flagsObject(page.Sections))
			entry.Set("fields", flagsObject(page.Fields))
			pages.Set(key, entry)
		}
	}
	out := jsonvalue.NewObject()
	out.Set("pages", pages)
	return out
}

func flagsObject(flags map[string]bool) *jsonvalue.Object {
	obj := jsonvalue.NewObject()
	keys := make([]string, 0, len(flags))
	for k := range flags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		obj.Set(k, flags[k])
	}
	return obj
}

func sortedKeys(pages map[string]*Page) []string {
	keys := make([]string, 0, len(pages))
	for k := range pages {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
