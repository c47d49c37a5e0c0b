// Package visibility models the page → section → field hide overrides of the public site.
// Overrides are sparse: a missing entry at any level means visible. The package performs no
// authorization; callers gate mutations.
package visibility

// Page holds the overrides of one public page.
type Page struct {
	Hidden   bool            `json:"hidden"`
	Sections map[string]bool `json:"sections"`
	Fields   map[string]bool `json:"fields"`
}

// Config is the global visibility record.
type Config struct {
	Pages map[string]*Page `json:"pages"`
}

// New returns an empty config.
func New() *Config {
	return &Config{Pages: map[string]*Page{}}
}

func newPage() *Page {
	return &Page{Sections: map[string]bool{}, Fields: map[string]bool{}}
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := New()
	if c == nil {
		return out
	}
	for key, page := range c.Pages {
		if page == nil {
			continue
		}
		cp := newPage()
		cp.Hidden = page.Hidden
		for k, v := range page.Sections {
			cp.Sections[k] = v
		}
		for k, v := range page.Fields {
			cp.Fields[k] = v
		}
		out.Pages[key] = cp
	}
	return out
}

// Page returns the overrides of pageKey, or nil when none exist.
func (c *Config) Page(pageKey string) *Page {
	if c == nil || c.Pages == nil {
		return nil
	}
	return c.Pages[pageKey]
}

func (c *Config) ensurePage(pageKey string) *Page {
	if c.Pages == nil {
		c.Pages = map[string]*Page{}
	}
	page := c.Pages[pageKey]
	if page == nil {
		page = newPage()
		c.Pages[pageKey] = page
	}
	if page.Sections == nil {
		page.Sections = map[string]bool{}
	}
	if page.Fields == nil {
		page.Fields = map[string]bool{}
	}
	return page
}

// TogglePage flips the page's hidden flag and returns the new state. Section and field
// overrides are left in place.
func (c *Config) TogglePage(pageKey string) bool {
	page := c.ensurePage(pageKey)
	page.Hidden = !page.Hidden
	return page.Hidden
}

// ToggleSection flips a section override and returns the new state.
func (c *Config) ToggleSection(pageKey, sectionKey string) bool {
	page := c.ensurePage(pageKey)
	page.Sections[sectionKey] = !page.Sections[sectionKey]
	return page.Sections[sectionKey]
}

// ToggleField flips a field override and returns the new state.
func (c *Config) ToggleField(pageKey, fieldPath string) bool {
	page := c.ensurePage(pageKey)
	page.Fields[fieldPath] = !page.Fields[fieldPath]
	return page.Fields[fieldPath]
}

// SetFieldsVisibility sets every path to hidden.
func (c *Config) SetFieldsVisibility(pageKey string, paths []string, hidden bool) {
	page := c.ensurePage(pageKey)
	for _, path := range paths {
		if path == "" {
			continue
		}
		page.Fields[path] = hidden
	}
}

// IsVisible resolves visibility with page, then section, then field precedence. Empty
// sectionKey or fieldPath skip that level.
func (c *Config) IsVisible(pageKey, sectionKey, fieldPath string) bool {
	page := c.Page(pageKey)
	if page == nil {
		return true
	}
	if page.Hidden {
		return false
	}
	if sectionKey != "" && page.Sections[sectionKey] {
		return false
	}
	if fieldPath != "" && page.Fields[fieldPath] {
		return false
	}
	return true
}
