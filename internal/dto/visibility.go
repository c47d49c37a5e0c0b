package dto

import "github.com/noah-isme/site-cms-api/pkg/visibility"

// ToggleFieldRequest flips one field override.
type ToggleFieldRequest struct {
	Path string `json:"path" validate:"required,max=512"`
}

// SetFieldsRequest sets the same hidden flag on several fields.
type SetFieldsRequest struct {
	Paths  []string `json:"paths" validate:"required,min=1,dive,required,max=512"`
	Hidden bool     `json:"hidden"`
}

// SetCategoryRequest hides or shows every field of a category on a page.
type SetCategoryRequest struct {
	Hidden    bool   `json:"hidden"`
	ConfigKey string `json:"config_key" validate:"omitempty,max=128"`
}

// ToggleResult reports the new state of a toggled override.
type ToggleResult struct {
	Page       string             `json:"page"`
	Section    string             `json:"section,omitempty"`
	Field      string             `json:"field,omitempty"`
	Hidden     bool               `json:"hidden"`
	Visibility *visibility.Config `json:"visibility"`
}

// CategoryResult reports which fields a category action touched.
type CategoryResult struct {
	Page       string             `json:"page"`
	Category   string             `json:"category"`
	Hidden     bool               `json:"hidden"`
	Paths      []string           `json:"paths"`
	Visibility *visibility.Config `json:"visibility"`
}

// VisibilityField is one collected field of a page config with its override.
type VisibilityField struct {
	Path     string `json:"path"`
	Type     string `json:"type"`
	Category string `json:"category,omitempty"`
	Hidden   bool   `json:"hidden"`
}

// VisibilityResolveQuery addresses a node on the public site.
type VisibilityResolveQuery struct {
	Page    string `form:"page" validate:"required,max=128"`
	Section string `form:"section" validate:"max=128"`
	Field   string `form:"field" validate:"max=512"`
}

// VisibilityResolveResult answers a resolve query.
type VisibilityResolveResult struct {
	Page    string `json:"page"`
	Section string `json:"section,omitempty"`
	Field   string `json:"field,omitempty"`
	Visible bool   `json:"visible"`
}
