// Package tenant maps the current browsing context to exactly one tenant
// and holds the tenant's metadata for the rest of the session.
package tenant

import "encoding/json"

// windowTitleSuffix is appended to the tenant name when branding is applied.
const windowTitleSuffix = " | EV Charging Management"

// Tenant is a customer organization resolved from a hostname, with the
// branding the admin UI applies on boot. Fields the backend sends beyond
// the known set are kept in Extra untouched.
type Tenant struct {
	Name           string `json:"name"`
	Domain         string `json:"domain"`
	Logo           string `json:"logo,omitempty"`
	PrimaryColor   string `json:"primary_color,omitempty"`
	SecondaryColor string `json:"secondary_color,omitempty"`
	IsActive       bool   `json:"is_active"`

	Extra map[string]json.RawMessage `json:"-"`
}

var knownTenantFields = map[string]struct{}{
	"is_valid":        {},
	"name":            {},
	"domain":          {},
	"logo":            {},
	"primary_color":   {},
	"secondary_color": {},
	"is_active":       {},
}

// UnmarshalJSON decodes the known fields and stashes everything else in
// Extra, so new backend fields pass through without a model change.
func (t *Tenant) UnmarshalJSON(data []byte) error {
	type alias Tenant
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for field := range knownTenantFields {
		delete(raw, field)
	}
	if len(raw) > 0 {
		decoded.Extra = raw
	}

	*t = Tenant(decoded)
	return nil
}

// WindowTitle is the document title the branding side effect sets.
func (t *Tenant) WindowTitle() string {
	return t.Name + windowTitleSuffix
}

// Brander receives the resolved tenant to apply its branding (title, theme
// colors, logo). A browser embedding mutates the document; other consumers
// may log or ignore it.
type Brander interface {
	ApplyBranding(t *Tenant)
}

// BranderFunc adapts a function to the Brander interface.
type BranderFunc func(t *Tenant)

func (f BranderFunc) ApplyBranding(t *Tenant) { f(t) }
