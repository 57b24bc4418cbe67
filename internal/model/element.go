package model

// Element represents a UI element in the accessibility tree of the
// application under test. Trees are re-read on every poll; an Element is a
// point-in-time snapshot, never a live handle.
type Element struct {
	ID           int       `yaml:"id"                      json:"id"`                      // Sequential ID within one read
	AutomationID string    `yaml:"automation_id,omitempty" json:"automation_id,omitempty"` // Stable identifier assigned by the application
	Kind         Kind      `yaml:"kind"                    json:"kind"`                    // Normalized control kind
	Class        string    `yaml:"class,omitempty"         json:"class,omitempty"`         // Toolkit class/category tag
	Name         string    `yaml:"name,omitempty"          json:"name,omitempty"`          // Visible label / title
	Value        string    `yaml:"value,omitempty"         json:"value,omitempty"`         // Current value
	Bounds       [4]int    `yaml:"bounds"                  json:"bounds"`                  // [x, y, width, height]
	Enabled      *bool     `yaml:"enabled,omitempty"       json:"enabled,omitempty"`       // nil or true = enabled (omit); false = disabled
	Offscreen    bool      `yaml:"offscreen,omitempty"     json:"offscreen,omitempty"`     // Scrolled out of view or hidden
	Focused      bool      `yaml:"focused,omitempty"       json:"focused,omitempty"`       // Has keyboard focus
	Children     []Element `yaml:"children,omitempty"      json:"children,omitempty"`
}

// IsEnabled reports whether the element accepts input. A nil Enabled flag
// means the toolkit did not report the attribute, which is treated as enabled.
func (e Element) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

// Clickable reports whether the element is a sensible click target: enabled,
// on screen, and with a non-empty bounding rectangle.
func (e Element) Clickable() bool {
	return e.IsEnabled() && !e.Offscreen && e.Bounds[2] > 0 && e.Bounds[3] > 0
}
