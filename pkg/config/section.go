package config

// Section is one independently validated block of settings stored under its
// ID in the config file.
type Section interface {
	// ID is the key the section is stored under.
	ID() string

	// Title is a short human readable name.
	Title() string

	// Description explains what the section controls.
	Description() string

	// Data returns the section as a JSON-friendly map.
	Data() map[string]interface{}

	// SetData applies stored values. Unknown keys are ignored.
	SetData(data map[string]interface{}) error

	// Validate reports whether the current values are usable.
	Validate() error

	// Reset restores defaults.
	Reset()
}
