package preset

// ManagerBuilderOption is a functional option for configuring a Manager.
// Use the With* functions to create options that are applied directly to the
// manager instance.
type ManagerBuilderOption func(*manager)

// WithWatchEnabled enables or disables hot reload of file-backed presets at
// construction time. Hot reload is enabled by default.
//
// Parameters:
//   - enabled: true to reload presets when their source files change
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithWatchEnabled(enabled bool) ManagerBuilderOption {
	return func(m *manager) {
		m.watchEnabled = enabled
	}
}
