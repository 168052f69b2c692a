package preset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/vfx-go/engine/renderer/shader"
)

// EffectProgram is the opaque compiled-program handle the render backend
// returns from CompileEffect. The Manager never inspects it; it only stores
// it next to its preset and hands it back on activation.
type EffectProgram = any

// Backend is the subset of the render backend the preset Manager drives.
type Backend interface {
	// CompileEffect compiles a full effect source (accessor preamble already
	// prepended) and returns the opaque program handle, or an error carrying
	// the compiler diagnostic verbatim.
	//
	// Parameters:
	//   - name: a label for the program, used in GPU object labels and logs
	//   - source: the complete WGSL fragment source
	//
	// Returns:
	//   - EffectProgram: the compiled program handle
	//   - error: the compile diagnostic if compilation failed
	CompileEffect(name, source string) (EffectProgram, error)

	// SetActiveEffect selects the program bound at the next frame begin.
	// Passing nil selects the fixed passthrough program.
	//
	// Parameters:
	//   - program: the program handle to bind, or nil for passthrough
	SetActiveEffect(program EffectProgram)

	// SetCustomUniforms replaces the custom region of the per-frame effect
	// constants. The region is uploaded whole at the next frame begin and
	// immediately for live edits mid-frame.
	//
	// Parameters:
	//   - region: the packed parameter values
	SetCustomUniforms(region [shader.RegionSlots]float32)
}

// entry pairs a preset with its compiled program. Keeping both halves in one
// slice makes it impossible for the preset list and the program list to get
// out of step. The program is nil while the preset has never compiled.
type entry struct {
	preset  *Preset
	program EffectProgram
}

// pendingTrigger records a fired trigger parameter awaiting its one rendered
// frame. The preset pointer stays valid across store mutations.
type pendingTrigger struct {
	preset *Preset
	name   string
}

// Manager owns the preset store and the active-effect state. All mutation of
// presets and their parameter values goes through it, so the backend's bound
// program and uniform region always reflect the store.
type Manager interface {
	// Count returns the number of loaded presets.
	//
	// Returns:
	//   - int: the preset count
	Count() int

	// Preset returns the preset at the given index, or nil if out of range.
	// The returned preset is live; mutate it only through Manager methods.
	//
	// Parameters:
	//   - index: the preset index
	//
	// Returns:
	//   - *Preset: the preset, or nil
	Preset(index int) *Preset

	// Presets returns a copy of the preset list for read-only iteration.
	//
	// Returns:
	//   - []*Preset: the loaded presets in load order
	Presets() []*Preset

	// LoadFromFile reads, parses, packs and compiles an effect source file
	// and appends it to the store. The preset is appended even when
	// compilation fails (marked Invalid with the diagnostic retained) so the
	// author can fix it in place; an unreadable file creates no preset.
	//
	// Parameters:
	//   - path: the source file path
	//   - saved: previously persisted values keyed by parameter name, or nil
	//
	// Returns:
	//   - int: the new preset's index, or -1 on file error
	//   - error: the file read error, if any
	LoadFromFile(path string, saved map[string][]float32) (int, error)

	// LoadFromSource compiles an in-memory effect source (no backing file)
	// and appends it to the store. Compile failures still append the preset,
	// marked Invalid.
	//
	// Parameters:
	//   - name: the preset display name
	//   - source: the effect source text
	//
	// Returns:
	//   - int: the new preset's index
	LoadFromSource(name, source string) int

	// SetSource replaces a preset's source text without recompiling.
	// Call Recompile to apply it.
	//
	// Parameters:
	//   - index: the preset index
	//   - source: the new source text
	SetSource(index int, source string)

	// Recompile re-parses and recompiles the preset's current source,
	// carrying the current parameter values forward by name. On failure the
	// previous program stays in place (and bound, if active) so output does
	// not blank; the diagnostic is stored on the preset and returned.
	//
	// Parameters:
	//   - index: the preset index
	//
	// Returns:
	//   - error: the compile error, or nil
	Recompile(index int) error

	// Remove deletes the preset at the given index. If it was active the
	// passthrough program is bound; an active preset at a higher index stays
	// active at its shifted position.
	//
	// Parameters:
	//   - index: the preset index to remove
	Remove(index int)

	// Activate makes the preset at the given index the active effect: its
	// program is handed to the backend and its current parameter values are
	// packed and pushed.
	//
	// Parameters:
	//   - index: the preset index
	//
	// Returns:
	//   - error: an error if the index is out of range
	Activate(index int) error

	// ActivatePassthrough deactivates any preset and binds the fixed
	// passthrough program.
	ActivatePassthrough()

	// ActiveIndex returns the active preset's index, or -1 for passthrough.
	//
	// Returns:
	//   - int: the active index
	ActiveIndex() int

	// ActivePreset returns the active preset, or nil for passthrough.
	//
	// Returns:
	//   - *Preset: the active preset
	ActivePreset() *Preset

	// SetShortcut assigns an activation shortcut to a preset. A zero key
	// clears the shortcut.
	//
	// Parameters:
	//   - index: the preset index
	//   - key: the key code, or 0 to clear
	//   - mods: the modifier bitmask
	SetShortcut(index int, key, mods uint32)

	// HandleShortcut activates the first preset whose shortcut matches the
	// key and modifier combination.
	//
	// Parameters:
	//   - key: the pressed key code
	//   - mods: the active modifier bitmask
	//
	// Returns:
	//   - bool: true if a preset was activated
	HandleShortcut(key, mods uint32) bool

	// SetParamValue sets a parameter's current value on the given preset,
	// clamping per the declared range. If the preset is active the uniform
	// region is repacked and pushed immediately.
	//
	// Parameters:
	//   - index: the preset index
	//   - name: the parameter name
	//   - values: the new component values
	//
	// Returns:
	//   - error: an error if the preset or parameter does not exist
	SetParamValue(index int, name string, values ...float32) error

	// FireTrigger sets a trigger parameter to 1 and marks it pending so that
	// exactly one rendered frame observes the fired value; FinishFrame
	// resets it afterwards.
	//
	// Parameters:
	//   - index: the preset index
	//   - name: the trigger parameter name
	//
	// Returns:
	//   - error: an error if the preset or parameter does not exist or is not a trigger
	FireTrigger(index int, name string) error

	// ResetToDefaults copies every parameter's authored default into its
	// current value and pushes the region once if the preset is active.
	//
	// Parameters:
	//   - index: the preset index
	ResetToDefaults(index int)

	// ActiveRegion packs the active preset's current values into the custom
	// uniform region. Passthrough yields an all-zero region.
	//
	// Returns:
	//   - [shader.RegionSlots]float32: the packed region
	ActiveRegion() [shader.RegionSlots]float32

	// FinishFrame consumes pending triggers after a frame has been drawn and
	// presented: each fired trigger resets to 0 and, if it belongs to the
	// active preset, the region is re-pushed so the next frame observes 0.
	FinishFrame()

	// ScanDirectory loads every .wgsl file in the directory that is not
	// already loaded (matched by path).
	//
	// Parameters:
	//   - dir: the directory to scan (non-recursive)
	//
	// Returns:
	//   - int: the number of presets loaded
	//   - error: an error if the directory could not be read
	ScanDirectory(dir string) (int, error)

	// Restore loads persisted preset snapshots: each file-backed snapshot is
	// loaded from disk with its saved values applied by name, and its
	// shortcut re-assigned. Snapshots whose files are gone are skipped.
	//
	// Parameters:
	//   - snapshots: the persisted presets
	//
	// Returns:
	//   - int: the number of presets restored
	Restore(snapshots []Snapshot) int

	// Snapshots captures every preset's persistable state for config save.
	//
	// Returns:
	//   - []Snapshot: one snapshot per preset, in store order
	Snapshots() []Snapshot

	// SetWatchEnabled toggles hot reload of file-backed presets. Disabled
	// watchers still drain file events so none replay on re-enable.
	//
	// Parameters:
	//   - enabled: true to reload presets when their files change
	SetWatchEnabled(enabled bool)

	// CheckForChanges drains pending file-watch events and reloads changed
	// presets. Call from the tick loop; it never blocks.
	CheckForChanges()

	// Close releases the file watcher.
	//
	// Returns:
	//   - error: an error if the watcher failed to close
	Close() error
}

// manager is the implementation of the Manager interface.
type manager struct {
	mu *sync.Mutex

	backend Backend

	entries []entry
	active  int // -1 = passthrough

	pending []pendingTrigger

	watcher      *presetWatcher
	watchEnabled bool
}

var _ Manager = &manager{}

// NewManager creates a preset Manager driving the given backend. The store
// starts empty with the passthrough program active.
//
// Parameters:
//   - backend: the render backend to compile and bind programs through
//   - options: functional options to configure the manager
//
// Returns:
//   - Manager: the configured manager
func NewManager(backend Backend, options ...ManagerBuilderOption) Manager {
	m := &manager{
		mu:           &sync.Mutex{},
		backend:      backend,
		active:       -1,
		watchEnabled: true,
	}
	for _, opt := range options {
		opt(m)
	}
	m.watcher = newPresetWatcher()
	return m
}

func (m *manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *manager) Preset(index int) *Preset {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.entries) {
		return nil
	}
	return m.entries[index].preset
}

func (m *manager) Presets() []*Preset {
	m.mu.Lock()
	defer m.mu.Unlock()
	presets := make([]*Preset, len(m.entries))
	for i := range m.entries {
		presets[i] = m.entries[i].preset
	}
	return presets
}

func (m *manager) LoadFromFile(path string, saved map[string][]float32) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return -1, fmt.Errorf("failed to read effect source %s: %w", path, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p := &Preset{
		Name:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Filepath: path,
		Source:   string(data),
	}
	program := m.compileLocked(p, saved)
	index := m.addLocked(p, program)
	m.watcher.watch(path)
	return index, nil
}

func (m *manager) LoadFromSource(name, source string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := &Preset{
		Name:   name,
		Source: source,
	}
	program := m.compileLocked(p, nil)
	return m.addLocked(p, program)
}

func (m *manager) SetSource(index int, source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.entries) {
		return
	}
	m.entries[index].preset.Source = source
}

func (m *manager) Recompile(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.entries) {
		return fmt.Errorf("preset index %d out of range", index)
	}

	ent := &m.entries[index]
	// A recompile is a tuning iteration: current values survive by name.
	program := m.compileLocked(ent.preset, currentValues(ent.preset.Params))
	if program == nil {
		// Previous program stays in place so output does not blank.
		return fmt.Errorf("failed to compile %s: %s", ent.preset.Name, ent.preset.Diagnostic)
	}

	ent.program = program
	if m.active == index {
		m.backend.SetActiveEffect(program)
		m.pushRegionLocked()
	}
	return nil
}

func (m *manager) Remove(index int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.entries) {
		return
	}

	if path := m.entries[index].preset.Filepath; path != "" {
		m.watcher.unwatch(path)
	}
	m.entries = append(m.entries[:index], m.entries[index+1:]...)

	switch {
	case m.active == index:
		m.passthroughLocked()
	case m.active > index:
		m.active--
	}
}

func (m *manager) Activate(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.entries) {
		return fmt.Errorf("preset index %d out of range", index)
	}

	m.active = index
	// A never-compiled program is nil, which binds passthrough until the
	// preset compiles successfully.
	m.backend.SetActiveEffect(m.entries[index].program)
	m.pushRegionLocked()
	return nil
}

func (m *manager) ActivatePassthrough() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passthroughLocked()
}

func (m *manager) ActiveIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *manager) ActivePreset() *Preset {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active < 0 {
		return nil
	}
	return m.entries[m.active].preset
}

func (m *manager) SetShortcut(index int, key, mods uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.entries) {
		return
	}
	m.entries[index].preset.ShortcutKey = key
	m.entries[index].preset.ShortcutMods = mods
}

func (m *manager) HandleShortcut(key, mods uint32) bool {
	m.mu.Lock()
	target := -1
	for i := range m.entries {
		p := m.entries[i].preset
		if p.ShortcutKey != 0 && p.ShortcutKey == key && p.ShortcutMods == mods {
			target = i
			break
		}
	}
	m.mu.Unlock()

	if target < 0 {
		return false
	}
	return m.Activate(target) == nil
}

func (m *manager) SetParamValue(index int, name string, values ...float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.entries) {
		return fmt.Errorf("preset index %d out of range", index)
	}

	param := findParam(m.entries[index].preset, name)
	if param == nil {
		return fmt.Errorf("preset %s has no parameter %q", m.entries[index].preset.Name, name)
	}
	param.SetValue(values...)

	if m.active == index {
		m.pushRegionLocked()
	}
	return nil
}

func (m *manager) FireTrigger(index int, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.entries) {
		return fmt.Errorf("preset index %d out of range", index)
	}

	p := m.entries[index].preset
	param := findParam(p, name)
	if param == nil {
		return fmt.Errorf("preset %s has no parameter %q", p.Name, name)
	}
	if param.Kind != shader.ParamKindTrigger {
		return fmt.Errorf("parameter %q is not a trigger", name)
	}

	param.Value[0] = 1.0
	m.pending = append(m.pending, pendingTrigger{preset: p, name: name})

	if m.active == index {
		m.pushRegionLocked()
	}
	return nil
}

func (m *manager) ResetToDefaults(index int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.entries) {
		return
	}

	params := m.entries[index].preset.Params
	for i := range params {
		params[i].ResetToDefault()
	}
	if m.active == index {
		m.pushRegionLocked()
	}
}

func (m *manager) ActiveRegion() [shader.RegionSlots]float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active < 0 {
		return [shader.RegionSlots]float32{}
	}
	return shader.PackRegion(m.entries[m.active].preset.Params)
}

func (m *manager) FinishFrame() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return
	}

	activeFired := false
	for _, t := range m.pending {
		if param := findParam(t.preset, t.name); param != nil {
			param.Value[0] = 0.0
		}
		if m.active >= 0 && m.entries[m.active].preset == t.preset {
			activeFired = true
		}
	}
	m.pending = m.pending[:0]

	if activeFired {
		m.pushRegionLocked()
	}
}

func (m *manager) ScanDirectory(dir string) (int, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to scan effect directory %s: %w", dir, err)
	}

	loaded := 0
	for _, de := range dirEntries {
		if de.IsDir() || !strings.EqualFold(filepath.Ext(de.Name()), ".wgsl") {
			continue
		}
		path := filepath.Join(dir, de.Name())
		if m.hasPath(path) {
			continue
		}
		if _, err := m.LoadFromFile(path, nil); err == nil {
			loaded++
		}
	}
	return loaded, nil
}

func (m *manager) Restore(snapshots []Snapshot) int {
	restored := 0
	for _, s := range snapshots {
		if s.Filepath == "" {
			continue
		}
		index, err := m.LoadFromFile(s.Filepath, s.ParamValues)
		if err != nil {
			continue
		}
		m.SetShortcut(index, s.ShortcutKey, s.ShortcutMods)
		restored++
	}
	return restored
}

func (m *manager) Snapshots() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshots := make([]Snapshot, len(m.entries))
	for i := range m.entries {
		snapshots[i] = m.entries[i].preset.Snapshot()
	}
	return snapshots
}

func (m *manager) SetWatchEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchEnabled = enabled
}

func (m *manager) Close() error {
	return m.watcher.close()
}

// compileLocked runs the full pipeline for one preset: parse the metadata
// block, restore values by name, pack slots, generate the accessor preamble,
// and compile through the backend. The preset's Params, Valid and Diagnostic
// fields are updated in place. Returns the new program, or nil on compile
// failure. Caller holds m.mu.
func (m *manager) compileLocked(p *Preset, saved map[string][]float32) EffectProgram {
	params := shader.ParseParams(p.Source)
	restoreValues(params, saved)

	packed, diag := shader.PackParams(params)
	p.Params = packed
	p.Diagnostic = diag

	program, err := m.backend.CompileEffect(p.Name, shader.BuildAliasPreamble(packed)+p.Source)
	if err != nil {
		p.Valid = false
		if p.Diagnostic != "" {
			p.Diagnostic += "\n"
		}
		p.Diagnostic += err.Error()
		return nil
	}
	p.Valid = true
	return program
}

// addLocked appends the preset and its program as one paired entry.
// Caller holds m.mu.
func (m *manager) addLocked(p *Preset, program EffectProgram) int {
	m.entries = append(m.entries, entry{preset: p, program: program})
	return len(m.entries) - 1
}

// passthroughLocked deactivates any preset and binds the passthrough
// program with a zeroed custom region. Caller holds m.mu.
func (m *manager) passthroughLocked() {
	m.active = -1
	m.backend.SetActiveEffect(nil)
	m.backend.SetCustomUniforms([shader.RegionSlots]float32{})
}

// pushRegionLocked packs the active preset's values and pushes them to the
// backend. Caller holds m.mu.
func (m *manager) pushRegionLocked() {
	if m.active < 0 {
		return
	}
	m.backend.SetCustomUniforms(shader.PackRegion(m.entries[m.active].preset.Params))
}

// hasPath reports whether a preset backed by the given file is already loaded.
func (m *manager) hasPath(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].preset.Filepath == path {
			return true
		}
	}
	return false
}

// findParam returns the preset's parameter with the given name, or nil.
func findParam(p *Preset, name string) *shader.Param {
	for i := range p.Params {
		if p.Params[i].Name == name {
			return &p.Params[i]
		}
	}
	return nil
}
