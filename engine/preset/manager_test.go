package preset_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/vfx-go/engine/preset"
	"github.com/Carmen-Shannon/vfx-go/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend is an in-memory Backend: compiles to string handles, fails on
// sources containing "broken_symbol", and records every bind and region push.
type fakeBackend struct {
	compiles int
	sources  []string
	active   preset.EffectProgram
	binds    []preset.EffectProgram
	regions  [][shader.RegionSlots]float32
}

func (b *fakeBackend) CompileEffect(name, source string) (preset.EffectProgram, error) {
	if strings.Contains(source, "broken_symbol") {
		return nil, errors.New("error: unknown identifier 'broken_symbol'")
	}
	b.compiles++
	b.sources = append(b.sources, source)
	return fmt.Sprintf("prog-%d", b.compiles), nil
}

func (b *fakeBackend) SetActiveEffect(program preset.EffectProgram) {
	b.active = program
	b.binds = append(b.binds, program)
}

func (b *fakeBackend) SetCustomUniforms(region [shader.RegionSlots]float32) {
	b.regions = append(b.regions, region)
}

func (b *fakeBackend) lastRegion(t *testing.T) [shader.RegionSlots]float32 {
	t.Helper()
	require.NotEmpty(t, b.regions)
	return b.regions[len(b.regions)-1]
}

const effectBody = `
@fragment
fn main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
	return vec4<f32>(uv, 0.0, 1.0);
}
`

func sourceWithInputs(inputs string) string {
	return "/*{\n\t\"INPUTS\": [" + inputs + "]\n}*/\n" + effectBody
}

func writeEffect(t *testing.T, dir, name, source string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

func TestLoadFromFileMissing(t *testing.T) {
	m := preset.NewManager(&fakeBackend{})
	defer m.Close()

	index, err := m.LoadFromFile(filepath.Join(t.TempDir(), "nope.wgsl"), nil)
	assert.Error(t, err)
	assert.Equal(t, -1, index)
	assert.Equal(t, 0, m.Count())
}

func TestLoadFromSourceCompileFailureKeepsPreset(t *testing.T) {
	m := preset.NewManager(&fakeBackend{})
	defer m.Close()

	index := m.LoadFromSource("bad", sourceWithInputs("")+"\nfn f() -> f32 { return broken_symbol; }")
	require.Equal(t, 0, index)

	p := m.Preset(index)
	require.NotNil(t, p)
	assert.False(t, p.Valid)
	assert.Contains(t, p.Diagnostic, "broken_symbol")
}

func TestStoreStaysPairedAcrossMutation(t *testing.T) {
	b := &fakeBackend{}
	m := preset.NewManager(b)
	defer m.Close()

	for i := 0; i < 3; i++ {
		m.LoadFromSource(fmt.Sprintf("fx%d", i), sourceWithInputs(""))
	}
	require.Equal(t, 3, m.Count())

	m.Remove(1)
	assert.Equal(t, 2, m.Count())
	require.NoError(t, m.Recompile(0))
	require.NoError(t, m.Recompile(1))

	// Every index below Count resolves to a preset, and activating each one
	// binds a compiled program.
	for i := 0; i < m.Count(); i++ {
		require.NotNil(t, m.Preset(i))
		require.NoError(t, m.Activate(i))
		assert.NotNil(t, b.active)
	}
}

func TestRecompilePreservesValues(t *testing.T) {
	b := &fakeBackend{}
	m := preset.NewManager(b)
	defer m.Close()

	src := sourceWithInputs(`{"NAME": "amount", "TYPE": "float", "DEFAULT": 0.2, "MAX": 1.0}`)
	index := m.LoadFromSource("fx", src)
	require.NoError(t, m.SetParamValue(index, "amount", 0.9))

	// Changing only a comment must not reset the tuned value.
	m.SetSource(index, src+"\n// tweaked\n")
	require.NoError(t, m.Recompile(index))

	p := m.Preset(index)
	require.Len(t, p.Params, 1)
	assert.Equal(t, float32(0.9), p.Params[0].Value[0])
}

func TestRecompileFailureKeepsPreviousProgramBound(t *testing.T) {
	b := &fakeBackend{}
	m := preset.NewManager(b)
	defer m.Close()

	index := m.LoadFromSource("fx", sourceWithInputs(""))
	require.NoError(t, m.Activate(index))
	good := b.active
	require.NotNil(t, good)

	m.SetSource(index, effectBody+"\nfn f() -> f32 { return broken_symbol; }")
	err := m.Recompile(index)
	require.Error(t, err)

	// Output does not blank: the last good program stays bound.
	assert.Equal(t, good, b.active)
	assert.False(t, m.Preset(index).Valid)
	assert.Contains(t, m.Preset(index).Diagnostic, "broken_symbol")
}

func TestTruncationDiagnosticSurvivesSuccessfulCompile(t *testing.T) {
	var inputs []string
	for i := 0; i < 5; i++ {
		inputs = append(inputs, fmt.Sprintf(`{"NAME": "col%d", "TYPE": "color"}`, i))
	}
	m := preset.NewManager(&fakeBackend{})
	defer m.Close()

	index := m.LoadFromSource("fx", sourceWithInputs(strings.Join(inputs, ",")))
	p := m.Preset(index)
	assert.True(t, p.Valid)
	assert.Len(t, p.Params, 4)
	assert.Contains(t, p.Diagnostic, "col4")
}

func TestTriggerObservedForExactlyOneFrame(t *testing.T) {
	b := &fakeBackend{}
	m := preset.NewManager(b)
	defer m.Close()

	index := m.LoadFromSource("fx", sourceWithInputs(`{"NAME": "flash", "TYPE": "event"}`))
	require.NoError(t, m.Activate(index))

	require.NoError(t, m.FireTrigger(index, "flash"))
	assert.Equal(t, float32(1), b.lastRegion(t)[0], "first frame observes the fired trigger")

	// Frame 1 drawn and presented.
	m.FinishFrame()
	assert.Equal(t, float32(0), b.lastRegion(t)[0], "second frame observes the reset")

	// No further pushes without another fire.
	pushes := len(b.regions)
	m.FinishFrame()
	assert.Equal(t, pushes, len(b.regions))
}

func TestActivatePacksStoredValuesNotDefaults(t *testing.T) {
	b := &fakeBackend{}
	m := preset.NewManager(b)
	defer m.Close()

	src := sourceWithInputs(`{"NAME": "amount", "TYPE": "float", "DEFAULT": 0.5}`)
	a := m.LoadFromSource("a", src)
	bIdx := m.LoadFromSource("b", src)

	require.NoError(t, m.SetParamValue(bIdx, "amount", 0.25))
	require.NoError(t, m.Activate(a))

	// Switching to b packs b's edited value, never its authored default.
	require.NoError(t, m.Activate(bIdx))
	assert.Equal(t, float32(0.25), b.lastRegion(t)[0])
}

func TestRemoveAdjustsActiveIndex(t *testing.T) {
	b := &fakeBackend{}
	m := preset.NewManager(b)
	defer m.Close()

	m.LoadFromSource("a", sourceWithInputs(""))
	m.LoadFromSource("b", sourceWithInputs(""))
	m.LoadFromSource("c", sourceWithInputs(""))

	require.NoError(t, m.Activate(2))
	m.Remove(0)
	assert.Equal(t, 1, m.ActiveIndex())
	assert.Equal(t, "c", m.ActivePreset().Name)

	// Removing the active preset falls back to passthrough.
	m.Remove(1)
	assert.Equal(t, -1, m.ActiveIndex())
	assert.Nil(t, b.active)
}

func TestResetToDefaults(t *testing.T) {
	b := &fakeBackend{}
	m := preset.NewManager(b)
	defer m.Close()

	index := m.LoadFromSource("fx", sourceWithInputs(
		`{"NAME": "amount", "TYPE": "float", "DEFAULT": 0.5},
		 {"NAME": "tint", "TYPE": "color", "DEFAULT": [1, 1, 1, 1]}`))
	require.NoError(t, m.Activate(index))
	require.NoError(t, m.SetParamValue(index, "amount", 0.9))
	require.NoError(t, m.SetParamValue(index, "tint", 0, 0, 0, 0))

	m.ResetToDefaults(index)
	region := b.lastRegion(t)
	assert.Equal(t, float32(0.5), region[0])
	assert.Equal(t, [4]float32{1, 1, 1, 1}, [4]float32(region[4:8]))
}

func TestShortcutDispatch(t *testing.T) {
	m := preset.NewManager(&fakeBackend{})
	defer m.Close()

	a := m.LoadFromSource("a", sourceWithInputs(""))
	m.SetShortcut(a, 49, 2) // key "1" with control held

	assert.False(t, m.HandleShortcut(49, 0), "modifier mismatch must not activate")
	assert.True(t, m.HandleShortcut(49, 2))
	assert.Equal(t, a, m.ActiveIndex())
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := sourceWithInputs(
		`{"NAME": "amount", "TYPE": "float", "DEFAULT": 0.5},
		 {"NAME": "center", "TYPE": "point2d", "DEFAULT": [0.5, 0.5]},
		 {"NAME": "tint", "TYPE": "color", "DEFAULT": [1, 0, 0, 1]}`)
	path := writeEffect(t, dir, "glow.wgsl", src)

	m := preset.NewManager(&fakeBackend{})
	index, err := m.LoadFromFile(path, nil)
	require.NoError(t, err)
	m.SetShortcut(index, 49, 2)
	require.NoError(t, m.SetParamValue(index, "amount", 0.8))
	require.NoError(t, m.SetParamValue(index, "center", 0.1, 0.9))

	snaps := m.Snapshots()
	require.NoError(t, m.Close())
	require.Len(t, snaps, 1)
	assert.Equal(t, "glow", snaps[0].Name)
	assert.Equal(t, uint32(49), snaps[0].ShortcutKey)
	assert.Equal(t, []float32{0.8}, snaps[0].ParamValues["amount"])
	assert.Equal(t, []float32{0.1, 0.9}, snaps[0].ParamValues["center"])
	assert.Equal(t, []float32{1, 0, 0, 1}, snaps[0].ParamValues["tint"])

	// A fresh manager restoring the snapshot re-parses metadata and patches
	// only the current values.
	b2 := &fakeBackend{}
	m2 := preset.NewManager(b2)
	defer m2.Close()
	require.Equal(t, 1, m2.Restore(snaps))

	p := m2.Preset(0)
	require.NotNil(t, p)
	assert.Equal(t, float32(0.8), p.Params[0].Value[0])
	assert.Equal(t, float32(0.5), p.Params[0].Default[0], "defaults come from the source, not the snapshot")
	assert.Equal(t, uint32(49), p.ShortcutKey)
	assert.Equal(t, uint32(2), p.ShortcutMods)
}

func TestScanDirectorySkipsLoaded(t *testing.T) {
	dir := t.TempDir()
	writeEffect(t, dir, "a.wgsl", sourceWithInputs(""))
	writeEffect(t, dir, "b.wgsl", sourceWithInputs(""))
	writeEffect(t, dir, "notes.txt", "not a shader")

	m := preset.NewManager(&fakeBackend{})
	defer m.Close()

	loaded, err := m.ScanDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded)

	// A second scan finds nothing new.
	loaded, err = m.ScanDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded)
	assert.Equal(t, 2, m.Count())
}

func TestHotReloadResetsValuesKeepsShortcut(t *testing.T) {
	dir := t.TempDir()
	src := sourceWithInputs(`{"NAME": "amount", "TYPE": "float", "DEFAULT": 0.5}`)
	path := writeEffect(t, dir, "fx.wgsl", src)

	m := preset.NewManager(&fakeBackend{})
	defer m.Close()

	index, err := m.LoadFromFile(path, nil)
	require.NoError(t, err)
	m.SetShortcut(index, 49, 0)
	require.NoError(t, m.SetParamValue(index, "amount", 0.9))

	// Author saves a new revision with a different default.
	require.NoError(t, os.WriteFile(path, []byte(sourceWithInputs(
		`{"NAME": "amount", "TYPE": "float", "DEFAULT": 0.3}`)), 0o644))

	require.Eventually(t, func() bool {
		m.CheckForChanges()
		p := m.Preset(index)
		return p.Params[0].Default[0] == 0.3
	}, 2*time.Second, 10*time.Millisecond, "reload never arrived")

	p := m.Preset(index)
	assert.Equal(t, float32(0.3), p.Params[0].Value[0], "reload resets to the new revision's default")
	assert.Equal(t, uint32(49), p.ShortcutKey, "shortcut survives reload")
}

func TestWatchDisabledIgnoresChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeEffect(t, dir, "fx.wgsl", sourceWithInputs(
		`{"NAME": "amount", "TYPE": "float", "DEFAULT": 0.5}`))

	m := preset.NewManager(&fakeBackend{}, preset.WithWatchEnabled(false))
	defer m.Close()

	index, err := m.LoadFromFile(path, nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(sourceWithInputs(
		`{"NAME": "amount", "TYPE": "float", "DEFAULT": 0.3}`)), 0o644))

	time.Sleep(100 * time.Millisecond)
	m.CheckForChanges()
	assert.Equal(t, float32(0.5), m.Preset(index).Params[0].Default[0])
}
