package shader

import (
	"encoding/json"
	"strings"
)

// metadataOpen and metadataClose delimit the parameter metadata block.
// The block is a JSON object wrapped in a WGSL block comment, so it stays
// inert in the source and is never stripped before compilation.
const (
	metadataOpen  = "/*{"
	metadataClose = "}*/"
)

// paramDecl mirrors one entry of the INPUTS array in the metadata block.
// Pointer fields distinguish absent keys from explicit zero values.
type paramDecl struct {
	Name    string          `json:"NAME"`
	Type    string          `json:"TYPE"`
	Label   string          `json:"LABEL"`
	Min     *float32        `json:"MIN"`
	Max     *float32        `json:"MAX"`
	Step    *float32        `json:"STEP"`
	Default json.RawMessage `json:"DEFAULT"`
	Values  []string        `json:"VALUES"`
}

// shaderMetadata is the top-level shape of the metadata block.
type shaderMetadata struct {
	Inputs []paramDecl `json:"INPUTS"`
}

// ParseParams extracts the parameter declarations from an effect source.
// The metadata block is the text between the first "/*{" and the next "}*/",
// parsed as a JSON object whose INPUTS array declares the parameters.
//
// A source without a metadata block is valid and declares no parameters.
// A malformed block also yields no parameters rather than an error: a broken
// comment must never make an otherwise compilable effect unloadable.
// Declarations missing NAME or TYPE, or carrying an unknown TYPE, are skipped
// individually.
//
// Parameters:
//   - source: the full effect source text
//
// Returns:
//   - []Param: the declared parameters in declaration order, values set to defaults
func ParseParams(source string) []Param {
	start := strings.Index(source, metadataOpen)
	if start < 0 {
		return nil
	}
	rest := source[start+len(metadataOpen):]
	end := strings.Index(rest, metadataClose)
	if end < 0 {
		return nil
	}

	// Re-wrap the inner text in braces to recover the JSON object.
	var meta shaderMetadata
	if err := json.Unmarshal([]byte("{"+rest[:end]+"}"), &meta); err != nil {
		return nil
	}

	params := make([]Param, 0, len(meta.Inputs))
	for _, decl := range meta.Inputs {
		if decl.Name == "" || decl.Type == "" {
			continue
		}
		kind := ParamKind(decl.Type)
		if !validParamKinds[kind] {
			continue
		}

		p := Param{
			Name:  decl.Name,
			Label: decl.Label,
			Kind:  kind,
			Min:   0.0,
			Max:   1.0,
			Step:  0.01,
		}
		if decl.Min != nil {
			p.Min = *decl.Min
		}
		if decl.Max != nil {
			p.Max = *decl.Max
		}
		if decl.Step != nil {
			p.Step = *decl.Step
		}
		if kind == ParamKindEnum {
			p.EnumLabels = decl.Values
		}

		applyDefault(&p, decl.Default)
		p.Value = p.Default

		params = append(params, p)
	}
	return params
}

// applyDefault decodes the DEFAULT entry into the parameter's Default field.
// Accepts a number (Scalar/Enum/Trigger), a bool (Toggle, also tolerated as a
// number), or an array of numbers (Color/Point2D). A missing or mismatched
// DEFAULT leaves the zero default in place.
func applyDefault(p *Param, raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		if boolVal {
			p.Default[0] = 1.0
		}
		return
	}

	var scalar float32
	if err := json.Unmarshal(raw, &scalar); err == nil {
		p.Default[0] = scalar
		return
	}

	var arr []float32
	if err := json.Unmarshal(raw, &arr); err == nil {
		for i := 0; i < len(arr) && i < 4; i++ {
			p.Default[i] = arr[i]
		}
	}
}
