package ui

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/relocator/pkg/errors"
)

// errorPayload is the machine-readable form of an error
type errorPayload struct {
	Error   string                 `json:"error" yaml:"error"`
	Code    string                 `json:"code" yaml:"code"`
	Details map[string]interface{} `json:"details,omitempty" yaml:"details,omitempty"`
}

func newErrorPayload(err error) errorPayload {
	p := errorPayload{Error: err.Error(), Code: string(errors.GetErrorCode(err))}
	if d := errors.GetErrorDetails(err); len(d) > 0 {
		p.Details = d
	}
	return p
}

// jsonRenderer provides JSON output for machine consumption
type jsonRenderer struct {
	encoder *json.Encoder
}

func newJSONRenderer(w io.Writer) *jsonRenderer {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return &jsonRenderer{encoder: encoder}
}

func (r *jsonRenderer) RenderResult(result interface{}) error {
	return r.encoder.Encode(result)
}

func (r *jsonRenderer) RenderError(err error) error {
	if err == nil {
		return nil
	}
	return r.encoder.Encode(newErrorPayload(err))
}

func (r *jsonRenderer) RenderMessage(msg string) error {
	return r.encoder.Encode(Message{Text: msg})
}

// yamlRenderer writes one YAML document per call
type yamlRenderer struct {
	output io.Writer
}

func newYAMLRenderer(w io.Writer) *yamlRenderer {
	return &yamlRenderer{output: w}
}

func (r *yamlRenderer) encode(v interface{}) error {
	enc := yaml.NewEncoder(r.output)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (r *yamlRenderer) RenderResult(result interface{}) error {
	return r.encode(result)
}

func (r *yamlRenderer) RenderError(err error) error {
	if err == nil {
		return nil
	}
	return r.encode(newErrorPayload(err))
}

func (r *yamlRenderer) RenderMessage(msg string) error {
	return r.encode(Message{Text: msg})
}
