package api

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// Kernel event kinds that map onto notebook output variants.
const (
	OutputTypeExecuteResult = "execute_result"
	OutputTypeDisplayData   = "display_data"
	OutputTypeStream        = "stream"
	OutputTypeError         = "error"
)

// KernelEvent is one message emitted by the kernel during an execution,
// with its payload preserved verbatim.
type KernelEvent struct {
	// Type is the iopub message type, e.g. "stream" or "execute_result".
	Type string

	// Content is the raw message content.
	Content json.RawMessage
}

// Output is the closed set of notebook output variants. Concrete types
// are ExecuteResult, DisplayData, StreamOutput, ErrorOutput, and
// UnknownOutput for forward compatibility with event kinds this service
// does not interpret.
type Output interface {
	// OutputType returns the nbformat output_type discriminator.
	OutputType() string
}

// MultilineText decodes nbformat text fields, which may be either a
// plain string or an array of line fragments.
type MultilineText string

// UnmarshalJSON accepts a JSON string or an array of strings, joining
// array elements without a separator (fragments carry their own "\n").
func (m *MultilineText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = MultilineText(s)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return err
	}
	*m = MultilineText(strings.Join(lines, ""))
	return nil
}

// ExecuteResult is the value produced by a top-level evaluation, with the
// execution counter the kernel assigned to it.
type ExecuteResult struct {
	Data           map[string]json.RawMessage `json:"data"`
	Metadata       map[string]any             `json:"metadata"`
	ExecutionCount *int                       `json:"execution_count"`
}

func (*ExecuteResult) OutputType() string { return OutputTypeExecuteResult }

// PlainText returns the text/plain representation of the result. When the
// payload is not a plain string it is returned stringified, so structured
// results still contribute readable text.
func (o *ExecuteResult) PlainText() string {
	raw, ok := o.Data["text/plain"]
	if !ok {
		return ""
	}
	var text MultilineText
	if err := json.Unmarshal(raw, &text); err == nil {
		return string(text)
	}
	return string(raw)
}

// DisplayData is a rich, mime-typed payload, commonly an image.
type DisplayData struct {
	Data     map[string]json.RawMessage `json:"data"`
	Metadata map[string]any             `json:"metadata"`
}

func (*DisplayData) OutputType() string { return OutputTypeDisplayData }

// ImagePNG decodes the base64 image/png payload, if present.
func (o *DisplayData) ImagePNG() ([]byte, bool) {
	raw, ok := o.Data["image/png"]
	if !ok {
		return nil, false
	}
	var encoded MultilineText
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, false
	}
	// Kernels wrap base64 payloads in newlines.
	img, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(encoded)))
	if err != nil {
		return nil, false
	}
	return img, true
}

// StreamOutput is a raw stdout/stderr chunk.
type StreamOutput struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

func (*StreamOutput) OutputType() string { return OutputTypeStream }

// ErrorOutput is a runtime exception raised by executed code. It is a
// normal output, not a failure of the execution machinery.
type ErrorOutput struct {
	Ename     string   `json:"ename"`
	Evalue    string   `json:"evalue"`
	Traceback []string `json:"traceback"`
}

func (*ErrorOutput) OutputType() string { return OutputTypeError }

// UnknownOutput preserves an event kind this service does not interpret.
// It is recorded in the cell but contributes no result text.
type UnknownOutput struct {
	Type    string
	Content json.RawMessage
}

func (o *UnknownOutput) OutputType() string { return o.Type }

// OutputFromEvent converts a kernel event into its tagged output variant.
// Payloads that fail to decode are preserved as UnknownOutput rather than
// dropped.
func OutputFromEvent(ev KernelEvent) Output {
	switch ev.Type {
	case OutputTypeExecuteResult:
		var out ExecuteResult
		if err := json.Unmarshal(ev.Content, &out); err == nil {
			return &out
		}
	case OutputTypeDisplayData:
		var out DisplayData
		if err := json.Unmarshal(ev.Content, &out); err == nil {
			return &out
		}
	case OutputTypeStream:
		var raw struct {
			Name string        `json:"name"`
			Text MultilineText `json:"text"`
		}
		if err := json.Unmarshal(ev.Content, &raw); err == nil {
			return &StreamOutput{Name: raw.Name, Text: string(raw.Text)}
		}
	case OutputTypeError:
		var out ErrorOutput
		if err := json.Unmarshal(ev.Content, &out); err == nil {
			return &out
		}
	}
	return &UnknownOutput{Type: ev.Type, Content: ev.Content}
}

// UnmarshalOutput decodes one nbformat output by its output_type tag.
func UnmarshalOutput(data json.RawMessage) (Output, error) {
	var tag struct {
		OutputType string `json:"output_type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}

	switch tag.OutputType {
	case OutputTypeExecuteResult:
		var out ExecuteResult
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return &out, nil
	case OutputTypeDisplayData:
		var out DisplayData
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return &out, nil
	case OutputTypeStream:
		var raw struct {
			Name string        `json:"name"`
			Text MultilineText `json:"text"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return &StreamOutput{Name: raw.Name, Text: string(raw.Text)}, nil
	case OutputTypeError:
		var out ErrorOutput
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return &out, nil
	default:
		return &UnknownOutput{Type: tag.OutputType, Content: append(json.RawMessage(nil), data...)}, nil
	}
}

// MarshalJSON emits the nbformat encoding with the output_type tag.
func (o *ExecuteResult) MarshalJSON() ([]byte, error) {
	type alias ExecuteResult
	return json.Marshal(struct {
		OutputType string `json:"output_type"`
		*alias
	}{OutputTypeExecuteResult, (*alias)(o)})
}

// MarshalJSON emits the nbformat encoding with the output_type tag.
func (o *DisplayData) MarshalJSON() ([]byte, error) {
	type alias DisplayData
	return json.Marshal(struct {
		OutputType string `json:"output_type"`
		*alias
	}{OutputTypeDisplayData, (*alias)(o)})
}

// MarshalJSON emits the nbformat encoding with the output_type tag.
func (o *StreamOutput) MarshalJSON() ([]byte, error) {
	type alias StreamOutput
	return json.Marshal(struct {
		OutputType string `json:"output_type"`
		*alias
	}{OutputTypeStream, (*alias)(o)})
}

// MarshalJSON emits the nbformat encoding with the output_type tag.
func (o *ErrorOutput) MarshalJSON() ([]byte, error) {
	type alias ErrorOutput
	return json.Marshal(struct {
		OutputType string `json:"output_type"`
		*alias
	}{OutputTypeError, (*alias)(o)})
}

// MarshalJSON re-emits the original payload with its original tag.
func (o *UnknownOutput) MarshalJSON() ([]byte, error) {
	if len(o.Content) == 0 {
		return json.Marshal(map[string]string{"output_type": o.Type})
	}
	// Content from UnmarshalOutput already carries the output_type tag;
	// content from a kernel event does not.
	var m map[string]json.RawMessage
	if err := json.Unmarshal(o.Content, &m); err != nil {
		return nil, err
	}
	if _, ok := m["output_type"]; !ok {
		tag, err := json.Marshal(o.Type)
		if err != nil {
			return nil, err
		}
		m["output_type"] = tag
	}
	return json.Marshal(m)
}
