package ispec

import "encoding/json"

// UnmarshalJSON captures every string-valued property as a candidate
// expression operand (Expr) alongside the strongly-typed fields, since
// which properties carry expressions varies by transform Type (spec
// §4.D: "transform input_vars -> ... excluding signals produced by
// earlier transforms in the same pipeline" — the graph builder needs
// every property that might be an expression, not a fixed field list).
func (t *TransformSpec) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.Raw = append([]byte{}, data...)
	t.Expr = make(map[string]string, len(raw))
	for k, v := range raw {
		switch k {
		case "type":
			_ = json.Unmarshal(v, &t.Type)
		case "signal":
			_ = json.Unmarshal(v, &t.Signal)
		}
		var s string
		if json.Unmarshal(v, &s) == nil {
			t.Expr[k] = s
		}
	}
	return nil
}
