package registry

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// TypeTag is the closed set of value types a tool schema can declare.
type TypeTag string

const (
	TypeString  TypeTag = "string"
	TypeInteger TypeTag = "integer"
	TypeNumber  TypeTag = "number"
	TypeObject  TypeTag = "object"
	TypeArray   TypeTag = "array"
)

// ParseTypeTag maps a free-text type description ("array of product objects",
// "int", "decimal") onto the closed tag set. Unrecognised text becomes TypeString.
func ParseTypeTag(s string) TypeTag {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, "array"), strings.HasPrefix(s, "list"), strings.HasSuffix(s, "[]"):
		return TypeArray
	case strings.HasPrefix(s, "int"):
		return TypeInteger
	case strings.HasPrefix(s, "number"), strings.HasPrefix(s, "float"),
		strings.HasPrefix(s, "decimal"), strings.HasPrefix(s, "double"):
		return TypeNumber
	case strings.Contains(s, "object"), strings.HasPrefix(s, "map"), strings.HasPrefix(s, "dict"):
		return TypeObject
	default:
		return TypeString
	}
}

// Field is one named entry of a Schema.
type Field struct {
	Name     string
	Type     TypeTag
	Optional bool
}

// Schema is an ordered set of fields. On the wire it is a flat
// {"name": "type"} object, or a JSON-Schema object when a field is optional.
type Schema []Field

// Has reports whether the schema declares a field with the given name.
func (s Schema) Has(name string) bool {
	_, ok := s.Field(name)
	return ok
}

// Field returns the named field.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Required lists the names of non-optional fields.
func (s Schema) Required() []string {
	out := make([]string, 0, len(s))
	for _, f := range s {
		if !f.Optional {
			out = append(out, f.Name)
		}
	}
	return out
}

// Missing returns the required field names absent from args.
func (s Schema) Missing(args map[string]any) []string {
	var missing []string
	for _, name := range s.Required() {
		if v, ok := args[name]; !ok || v == nil {
			missing = append(missing, name)
		}
	}
	return missing
}

// Properties renders the schema as JSON-Schema properties.
func (s Schema) Properties() map[string]any {
	props := make(map[string]any, len(s))
	for _, f := range s {
		props[f.Name] = map[string]any{"type": string(f.Type)}
	}
	return props
}

// JSONSchema renders the schema as a JSON-Schema object definition.
func (s Schema) JSONSchema() map[string]any {
	out := map[string]any{
		"type":       "object",
		"properties": s.Properties(),
	}
	if req := s.Required(); len(req) > 0 {
		out["required"] = req
	}
	return out
}

// MarshalJSON writes the flat form unless a field is optional, which only
// the JSON-Schema form can express.
func (s Schema) MarshalJSON() ([]byte, error) {
	if len(s.Required()) < len(s) {
		return json.Marshal(s.JSONSchema())
	}
	flat := make(map[string]TypeTag, len(s))
	for _, f := range s {
		flat[f.Name] = f.Type
	}
	return json.Marshal(flat)
}

func (s *Schema) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	if props, ok := raw["properties"]; ok && isObjectType(raw["type"]) {
		return s.fromJSONSchema(props, raw["required"])
	}

	out := make(Schema, 0, len(raw))
	for name, v := range raw {
		out = append(out, Field{Name: name, Type: tagOf(v)})
	}
	sortFields(out)
	*s = out
	return nil
}

func (s *Schema) fromJSONSchema(props, required json.RawMessage) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(props, &fields); err != nil {
		return fmt.Errorf("schema properties: %w", err)
	}
	var req []string
	if len(required) > 0 {
		if err := json.Unmarshal(required, &req); err != nil {
			return fmt.Errorf("schema required: %w", err)
		}
	}
	isReq := make(map[string]bool, len(req))
	for _, r := range req {
		isReq[r] = true
	}

	out := make(Schema, 0, len(fields))
	for name, v := range fields {
		out = append(out, Field{Name: name, Type: tagOf(v), Optional: !isReq[name]})
	}
	sortFields(out)
	*s = out
	return nil
}

// tagOf reads either a bare type string or an object carrying a "type" member.
func tagOf(v json.RawMessage) TypeTag {
	var str string
	if err := json.Unmarshal(v, &str); err == nil {
		return ParseTypeTag(str)
	}
	var obj struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(v, &obj); err == nil && obj.Type != "" {
		return ParseTypeTag(obj.Type)
	}
	return TypeObject
}

func isObjectType(v json.RawMessage) bool {
	var t string
	return json.Unmarshal(v, &t) == nil && t == "object"
}

func sortFields(s Schema) {
	sort.Slice(s, func(i, j int) bool { return s[i].Name < s[j].Name })
}
