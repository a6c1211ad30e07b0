package registry

import (
	"github.com/universal-tool-calling-protocol/go-utcp/src/tools"
)

// UTCPSchema converts a schema into the UTCP manual representation.
func UTCPSchema(s Schema) tools.ToolInputOutputSchema {
	return tools.ToolInputOutputSchema{
		Type:       "object",
		Properties: s.Properties(),
		Required:   s.Required(),
	}
}

// UTCPTool is one entry of a UTCP manual. The handler-bearing tools.Tool is
// not used here because the manual is only ever served as JSON.
type UTCPTool struct {
	Name        string                      `json:"name"`
	Description string                      `json:"description"`
	Inputs      tools.ToolInputOutputSchema `json:"inputs"`
	Outputs     tools.ToolInputOutputSchema `json:"outputs"`
	Tags        []string                    `json:"tags,omitempty"`
}

// UTCPManual is the document served at /utcp.
type UTCPManual struct {
	Version string     `json:"utcp_version"`
	Tools   []UTCPTool `json:"tools"`
}

// Manual renders the registry as a UTCP manual.
func (r *Registry) Manual(version string) UTCPManual {
	specs := r.Specs()
	m := UTCPManual{Version: version, Tools: make([]UTCPTool, 0, len(specs))}
	for _, s := range specs {
		m.Tools = append(m.Tools, UTCPTool{
			Name:        s.Name,
			Description: s.Description,
			Inputs:      UTCPSchema(s.Input),
			Outputs:     UTCPSchema(s.Output),
		})
	}
	return m
}
