package tools

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const GroupCalculator = "calculator"

const (
	SettingsURI  = "config://calculator/settings"
	jsonMIMEType = "application/json"
)

type CalculateInput struct {
	A         float64 `json:"a" jsonschema:"The left operand"`
	B         float64 `json:"b" jsonschema:"The right operand"`
	Operation string  `json:"operation" jsonschema:"One of add, subtract, multiply or divide"`
}

// Calculate answers with plain text. Bad operations and division by zero
// come back as text too, not as tool errors.
func Calculate(_ context.Context, _ *mcp.CallToolRequest, in CalculateInput) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: calculate(in.A, in.B, in.Operation)}},
	}, nil, nil
}

func calculate(a, b float64, operation string) string {
	var v float64
	switch operation {
	case "add":
		v = a + b
	case "subtract":
		v = a - b
	case "multiply":
		v = a * b
	case "divide":
		if b == 0 {
			return "Error: Division by zero"
		}
		v = a / b
	default:
		return "Error: Unknown operation"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CalculatorSettings is served as the calculator configuration resource.
type CalculatorSettings struct {
	Precision     int  `json:"precision"`
	AllowNegative bool `json:"allow_negative"`
}

var defaultSettings = CalculatorSettings{Precision: 2, AllowNegative: true}

func ReadSettings(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	data, err := json.Marshal(defaultSettings)
	if err != nil {
		return nil, err
	}
	uri := SettingsURI
	if req != nil && req.Params != nil && req.Params.URI != "" {
		uri = req.Params.URI
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: jsonMIMEType, Text: string(data)}},
	}, nil
}

func registerCalculator(c *Catalogue) error {
	if err := AddTool(c, GroupCalculator, &mcp.Tool{
		Name:        "calculate",
		Description: "Performs basic arithmetic operations.",
		InputSchema: schemaFor[CalculateInput](nil),
	}, Calculate); err != nil {
		return err
	}

	return c.AddResource(GroupCalculator, &mcp.Resource{
		URI:      SettingsURI,
		Name:     "calculator_config",
		MIMEType: jsonMIMEType,
	}, ReadSettings)
}

// Default returns the catalogue with the bundled example groups.
func Default() (*Catalogue, error) {
	c := NewCatalogue()
	for _, register := range []func(*Catalogue) error{registerExamples, registerCalculator} {
		if err := register(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}
