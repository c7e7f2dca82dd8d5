package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// GroupExamples holds the demonstration tools. Replace them with your own.
const GroupExamples = "examples"

const (
	addLimit          = 1000000
	defaultGreetStyle = "casual"
)

var now = time.Now

type AddInput struct {
	A int `json:"a" jsonschema:"The first number to add" validate:"min=-1000000,max=1000000"`
	B int `json:"b" jsonschema:"The second number to add" validate:"min=-1000000,max=1000000"`
}

type AddInputs struct {
	A int `json:"a"`
	B int `json:"b"`
}

type AddOutput struct {
	Operation string    `json:"operation"`
	Inputs    AddInputs `json:"inputs"`
	Result    int       `json:"result"`
}

func Add(_ context.Context, _ *mcp.CallToolRequest, in AddInput) (*mcp.CallToolResult, AddOutput, error) {
	if err := validateArgs(in); err != nil {
		return nil, AddOutput{}, err
	}
	return nil, AddOutput{
		Operation: "addition",
		Inputs:    AddInputs{A: in.A, B: in.B},
		Result:    in.A + in.B,
	}, nil
}

type GreetInput struct {
	Name  string `json:"name" jsonschema:"The name of the person to greet" validate:"required,max=100"`
	Style string `json:"style,omitempty" jsonschema:"Optional greeting style: formal, casual, or friendly" validate:"omitempty,oneof=formal casual friendly"`
}

type GreetOutput struct {
	Name      string `json:"name"`
	Style     string `json:"style"`
	Greeting  string `json:"greeting"`
	Timestamp string `json:"timestamp"`
}

var greetings = map[string]string{
	"formal":   "Good day, %s. It is a pleasure to meet you.",
	"casual":   "Hey %s! What's up?",
	"friendly": "Hello %s! Nice to see you!",
}

func Greet(_ context.Context, _ *mcp.CallToolRequest, in GreetInput) (*mcp.CallToolResult, GreetOutput, error) {
	if err := validateArgs(in); err != nil {
		return nil, GreetOutput{}, err
	}
	style := in.Style
	if style == "" {
		style = defaultGreetStyle
	}
	return nil, GreetOutput{
		Name:      in.Name,
		Style:     style,
		Greeting:  fmt.Sprintf(greetings[style], in.Name),
		Timestamp: now().Format("2006-01-02 15:04:05"),
	}, nil
}

func registerExamples(c *Catalogue) error {
	if err := AddTool(c, GroupExamples, &mcp.Tool{
		Name:        "add",
		Description: "Adds two numbers together and returns the sum.\nThis is a simple example tool to demonstrate MCP functionality.",
		Annotations: &mcp.ToolAnnotations{Title: "Add Numbers", ReadOnlyHint: true},
		InputSchema: schemaFor[AddInput](func(props map[string]*jsonschema.Schema) {
			bounds(props["a"], -addLimit, addLimit)
			bounds(props["b"], -addLimit, addLimit)
		}),
	}, Add); err != nil {
		return err
	}

	return AddTool(c, GroupExamples, &mcp.Tool{
		Name:        "greet",
		Description: "Returns a personalized greeting message.\nDemonstrates string parameter handling and optional parameters.",
		Annotations: &mcp.ToolAnnotations{Title: "Greeting Generator", ReadOnlyHint: true},
		InputSchema: schemaFor[GreetInput](func(props map[string]*jsonschema.Schema) {
			lengths(props["name"], 1, 100)
			enum(props["style"], "formal", "casual", "friendly")
		}),
	}, Greet)
}
