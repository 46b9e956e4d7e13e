package mcp

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gitlab.com/tozd/go/errors"
)

var reflector = &jsonschema.Reflector{
	ExpandedStruct: true,
	DoNotReference: true,
}

// ReflectSchema returns the input schema for parameter type T.
func ReflectSchema[T any]() *jsonschema.Schema {
	sch := reflector.Reflect(new(T))
	sch.Version = ""
	return sch
}

type stringParam struct {
	Name        string
	Description string
	Required    bool
}

// stringsSchema builds an object schema of string properties in the order
// given.
func stringsSchema(title, description string, params ...stringParam) *jsonschema.Schema {
	sch := &jsonschema.Schema{
		Title:       title,
		Description: description,
		Required:    []string{},
		Type:        "object",
		Properties:  orderedmap.New[string, *jsonschema.Schema](),
	}
	for _, p := range params {
		sch.Properties.Set(p.Name, &jsonschema.Schema{Type: "string", Description: p.Description})
		if p.Required {
			sch.Required = append(sch.Required, p.Name)
		}
	}
	return sch
}

func newTool(name, description string, sch *jsonschema.Schema) (mcp.Tool, error) {
	raw, err := json.Marshal(sch)
	if err != nil {
		return mcp.Tool{}, errors.Errorf("marshalling %s schema: %w", name, err)
	}
	return mcp.NewToolWithRawSchema(name, description, raw), nil
}

// decodeArgs moves the loosely typed tool arguments into T through JSON.
func decodeArgs[T any](args map[string]interface{}) (T, error) {
	var out T
	raw, err := json.Marshal(args)
	if err != nil {
		return out, errors.Errorf("encoding arguments: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, errors.Errorf("decoding arguments: %w", err)
	}
	return out, nil
}

func textResult(v any) (*mcp.CallToolResult, error) {
	if s, ok := v.(string); ok {
		return mcp.NewToolResultText(s), nil
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.Errorf("encoding result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

// register adds a tool whose arguments decode into T. Handler errors are
// returned to the client as tool errors.
func register[T any](s *Server, name, description string, sch *jsonschema.Schema, fn func(context.Context, T) (any, error)) error {
	if sch == nil {
		sch = ReflectSchema[T]()
	}
	tool, err := newTool(name, description, sch)
	if err != nil {
		return err
	}

	s.add(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger := zerolog.Ctx(ctx).With().Str("tool", name).Logger()
		ctx = logger.WithContext(ctx)

		args, err := decodeArgs[T](request.Params.Arguments)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		out, err := fn(ctx, args)
		if err != nil {
			logger.Debug().Err(err).Msg("tool failed")
			return mcp.NewToolResultError(err.Error()), nil
		}
		return textResult(out)
	})
	return nil
}
