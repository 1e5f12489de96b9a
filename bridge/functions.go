package bridge

import (
	"github.com/hupe1980/wrapmesh/tool"
)

// Function names published to the model.
const (
	InvokeWrapName = "InvokeWrap"
	LoadWrapName   = "LoadWrap"
)

const invokeWrapDescription = `A function to invoke or execute any wrap method.
It receives an options object with a uri, method and optional args.
For example:
Function = InvokeWrap
Arguments = {"options": {"uri": "<URI here>", "method": "<method name>", "args": {<args if necessary>}}}`

const loadWrapDescription = `A function to fetch the graphql schema of a wrap for method analysis and introspection.
It receives a wrap name.
For example:
Function = LoadWrap
Arguments = {"name": "<wrap name here>"}`

type invokeWrapArgs struct {
	Options InvokeRequest `json:"options"`
}

func invokeWrapParameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"options": map[string]any{
				"type":        "object",
				"description": "The options to invoke a wrap method, including the uri, method and args, where args is optional and both uri and method are required",
				"properties": map[string]any{
					"uri": map[string]any{
						"type":        "string",
						"minLength":   1,
						"description": "URI of the wrap, e.g. wrap://ens/wraps.eth:ethereum@2.0.0",
					},
					"method": map[string]any{
						"type":        "string",
						"minLength":   1,
						"description": "Name of the method to invoke",
					},
					"args": map[string]any{
						"type":        "object",
						"description": "Named arguments of the method",
					},
				},
				"required": []string{"uri", "method"},
			},
		},
		"required": []string{"options"},
	}
}

func loadWrapParameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "The name of the wrap to load",
			},
		},
		"required": []string{"name"},
	}
}

func (b *Bridge) invokeWrapTool() tool.Tool {
	return tool.NewTypedTool(InvokeWrapName, invokeWrapDescription, invokeWrapParameters(),
		func(tc *tool.Context, args invokeWrapArgs) (any, error) {
			return b.InvokeModule(tc.Context(), args.Options), nil
		})
}

func (b *Bridge) loadWrapTool() tool.Tool {
	return tool.NewTypedTool(LoadWrapName, loadWrapDescription, loadWrapParameters(),
		func(tc *tool.Context, args LoadRequest) (any, error) {
			return b.LoadModuleSchema(tc.Context(), args), nil
		})
}
