package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/wrapmesh/bridge"
	"github.com/hupe1980/wrapmesh/core"
)

func newInvokeCommand(global *globalOptions) *cobra.Command {
	var (
		uri    string
		method string
		args   string
	)

	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Invoke a wrap method and print the result envelope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := bridge.InvokeRequest{URI: uri, Method: method}
			if args != "" {
				if err := json.Unmarshal([]byte(args), &req.Args); err != nil {
					return fmt.Errorf("--args is not valid JSON: %w", err)
				}
			}

			c, err := loadContainer(cmd, global)
			if err != nil {
				return err
			}

			return printEnvelope(cmd, c.Bridge().InvokeModule(commandContext(cmd), req))
		},
	}

	cmd.Flags().StringVar(&uri, "uri", "", "Wrap URI, e.g. wrap://ens/wraps.eth:ethereum@2.0.0")
	cmd.Flags().StringVar(&method, "method", "", "Method to invoke")
	cmd.Flags().StringVar(&args, "args", "", "Method arguments as a JSON object")
	_ = cmd.MarkFlagRequired("uri")
	_ = cmd.MarkFlagRequired("method")

	return cmd
}

func newSchemaCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <name>",
		Short: "Load the schema of a wrap from the library and print the result envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer(cmd, global)
			if err != nil {
				return err
			}

			return printEnvelope(cmd, c.Bridge().LoadModuleSchema(commandContext(cmd), bridge.LoadRequest{Name: args[0]}))
		},
	}
}

func printEnvelope(cmd *cobra.Command, env core.Envelope) error {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
