package main

import (
	"fmt"

	"github.com/spf13/cobra"

	jnivm "github.com/Dadoum/libjnivm"
	"github.com/Dadoum/libjnivm/codegen"
)

func newStubsCmd() *cobra.Command {
	var pkg, out string
	cmd := &cobra.Command{
		Use:   "stubs DUMP",
		Short: "Generate Go class registrations from a class dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := codegen.ReadDump(args[0])
			if err != nil {
				return err
			}
			src, err := codegen.GenerateStubs(d, pkg)
			if err != nil {
				return err
			}
			return writeOutput(cmd, out, src)
		},
	}
	cmd.Flags().StringVarP(&pkg, "package", "p", "bindings", "package name of the generated file")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newHeaderCmd() *cobra.Command {
	var guard, out string
	cmd := &cobra.Command{
		Use:   "header DUMP",
		Short: "Generate a C header of native entry points from a class dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := codegen.ReadDump(args[0])
			if err != nil {
				return err
			}
			h, err := codegen.GenerateHeader(d, guard)
			if err != nil {
				return err
			}
			return writeOutput(cmd, out, h)
		},
	}
	cmd.Flags().StringVar(&guard, "guard", "JNIVM_NATIVES_H", "include guard macro")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "schema {config|dump}",
		Short:     "Print the JSON Schema of a file format",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"config", "dump"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				schema []byte
				err    error
			)
			switch args[0] {
			case "config":
				schema, err = jnivm.ConfigSchema()
			case "dump":
				schema, err = codegen.DumpSchema()
			default:
				err = fmt.Errorf("unknown format %q", args[0])
			}
			if err != nil {
				return err
			}
			return writeOutput(cmd, "", append(schema, '\n'))
		},
	}
}
