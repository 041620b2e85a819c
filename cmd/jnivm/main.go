// Command jnivm runs native libraries compiled to WebAssembly against an
// emulated runtime and turns what they ask for into source.
//
//	jnivm run --config game.yaml --lib-dir build --dump classes.yaml
//	jnivm stubs classes.yaml --package bindings -o bindings.go
//	jnivm header classes.yaml -o natives.h
//	jnivm schema dump
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "jnivm",
		Short:         "Run native-interface libraries without a virtual machine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newRunCmd(),
		newStubsCmd(),
		newHeaderCmd(),
		newSchemaCmd(),
	)
	return root
}

// writeOutput writes data to path, or to the command's stdout for "" or "-".
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
