// Command dreamtrain freezes trained checkpoints into weights files for the
// inference runtime and inspects the result.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

const version = "v0.1.0-dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dreamtrain",
		Short:         "Freeze and inspect dream-go network weights",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	root.AddCommand(newFreezeCmd(), newInspectCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dreamtrain %s\n", version)
		},
	}
}

func main() {
	klog.InitFlags(nil)
	defer klog.Flush()

	if err := newRootCmd().Execute(); err != nil {
		klog.Errorf("%+v", err)
		klog.Flush()
		os.Exit(1)
	}
}
