package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/ritualcal/internal/config"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ritualcal",
		Short:         "Ritual reminder calendar",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().String("config", os.Getenv("RITUALCAL_CONFIG"), "path to a YAML config file")

	cmd.AddCommand(newServeCmd(stdout))
	cmd.AddCommand(newSweepCmd(stdout))
	cmd.AddCommand(newTUICmd())
	cmd.AddCommand(newMigrateCmd(stdout))
	cmd.AddCommand(newRegisterTokenCmd(stdout))
	return cmd
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}
