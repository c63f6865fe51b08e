// File path: cmd/codelens/root.go
package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	v := viper.New()
	serve := newServeCmd(v)
	root := &cobra.Command{
		Use:   "codelens",
		Short: "codelens - ask questions about an uploaded codebase",
		Long: `codelens stores uploaded codebases (ZIP archives or GitHub repositories) and answers
natural-language questions about them by sending the most relevant files to a language model.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.SetVersionTemplate("codelens version {{.Version}}\n")
	bindFlags(root, v)
	root.AddCommand(serve, newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("codelens version %s\n", version)
		},
	}
}
