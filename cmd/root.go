package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the gmailurl application
var rootCmd = &cobra.Command{
	Use:   "gmailurl",
	Short: "Extracts and decodes Gmail URLs from text and raw data",
	Long: `gmailurl finds Gmail web-interface URLs in plain text (one URL per line)
or anywhere inside raw binary data such as memory images and disk dumps.

For every URL it reports the captured fields, decodes new-format thread and
message tokens, and derives the creation timestamps embedded in both legacy
and new-format tokens.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "gmailurl version %s\n" .Version}}`)
	rootCmd.SetArgs(defaultArgs(os.Args[1:]))

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// defaultArgs routes a flags-only invocation to the decode command.
func defaultArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	switch args[0] {
	case "-h", "--help", "--version":
		return args
	}
	if len(args[0]) > 1 && args[0][0] == '-' {
		return append([]string{"decode"}, args...)
	}
	return args
}

func init() {
	rootCmd.AddCommand(newDecodeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
