package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/vuedts/internal/version"
)

var (
	versionFormat   = formatText
	versionShort    bool
	versionDetailed bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version information for vuedts including the version number, git
commit, build time, Go version and target platform.

Examples:
  vuedts version              # Show version
  vuedts version --detailed   # Show detailed version info
  vuedts version -o json      # Output as JSON`,
	Args: cobra.NoArgs,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().VarP(&versionFormat, "output", "o", "output format (text, json, yaml)")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "show the version number only")
	versionCmd.Flags().BoolVar(&versionDetailed, "detailed", false, "show detailed version information")
}

func runVersionCommand(cmd *cobra.Command, _ []string) error {
	return writeVersion(cmd.OutOrStdout(), version.Get(), versionFormat, versionShort, versionDetailed)
}

func writeVersion(w io.Writer, info version.BuildInfo, format outputFormat, short, detailed bool) error {
	switch format {
	case formatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)
	case formatYAML:
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(info)
	case formatText, formatTable:
		switch {
		case short:
			_, err := fmt.Fprintln(w, info.Version)
			return err
		case detailed:
			_, err := fmt.Fprintln(w, info.Detailed())
			return err
		default:
			_, err := fmt.Fprintf(w, "vuedts %s\n", info.Short())
			return err
		}
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
