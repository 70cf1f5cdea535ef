package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/vuedts/internal/console"
	"github.com/conneroisu/vuedts/internal/identity"
	"github.com/conneroisu/vuedts/internal/registry"
	"github.com/conneroisu/vuedts/internal/scanner"
	"github.com/conneroisu/vuedts/internal/sfc"
)

var listFormat = formatTable

var listCmd = &cobra.Command{
	Use:     "list <directory...>",
	Aliases: []string{"ls", "l"},
	Short:   "List the components that would be processed",
	Long: `List every .vue file beneath the given directories along with where its
script code comes from and whether a declaration file exists for it.

Source is "inline" for a script block, the referenced file for
<script src="...">, or "placeholder" when the component has no script the
compiler can process.

Examples:
  vuedts list src
  vuedts list src -o json
  vuedts list src --output yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().VarP(&listFormat, "output", "o", "output format (table, json, yaml)")
}

// componentInfo describes one container file.
type componentInfo struct {
	File        string `json:"file" yaml:"file"`
	Lang        string `json:"lang" yaml:"lang"`
	Source      string `json:"source" yaml:"source"`
	Declaration bool   `json:"declaration" yaml:"declaration"`
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	targets, err := a.targets(args)
	if err != nil {
		return err
	}

	components := inspect(a.fs, a.workingDir, scanner.Containers(targets))
	return writeComponents(cmd.OutOrStdout(), a.printer, listFormat, components)
}

// inspect loads each container the way the language service would and
// reports how its script is supplied.
func inspect(fs afero.Fs, workingDir string, containers []string) []componentInfo {
	reg := registry.New(fs)
	components := make([]componentInfo, 0, len(containers))

	for _, container := range containers {
		info := componentInfo{File: relative(workingDir, container), Lang: "js", Source: "inline"}

		if _, ok := reg.Source(container); !ok {
			info.Source = "missing"
		} else if entry, ok := reg.Get(container); ok {
			switch {
			case entry.SourcePath != "":
				info.Source = relative(workingDir, entry.SourcePath)
			case entry.Text == registry.Placeholder:
				info.Source = "placeholder"
			}
		}

		if data, err := afero.ReadFile(fs, container); err == nil {
			if script := sfc.ParseScript(data); script != nil && script.HasLang {
				info.Lang = script.Lang
			}
		}

		info.Declaration, _ = afero.Exists(fs, identity.DeclarationName(container))
		components = append(components, info)
	}
	return components
}

func writeComponents(w io.Writer, printer *console.Printer, format outputFormat, components []componentInfo) error {
	switch format {
	case formatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(components)
	case formatYAML:
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		encoder.SetIndent(2)
		return encoder.Encode(components)
	case formatTable, formatText:
		if len(components) == 0 {
			printer.Info("No .vue files found")
			return nil
		}
		rows := make([][]string, 0, len(components))
		for _, c := range components {
			rows = append(rows, []string{c.File, c.Lang, c.Source, yesNo(c.Declaration)})
		}
		printer.Print(printer.RenderTable(console.TableConfig{
			Title:   "Components (" + strconv.Itoa(len(components)) + ")",
			Headers: []string{"File", "Lang", "Source", "Declaration"},
			Rows:    rows,
		}))
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func relative(base, path string) string {
	if rel, err := filepath.Rel(base, path); err == nil {
		return rel
	}
	return path
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
