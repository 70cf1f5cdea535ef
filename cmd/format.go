package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// outputFormat is a pflag.Value accepting text, table, json or yaml. Text and
// table are the human readable form of a command.
type outputFormat string

const (
	formatText  outputFormat = "text"
	formatTable outputFormat = "table"
	formatJSON  outputFormat = "json"
	formatYAML  outputFormat = "yaml"
)

var _ pflag.Value = (*outputFormat)(nil)

var outputFormats = []outputFormat{formatText, formatTable, formatJSON, formatYAML}

func (f *outputFormat) String() string {
	return string(*f)
}

func (f *outputFormat) Set(value string) error {
	candidate := outputFormat(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range outputFormats {
		if candidate == known {
			*f = candidate
			return nil
		}
	}
	return fmt.Errorf("unsupported format %q (supported: text, table, json, yaml)", value)
}

func (f *outputFormat) Type() string {
	return "format"
}
