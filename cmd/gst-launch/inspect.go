package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"pipelined.dev/gst"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [KIND]",
		Short: "List element kinds or show properties and pads of a kind",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), listFactories(gst.DefaultRegistry))
				return nil
			}
			out, err := describeKind(gst.DefaultRegistry, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func listFactories(r *gst.Registry) string {
	tw := newTable("Kind", "Flags", "Description")
	for _, f := range r.Factories() {
		tw.AppendRow(table.Row{f.Name, flagsString(f.Flags), f.Description})
	}
	return tw.Render()
}

// describeKind renders properties and pads of a new element of the kind.
func describeKind(r *gst.Registry, kind string) (string, error) {
	e, err := r.Make(kind, "")
	if err != nil {
		return "", err
	}
	defer e.Dispose()

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s)\n\nProperties:\n", kind, flagsString(e.Flags()))
	sb.WriteString(propertyTable(e.Properties()))
	sb.WriteString("\n\nPads:\n")
	sb.WriteString(padTable(e))
	return sb.String(), nil
}

// propertyTable renders property specs with defaults and int ranges
// aligned right.
func propertyTable(specs []gst.PropertySpec) string {
	tw := newTable("Name", "Type", "Default", "Range", "Description")
	for _, spec := range specs {
		var limits string
		if spec.Kind == gst.PropertyInt && spec.Max > spec.Min {
			limits = fmt.Sprintf("%d..%d", spec.Min, spec.Max)
		}
		def := fmt.Sprint(spec.Default)
		if spec.Kind == gst.PropertyString {
			def = fmt.Sprintf("%q", spec.Default)
		}
		tw.AppendRow(table.Row{spec.Name, spec.Kind, def, limits, spec.Blurb})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Default", Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Name: "Range", Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

// padTable renders static pads with negotiated caps. Request pads are
// listed as a single row.
func padTable(e *gst.Element) string {
	tw := newTable("Name", "Direction", "Caps")
	for _, p := range e.Pads() {
		tw.AppendRow(table.Row{p.Name(), p.Direction(), p.QueryCaps()})
	}
	if _, ok := e.Impl().(gst.PadRequester); ok {
		tw.AppendRow(table.Row{"(request)", gst.PadSrc, "ANY"})
	}
	return tw.Render()
}

func newTable(header ...interface{}) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row(header))
	return tw
}

func flagsString(f gst.Flags) string {
	var s []string
	if f&gst.FlagSource != 0 {
		s = append(s, "source")
	}
	if f&gst.FlagSink != 0 {
		s = append(s, "sink")
	}
	if f&gst.FlagBin != 0 {
		s = append(s, "bin")
	}
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s, ",")
}
