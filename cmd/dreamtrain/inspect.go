package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dream-go/trainer/internal/dump"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect WEIGHTS",
		Short: "List the tensors of a weights file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.OutOrStdout(), args[0])
		},
	}
}

func runInspect(w io.Writer, path string) error {
	entries, err := dump.Load(path)
	if err != nil {
		return err
	}

	var data [][]string
	var total int
	for _, e := range entries {
		scale := "-"
		if e.Encoding == dump.I1 {
			scale = strconv.FormatFloat(float64(e.Scale), 'g', 6, 32)
		}
		data = append(data, []string{e.Name, string(e.Encoding), humanize.Comma(int64(e.Count)), humanize.Bytes(uint64(e.ByteSize())), scale})
		total += e.ByteSize()
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"NAME", "TYPE", "ELEMENTS", "SIZE", "SCALE"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	_, err = fmt.Fprintf(w, "\n%d tensors, %s\n", len(entries), humanize.Bytes(uint64(total)))
	return err
}
