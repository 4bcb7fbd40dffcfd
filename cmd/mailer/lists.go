package main

import (
	"io"
	"strconv"
	"strings"

	"github.com/kalabox/email"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var listsCmd = &cobra.Command{
	Use:   "lists",
	Short: "Show the configured recipient lists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cfg, err := readConfig()
		if err != nil {
			return err
		}

		renderLists(cmd.OutOrStdout(), cfg.Directory())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listsCmd)
}

func renderLists(w io.Writer, dir email.Directory) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"List", "Count", "Addresses"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for _, name := range dir.Names() {
		addrs, _ := dir.Lookup(name)
		table.Append([]string{"@" + name, strconv.Itoa(len(addrs)), strings.Join(addrs, ", ")})
	}

	table.Render()
}
