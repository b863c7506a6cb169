package cmd

import (
	"bytes"
	"fmt"

	"github.com/achilleasa/rtsession/engine"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// List the scenes, shaders and accelerators accepted by the render flags.
func ListCatalog(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoMergeCells(true)
	table.SetHeader([]string{"Kind", "Id", "Name"})

	catalog := []struct {
		kind  string
		names []string
	}{
		{"scene", engine.SceneNames()},
		{"shader", engine.ShaderNames()},
		{"accelerator", engine.AcceleratorNames()},
	}
	for _, entry := range catalog {
		for id, name := range entry.names {
			table.Append([]string{entry.kind, fmt.Sprintf("%d", id), name})
		}
	}

	table.Render()
	logger.Noticef("available options\n%s", buf.String())
	return nil
}
