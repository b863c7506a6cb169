package cmd

import (
	"bytes"
	"fmt"

	"github.com/achilleasa/rtsession/memory"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Probe available memory and report whether a scene of the given size fits.
func ShowMemory(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	provider := memory.SystemProvider{
		Threshold: ctx.GlobalUint64("low-memory-threshold") * memory.MB,
	}
	info, err := provider.MemoryInfo()
	if err != nil {
		return err
	}

	numPrimitives := ctx.Int("primitives")
	previewMB := memory.PreviewSceneSizeMB(numPrimitives)
	engineMB := memory.EngineSceneSizeMB(numPrimitives)

	guard := memory.NewGuard(provider)
	verdict := func(requiredMB int) string {
		low, err := guard.IsLowMemory(requiredMB)
		switch {
		case err != nil:
			return err.Error()
		case low:
			return "insufficient"
		}
		return "ok"
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Item", "MB", "Status"})
	table.AppendBulk([][]string{
		{"Total", fmt.Sprintf("%d", info.Total/memory.MB), ""},
		{"Available", fmt.Sprintf("%d", info.AvailableMB()), fmt.Sprintf("low memory flag: %t", info.LowMemory)},
		{fmt.Sprintf("Preview of %d primitives", numPrimitives), fmt.Sprintf("%d", previewMB), verdict(previewMB)},
		{fmt.Sprintf("Engine scene of %d primitives", numPrimitives), fmt.Sprintf("%d", engineMB), verdict(engineMB)},
	})
	if margin := ctx.Int("margin"); margin > 0 {
		table.Append([]string{"Margin", fmt.Sprintf("%d", margin), verdict(margin)})
	}

	table.Render()
	logger.Noticef("memory report\n%s", buf.String())
	return nil
}
