// Command custos-report prints the monthly sales analysis of a workbook on disk:
// the sheet list, per-month totals, the comparative series and the product margins.
// It can also write the chart page and the xlsx summary the dashboard offers.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
