package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"call-relay/internal/app/server"
	"call-relay/internal/config"
	"call-relay/internal/dispatch"
	"call-relay/internal/engine"
	"call-relay/internal/event"
)

func newCheckCmd() *cobra.Command {
	var probe bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and optionally write a test row and alert",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			return runCheck(cmd.Context(), cmd.OutOrStdout(), cfg, probe)
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", false, "append a TEST_CALLER row and send a test alert")
	return cmd
}

func runCheck(ctx context.Context, out io.Writer, cfg config.Config, probe bool) error {
	missing := cfg.Missing()
	if len(missing) > 0 {
		fmt.Fprintln(out, "missing settings:")
		for _, m := range missing {
			fmt.Fprintf(out, "  - %s\n", m)
		}
	} else {
		fmt.Fprintln(out, "configuration: ok")
	}
	fmt.Fprintf(out, "filter: campaign=%q target=%q\n", cfg.Filter.CampaignName, cfg.Filter.TargetName)
	fmt.Fprintf(out, "log sink: %s\n", cfg.LogSink.Driver)

	if !probe {
		if len(missing) > 0 {
			return fmt.Errorf("%d setting(s) missing", len(missing))
		}
		return nil
	}

	d, closeFn, err := server.NewDispatcher(ctx, cfg)
	defer closeFn()
	if err != nil {
		fmt.Fprintf(out, "sinks: FAILED (%v)\n", err)
		return err
	}

	ev := event.NormalizedEvent{CampaignName: cfg.Filter.CampaignName, CallerID: "TEST_CALLER"}
	res := d.Dispatch(ctx, engine.InScope(engine.LabelNoValue, "probe"), ev)
	return report(out, d, res)
}

func report(out io.Writer, d *dispatch.Dispatcher, res dispatch.Result) error {
	failed := 0
	if res.Logged {
		fmt.Fprintf(out, "%s: ok (row written at %s)\n", d.LogSinkName(), res.Time)
	} else {
		failed++
		fmt.Fprintf(out, "%s: FAILED (%v)\n", d.LogSinkName(), res.LogErr)
	}
	for _, name := range d.AlertSinkNames() {
		err, tried := res.Alerts[name]
		switch {
		case !tried:
			fmt.Fprintf(out, "%s: skipped\n", name)
		case err != nil:
			failed++
			fmt.Fprintf(out, "%s: FAILED (%v)\n", name, err)
		default:
			fmt.Fprintf(out, "%s: ok\n", name)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d sink probe(s) failed", failed)
	}
	return nil
}
