package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"docqa/internal/events"
	"docqa/internal/worker"
)

var errEventsDisabled = errors.New("activity events are not configured; set rabbitmq.url or RABBITMQ_URL")

func newEventsCmd(open opener) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print client activity events as they arrive",
		Long:  "Consumes the activity queue and prints each conversation and upload event until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()
			if app.MQConn == nil {
				return errEventsDisabled
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			var (
				mu   sync.Mutex
				seen int
			)
			handle := func(_ context.Context, e events.Event) error {
				mu.Lock()
				defer mu.Unlock()
				fmt.Fprintln(out, eventLine(e))
				seen++
				if limit > 0 && seen >= limit {
					stop()
				}
				return nil
			}

			consumer := worker.NewEventConsumer(app.MQConn, app.Config.RabbitMQ.EventsQueue, handle, app.Logger)
			if err := consumer.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			consumer.Close()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "exit after this many events (0 means no limit)")
	return cmd
}

func eventLine(e events.Event) string {
	line := fmt.Sprintf("%s  %-20s %s", e.OccurredAt.Local().Format(time.DateTime), e.Type, e.Subject)
	if e.Detail != "" {
		line += "  " + e.Detail
	}
	return line
}
