package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docmodel/internal/metrics"
	"github.com/mesh-intelligence/docmodel/internal/natsbus"
	"github.com/mesh-intelligence/docmodel/pkg/command"
)

const shutdownTimeout = 5 * time.Second

func newListenCmd() *cobra.Command {
	var (
		metricsAddr string
		record      bool
	)
	cmd := &cobra.Command{
		Use:   "listen [DOC_ID]",
		Short: "Follow command streams published over NATS",
		Long: "Without arguments, print every command envelope published on the bus.\n" +
			"With DOC_ID, mirror that document's stream into a local document,\n" +
			"optionally recording it in the journal and serving metrics.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			url := sess.config.GetString(cfgKeyNatsURL)
			conn, closeConn, err := natsbus.Connect(url, "docmodel-listen")
			if err != nil {
				return err
			}
			defer closeConn()

			if len(args) == 0 {
				return tapAll(ctx, cmd, conn)
			}
			return mirror(ctx, cmd, conn, args[0], record, metricsAddr)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().BoolVar(&record, "record", false, "record mirrored commands in the journal")
	return cmd
}

func tapAll(ctx context.Context, cmd *cobra.Command, conn natsbus.Conn) error {
	out := cmd.OutOrStdout()
	sub, err := natsbus.Tap(conn, natsbus.AllSubjects, func(env natsbus.Envelope) {
		if flags.jsonMode {
			_ = printJSON(cmd, env)
			return
		}
		fmt.Fprintf(out, "%s %s %s %s from %s\n",
			env.SentAt.Format(time.RFC3339), env.DocumentID, env.Op, env.Type, env.Origin)
	})
	if err != nil {
		return err
	}
	defer func() { _ = sub.Unsubscribe() }()
	logger().Info("listening", "subject", natsbus.AllSubjects)
	<-ctx.Done()
	return nil
}

// mirror applies every remote operation on docID to a local document until
// ctx is cancelled.
func mirror(ctx context.Context, cmd *cobra.Command, conn natsbus.Conn, docID string, record bool, metricsAddr string) error {
	store, err := loadTemplates()
	if err != nil {
		return err
	}
	d, err := newDocument(docID, store, true)
	if err != nil {
		return err
	}

	if record {
		j, err := attachJournal()
		if err != nil {
			return err
		}
		defer func() {
			if err := j.Detach(); err != nil {
				logger().Error("finalize journal", "error", err)
			}
		}()
		d.Stack().AddObserver(j.Observer(docID))
	}

	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		rec, err := metrics.NewRecorder(reg)
		if err != nil {
			return err
		}
		d.Stack().AddObserver(rec.Observer(docID, d.Stack()))
		srv := &http.Server{Addr: metricsAddr, Handler: metrics.Handler(reg), ReadHeaderTimeout: shutdownTimeout}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger().Error("metrics server", "error", err)
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	sub := natsbus.NewSubscriber(natsbus.SubscriberConfig{
		Conn:       conn,
		DocumentID: docID,
		Origin:     uuid.NewString(),
		Stack:      d.Stack(),
		Context:    d.Context(),
		Logger:     logger(),
	})
	d.Stack().AddObserver(commandPrinter(cmd))
	if err := sub.Start(); err != nil {
		return err
	}
	defer func() { _ = sub.Stop() }()

	logger().Info("mirroring", "document", docID, "subject", natsbus.Subject(docID))
	<-ctx.Done()

	sub.Do(func() { d.Evaluate() })
	reports, err := itemReports(d, false)
	if err != nil {
		return err
	}
	if flags.jsonMode {
		return printJSON(cmd, map[string]any{"document": docID, "items": reports})
	}
	for _, r := range reports {
		fmt.Fprintf(cmd.OutOrStdout(), "item %s: %d attributes\n", r.ID, len(r.Attributes))
	}
	return nil
}

// commandPrinter reports each applied remote operation on stdout.
func commandPrinter(cmd *cobra.Command) command.Observer {
	return command.ObserverFunc(func(op command.Op, c command.Command) {
		if flags.jsonMode {
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", op, c.TypeName())
	})
}
