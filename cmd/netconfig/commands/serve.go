package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/keepithuman/netconfig-automation/internal/api"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "serve",
		Short:        "Run the REST API gateway",
		SilenceUsage: true,
		Long: `Serve starts the HTTP gateway in front of the orchestrator. All
fleet operations, device CRUD and deployment history are exposed under
/api/v1 behind JWT bearer auth; prometheus metrics are on /metrics.

The JWT secret and the admin password hash must be configured
(api.jwt_secret / api.admin_password_hash, or the NETCONFIG_JWT_SECRET
and NETCONFIG_ADMIN_PASSWORD_HASH environment variables).`,
		Example: `  # Serve on the configured address (default :5000)
  netconfig serve

  # Serve on another port
  netconfig serve --listen :8080`,
		RunE: runServe,
	}

	cmd.Flags().String("listen", "", "listen address (defaults to the configured api.listen)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	listen, _ := cmd.Flags().GetString("listen")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	apiCfg := cfg.API
	if listen != "" {
		apiCfg.Listen = listen
	}

	srv, err := api.NewServer(api.ServerDeps{
		Config:    apiCfg,
		Version:   Version,
		Inventory: a.Inventory,
		Store:     a.Store,
		Operator:  a.Orch,
		Metrics:   a.Metrics,
		Gatherer:  a.Registry,
		Logger:    a.Logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}
