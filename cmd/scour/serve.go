package main

import (
	"github.com/spf13/cobra"

	"github.com/TFMV/scour/api"
	"github.com/TFMV/scour/metrics"
	"github.com/TFMV/scour/pipeline"
)

func newServeCommand(g *GlobalOptions) *cobra.Command {
	var port string
	var prefork bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Scour HTTP API",
		Long: `The serve command exposes profiling and cleaning over HTTP:

  GET  /health       liveness probe
  GET  /version      build information
  GET  /metrics      Prometheus metrics
  POST /v1/profile   profile and score a JSON dataset
  POST /v1/clean     clean a JSON dataset and return the report`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := g.load(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("port") {
				port = g.cfg.Server.Port
			}
			if !cmd.Flags().Changed("prefork") {
				prefork = g.cfg.Server.Prefork
			}

			collector, err := metrics.NewCollector()
			if err != nil {
				return err
			}
			engine, err := g.engine(pipeline.WithMetrics(collector))
			if err != nil {
				return err
			}

			return api.NewServer(api.ServerOptions{
				Port:      port,
				Prefork:   prefork,
				Engine:    engine,
				Collector: collector,
				Logger:    g.logger,
			}).Start()
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "3000", "Port to listen on")
	cmd.Flags().BoolVar(&prefork, "prefork", false, "Enable Fiber prefork mode")

	return cmd
}
