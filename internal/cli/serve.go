package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/homevalai/homeval/internal/server"
	"github.com/homevalai/homeval/internal/style"
)

var (
	// Serve command flags
	servePort      int
	serveHost      string
	serveArtifacts string
	serveMetrics   bool
	serveCORS      bool
	serveShutdown  time.Duration
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP prediction server",
	Long: `Start an HTTP server that serves predictions via REST API.

The server provides:
- POST /api/v1/predict  run the three prediction targets over one input
- GET  /api/v1/schema   form-field metadata including selector options
- GET  /health          readiness check
- GET  /metrics         Prometheus metrics

Artifacts are loaded once at startup; a missing or inconsistent bundle stops
the server before it accepts any input.

Examples:
  homeval serve --artifacts ./artifacts          # Serve a bundle directory
  homeval serve --port 8080 --host 0.0.0.0       # Custom host and port`,
	Run: func(cmd *cobra.Command, args []string) {
		startServer(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server configuration
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "server port")
	serveCmd.Flags().StringVar(&serveHost, "host", "localhost", "server host")
	serveCmd.Flags().StringVarP(&serveArtifacts, "artifacts", "a", "artifacts", "artifact bundle directory")
	serveCmd.Flags().DurationVar(&serveShutdown, "shutdown-timeout", 30*time.Second, "graceful shutdown timeout")

	// Features
	serveCmd.Flags().BoolVar(&serveMetrics, "metrics", true, "enable Prometheus metrics endpoint")
	serveCmd.Flags().BoolVar(&serveCORS, "cors", true, "enable CORS headers")
}

func startServer(cmd *cobra.Command) {
	config := server.DefaultConfig()
	config.Host = serveHost
	config.Port = servePort
	config.ArtifactsDir = serveArtifacts
	config.EnableMetrics = serveMetrics
	config.EnableCORS = serveCORS
	config.ShutdownTimeout = serveShutdown

	srv := server.New(config)

	if err := srv.LoadArtifacts(); err != nil {
		style.Error(cmd.OutOrStderr(), fmt.Sprintf("Failed to load artifacts: %v", err))
		os.Exit(1)
	}

	if !viper.GetBool("quiet") {
		style.Success(cmd.OutOrStdout(), fmt.Sprintf("Homeval server starting at http://%s", srv.GetAddr()))
		fmt.Fprintf(cmd.OutOrStdout(), "API: http://%s/api/v1/predict\n", srv.GetAddr())
		if serveMetrics {
			fmt.Fprintf(cmd.OutOrStdout(), "Metrics: http://%s/metrics\n", srv.GetAddr())
		}
	}

	if err := srv.StartWithGracefulShutdown(); err != nil {
		style.Error(cmd.OutOrStderr(), fmt.Sprintf("Server error: %v", err))
		os.Exit(1)
	}
}
