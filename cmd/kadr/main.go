package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/kadr/internal/client"
	"github.com/alfredjeanlab/kadr/internal/ui"
)

var (
	serverAddr string
	httpURL    string
	transport  string
	token      string
	jsonOutput bool
	verbose    bool

	catalogClient client.CatalogClient
	logger        = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
)

func defaultHTTPURL() string {
	if s := os.Getenv("KADR_HTTP_URL"); s != "" {
		return s
	}
	if r, ok := activeRemote(); ok && r.URL != "" {
		return r.URL
	}
	return "http://localhost:8080"
}

func defaultServer() string {
	if s := os.Getenv("KADR_SERVER"); s != "" {
		return s
	}
	if r, ok := activeRemote(); ok && r.GRPCAddr != "" {
		return r.GRPCAddr
	}
	return "localhost:9090"
}

func defaultTransport() string {
	if s := os.Getenv("KADR_TRANSPORT"); s != "" {
		return s
	}
	if r, ok := activeRemote(); ok && r.Transport != "" {
		return r.Transport
	}
	return "http"
}

func defaultToken() string {
	if s := os.Getenv("KADR_TOKEN"); s != "" {
		return s
	}
	if r, ok := activeRemote(); ok {
		return r.Token
	}
	return ""
}

// setupLogging installs the CLI logger: warnings by default, debug with --verbose.
func setupLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// newClient builds the catalog client for the selected transport.
func newClient() (client.CatalogClient, error) {
	var creds client.CredentialProvider
	if token != "" {
		creds = client.StaticToken(token)
	}
	switch transport {
	case "http":
		return client.NewHTTPClient(httpURL, creds), nil
	case "grpc":
		c, err := client.NewGRPCClient(serverAddr, creds)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to server: %w", err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown transport %q (must be http or grpc)", transport)
}

// noClient is used by commands that never talk to the catalog service.
func noClient(*cobra.Command, []string) error {
	setupLogging()
	return nil
}

var rootCmd = &cobra.Command{
	Use:           "kadr <command>",
	Short:         "Personnel catalog server and picker client",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		if !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		catalogClient = c
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if catalogClient != nil {
			_ = catalogClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "HTTP server URL")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", defaultServer(), "gRPC server address")
	rootCmd.PersistentFlags().StringVar(&transport, "transport", defaultTransport(), "transport protocol (http or grpc)")
	rootCmd.PersistentFlags().StringVar(&token, "token", defaultToken(), "bearer token")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")

	rootCmd.AddGroup(
		&cobra.Group{ID: "catalogs", Title: "Catalogs:"},
		&cobra.Group{ID: "personnel", Title: "Personnel:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)
	cobra.EnableCommandSorting = false

	// Catalogs
	rootCmd.AddCommand(optionsCmd)
	rootCmd.AddCommand(pickCmd)

	// Personnel
	rootCmd.AddCommand(checkPINFLCmd)
	rootCmd.AddCommand(personCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.RenderError("Error: ")+err.Error())
		os.Exit(1)
	}
}
