package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/kadr/internal/ui"
)

var remoteCmd = &cobra.Command{
	Use:     "remote",
	Short:   "Manage named catalog servers",
	GroupID: "system",
	// Remote subcommands only touch the local file.
	PersistentPreRunE: noClient,
}

// updateRemotes loads remotes.toml, applies fn and saves the result.
func updateRemotes(fn func(*RemotesConfig) error) error {
	cfg, err := loadRemotesConfig()
	if err != nil {
		return err
	}
	if err := fn(&cfg); err != nil {
		return err
	}
	return saveRemotesConfig(cfg)
}

var remoteAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add or replace a named remote",
	Example: `  kadr remote add hq https://kadr.hq.example --token $TOKEN
  kadr remote add hq-rpc https://kadr.hq.example --grpc kadr.hq.example:9090 --transport grpc`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		f := cmd.Flags()
		r := Remote{URL: strings.TrimRight(args[1], "/")}
		r.GRPCAddr, _ = f.GetString("grpc")
		r.Transport, _ = f.GetString("transport")
		r.Token, _ = f.GetString("token")
		r.NATSURL, _ = f.GetString("nats")
		if err := r.Validate(); err != nil {
			return fmt.Errorf("remote %q: %w", name, err)
		}
		use, _ := f.GetBool("use")

		err := updateRemotes(func(cfg *RemotesConfig) error {
			cfg.Remotes[name] = r
			if use || len(cfg.Remotes) == 1 {
				cfg.Active = name
			}
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %s saved (%s)\n", ui.RenderAccent(name), r.URL)
		return nil
	},
}

var remoteRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a named remote",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := updateRemotes(func(cfg *RemotesConfig) error { return cfg.Remove(args[0]) }); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %s removed\n", args[0])
		return nil
	},
}

var remoteListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List remotes; the active one is starred",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRemotesConfig()
		if err != nil {
			return err
		}
		if jsonOutput {
			for name, r := range cfg.Remotes {
				r.Token = maskToken(r.Token)
				cfg.Remotes[name] = r
			}
			printJSON(cfg)
			return nil
		}
		if len(cfg.Remotes) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no remotes configured (kadr remote add <name> <url>)")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  NAME\tTRANSPORT\tURL\tGRPC\tTOKEN")
		for _, name := range cfg.Names() {
			r := cfg.Remotes[name]
			marker := "  "
			if name == cfg.Active {
				marker = "* "
			}
			transport := r.Transport
			if transport == "" {
				transport = "http"
			}
			fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\t%s\n", marker, name, transport, r.URL, orDash(r.GRPCAddr), maskToken(r.Token))
		}
		return w.Flush()
	},
}

var remoteUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the active remote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := updateRemotes(func(cfg *RemotesConfig) error { return cfg.Use(args[0]) }); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "active remote set to %s\n", ui.RenderAccent(args[0]))
		return nil
	},
}

// maskToken keeps a short prefix so tokens can be told apart in listings.
func maskToken(tok string) string {
	const keep = 4
	if tok == "" {
		return "-"
	}
	if len(tok) <= keep {
		return strings.Repeat("*", len(tok))
	}
	return tok[:keep] + strings.Repeat("*", len(tok)-keep)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	f := remoteAddCmd.Flags()
	f.String("grpc", "", "gRPC address (host:port)")
	f.String("transport", "", "default transport for this remote: http or grpc")
	f.String("token", "", "bearer token")
	f.String("nats", "", "NATS URL used by kadr watch")
	f.Bool("use", false, "make this the active remote")

	remoteCmd.AddCommand(remoteAddCmd, remoteRemoveCmd, remoteListCmd, remoteUseCmd)
}
