package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc"
	"github.com/jabl/fancyquota/internal/app"
	"github.com/jabl/fancyquota/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, "fancyquota:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	c := config.Config{}
	cmd := &cobra.Command{
		Use:   "fancyquota",
		Short: "Print disk quotas in a readable way",
		Long: heredoc.Doc(`
			Print out disk quotas in a nice way. Works with automounted file
			systems, XFS project quotas over NFS, and filesystems re-exported
			over NFS whose quota is served by a quota gateway.

			Settings are read from /etc/fancyquota.toml,
			$XDG_CONFIG_HOME/fancyquota.toml (or ~/.config/fancyquota.toml)
			and ./fancyquota.toml, later files overriding earlier ones.
		`),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.PrintVersion {
				app.PrintVersion(cmd.OutOrStdout())
				return nil
			}
			loaded, err := config.Load(c)
			if err != nil {
				return err
			}
			loaded.Stdout = cmd.OutOrStdout()
			return app.Run(cmd.Context(), loaded)
		},
	}
	config.BindFlags(cmd.Flags(), &c)
	return cmd
}
