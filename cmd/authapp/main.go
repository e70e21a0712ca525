package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/internal/logging"
	"github.com/jrsteele09/go-auth-session/router"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.New()

	root := &cobra.Command{
		Use:           "authapp",
		Short:         "Sign in with Apple or Google and keep the session",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(cfg.GetEnv(), cfg.GetLogLevel())
		},
	}
	root.AddCommand(
		newRunCmd(cfg),
		newSignInCmd(cfg),
		newSignOutCmd(cfg),
		newStatusCmd(cfg),
		newVersionCmd(),
	)
	return root
}

// withApp builds and starts the app, runs fn and closes the app again.
func withApp(cmd *cobra.Command, cfg config.Config, fn func(a *app) error) error {
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to start")
		return err
	}
	defer a.close()

	if err := a.start(cmd.Context()); err != nil {
		log.Error().Err(err).Msg("Failed to start")
		return err
	}
	return fn(a)
}

func newRunCmd(cfg config.Config) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Restore the stored session and show the matching screen",
		RunE: func(cmd *cobra.Command, args []string) error {
			displayAppname(cfg.GetAppName())
			return withApp(cmd, cfg, func(a *app) error {
				out := cmd.OutOrStdout()
				if err := router.Render(out, a.router.Current(), a.email()); err != nil {
					return err
				}
				if !watch {
					return nil
				}

				unsubscribe := a.router.OnChange(func(route string) {
					_ = router.Render(out, route, a.email())
				})
				defer unsubscribe()
				<-cmd.Context().Done()
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep running, refreshing the session until interrupted")
	return cmd
}

func newSignInCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:       "signin apple|google",
		Short:     "Sign in with Apple or Google in the system browser",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"apple", "google"},
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := parseProvider(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, cfg, func(a *app) error {
				setLoading := func(loading bool) {
					if loading {
						_ = router.RenderLoading(cmd.ErrOrStderr())
					}
				}

				if name == "apple" {
					err = a.manager.SignInWithApple(cmd.Context(), setLoading)
				} else {
					err = a.manager.SignInWithGoogle(cmd.Context(), setLoading)
				}
				if err != nil {
					return err
				}
				return router.Render(cmd.OutOrStdout(), a.router.Current(), a.email())
			})
		},
	}
}

func newSignOutCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out and remove the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cfg, func(a *app) error {
				if err := a.manager.SignOut(cmd.Context()); err != nil {
					return err
				}
				return router.Render(cmd.OutOrStdout(), a.router.Current(), "")
			})
		},
	}
}

type status struct {
	SignedIn  bool       `json:"signed_in"`
	UserID    string     `json:"user_id,omitempty"`
	Email     string     `json:"email,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Route     string     `json:"route"`
}

func newStatusCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the restored session state as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cfg, func(a *app) error {
				state := a.manager.State()
				s := status{SignedIn: state.Session != nil, Route: a.router.Current()}
				if state.User != nil {
					s.UserID = state.User.ID
					s.Email = state.User.Email
				}
				if exp := state.Session.Expiry(); !exp.IsZero() {
					s.ExpiresAt = &exp
				}

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			})
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
