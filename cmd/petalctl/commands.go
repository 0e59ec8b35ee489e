package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/petalboard/petalboard-backend/config"
	"github.com/petalboard/petalboard-backend/database"
	"github.com/petalboard/petalboard-backend/internal/auth"
	"github.com/petalboard/petalboard-backend/internal/playlist"
	"github.com/petalboard/petalboard-backend/internal/spotify"
)

type rootOptions struct {
	Format string // "json" | "text"
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "petalctl",
		Short: "PetalBoard operations",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format != "text" && opts.Format != "json" {
				return fmt.Errorf("invalid format %q: must be text or json", opts.Format)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newSyncCommand(opts))
	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "migrate",
		Short:        "Create or update the database schema",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := open()
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newSyncCommand(opts *rootOptions) *cobra.Command {
	var eventID uint

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile an event's Spotify playlists now",
		Long: `Runs one playlist reconciliation for the event in the foreground and
prints what happened to each playlist question.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if eventID == 0 {
				return fmt.Errorf("--event is required")
			}
			cfg, db, err := open()
			if err != nil {
				return err
			}

			client := spotify.NewClient(spotify.Config{
				ClientID:          cfg.SpotifyClientID,
				ClientSecret:      cfg.SpotifyClientSecret,
				RedirectURI:       cfg.SpotifyRedirectURI,
				APIURL:            cfg.SpotifyAPIURL,
				AccountsURL:       cfg.SpotifyAccountsURL,
				Timeout:           cfg.SpotifyTimeout,
				RequestsPerSecond: cfg.SpotifyRPS,
			})
			reconciler := playlist.NewReconciler(playlist.NewRepository(db), auth.NewRepository(db), client)

			report, err := reconciler.Reconcile(cmd.Context(), eventID)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), opts.Format, report)
		},
	}
	cmd.Flags().UintVar(&eventID, "event", 0, "event ID")
	return cmd
}

func open() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func writeReport(w io.Writer, format string, report *playlist.Report) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	if report.Skipped {
		_, err := fmt.Fprintf(w, "event %d: skipped (organizer has no usable Spotify connection)\n", report.EventID)
		return err
	}
	if len(report.Questions) == 0 {
		_, err := fmt.Fprintf(w, "event %d: no playlist questions\n", report.EventID)
		return err
	}
	for _, q := range report.Questions {
		status := "ok"
		if q.Error != "" {
			status = "error: " + q.Error
		}
		created := ""
		if q.Created {
			created = " (created)"
		}
		playlistID := q.PlaylistID
		if playlistID == "" {
			playlistID = "-"
		}
		if _, err := fmt.Fprintf(w, "question %d: playlist %s%s, %d tracks, %s\n", q.QuestionID, playlistID, created, q.Tracks, status); err != nil {
			return err
		}
	}
	return nil
}
