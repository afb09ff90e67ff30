// Package cli implements the xpurge commands.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"xpurge/internal/config"
	"xpurge/internal/logging"
	"xpurge/internal/model"
	"xpurge/internal/purge"
	"xpurge/internal/session"
	"xpurge/internal/store/sqlitedb"
	"xpurge/internal/xclient"
)

var (
	cfgPath  string
	dbPath   string
	userID   string
	logLevel string

	cfg config.Config
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:           "xpurge",
	Short:         "Bulk delete your posts on X",
	Long:          "List your posts on X and delete them in paced batches, within the daily allowance of your plan.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		var err error
		cfg, err = config.LoadOrDefault(cfgPath)
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.Storage.DBPath = dbPath
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		logging.SetLevel(cfg.Log.Level)
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "./xpurge.yaml", "Config path")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: storage.dbPath or $XPURGE_DB)")
	RootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "local", "Profile the quota is booked against")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
}

func openStore() (*sqlitedb.DB, error) {
	return sqlitedb.Open(cfg.Storage.DBPath)
}

// newController wires the remote client, the engine and the store.
func newController(db *sqlitedb.DB, onPhase func(session.Phase)) *session.Controller {
	client := xclient.NewHTTPClient(cfg.Remote)
	engine := purge.NewEngine(client, cfg.Deletion.Pacing())
	return session.NewController(client, engine, db, session.Options{
		DailyLimit: cfg.Quota.DailyLimit,
		MaxBatch:   cfg.Deletion.MaxBatch,
		Events:     db,
		OnPhase:    onPhase,
	})
}

func addCredentialFlags(cmd *cobra.Command) {
	cmd.Flags().String("auth-token", "", "auth_token cookie of your X session (default: $X_AUTH_TOKEN)")
	cmd.Flags().String("csrf-token", "", "ct0 cookie of your X session (default: $X_CSRF_TOKEN)")
}

// credentials reads the session from flags, then the environment.
func credentials(cmd *cobra.Command) (model.Credentials, error) {
	auth, _ := cmd.Flags().GetString("auth-token")
	csrf, _ := cmd.Flags().GetString("csrf-token")
	if auth == "" {
		auth = os.Getenv("X_AUTH_TOKEN")
	}
	if csrf == "" {
		csrf = os.Getenv("X_CSRF_TOKEN")
	}
	c := model.Credentials{AuthToken: strings.TrimSpace(auth), CSRFToken: strings.TrimSpace(csrf)}
	if !c.Valid() {
		return c, purge.ErrMissingCredentials
	}
	return c, nil
}

func parseKind(s string) (model.Kind, error) {
	switch strings.ToLower(s) {
	case "", "all":
		return "", nil
	case "original", "originals", "post", "posts":
		return model.KindOriginal, nil
	case "retweet", "retweets", "repost", "reposts", "quote", "quotes":
		return model.KindRetweet, nil
	case "reply", "replies":
		return model.KindReply, nil
	}
	return "", fmt.Errorf("unknown kind %q (want original, retweet, reply or all)", s)
}

// confirm asks a yes/no question on in; anything but y/yes is a no.
func confirm(in *bufio.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, _ := in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
