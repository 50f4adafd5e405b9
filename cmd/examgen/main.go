package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pavelanni/examgen/internal/api"
	"github.com/pavelanni/examgen/internal/chatsync"
	appI18n "github.com/pavelanni/examgen/internal/i18n"
	"github.com/pavelanni/examgen/internal/model"
	"github.com/pavelanni/examgen/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "examgen",
		Short:        "Chat with a study assistant and turn its answers into exam papers",
		SilenceUsage: true,
	}

	chat := chatCmd()
	root.AddCommand(chat, exportCmd(), extractCmd(), historyCmd(), devserverCmd())

	// Make "chat" the default when no subcommand is given.
	root.RunE = chat.RunE
	root.Flags().AddFlagSet(chat.Flags())

	return root
}

func addLogFlags(f *pflag.FlagSet) {
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func addClientFlags(f *pflag.FlagSet) {
	f.String("api-url", "http://localhost:8000", "Backend base URL")
	f.Duration("request-timeout", api.DefaultTimeout, "Timeout for a single backend request")
	f.Duration("poll-interval", chatsync.DefaultPollInterval, "Delay between history checks after a failed reply")
	f.Int("poll-max-attempts", chatsync.DefaultMaxAttempts, "History checks to schedule before giving up")
	f.String("cache", "examgen.db", "SQLite file for the local transcript cache")
	f.StringP("lang", "l", "en", "Language for notices (en, ru)")
	f.Int64P("subject", "s", 0, "Subject ID (default: last used)")
	addLogFlags(f)
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("EXAMGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examgen")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examgen")
	v.AddConfigPath("/etc/examgen")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func clientConfig(v *viper.Viper) model.ClientConfig {
	return model.ClientConfig{
		APIURL:         v.GetString("api-url"),
		RequestTimeout: v.GetDuration("request-timeout"),
		PollInterval:   v.GetDuration("poll-interval"),
		MaxAttempts:    v.GetInt("poll-max-attempts"),
		Lang:           v.GetString("lang"),
	}
}

// clientEnv is what every client-side command needs: config, the backend
// client, the local cache and a localized context.
type clientEnv struct {
	cfg    model.ClientConfig
	client *api.Client
	cache  *store.Store
	ctx    context.Context
}

func newClientEnv(cmd *cobra.Command) (*clientEnv, *viper.Viper, error) {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	cfg := clientConfig(v)

	if err := appI18n.Init(cfg.Lang); err != nil {
		return nil, nil, fmt.Errorf("init i18n: %w", err)
	}
	cache, err := store.New(v.GetString("cache"))
	if err != nil {
		return nil, nil, fmt.Errorf("open cache: %w", err)
	}

	return &clientEnv{
		cfg:    cfg,
		client: api.New(cfg.APIURL, cfg.RequestTimeout),
		cache:  cache,
		ctx:    appI18n.WithLang(cmd.Context(), cfg.Lang),
	}, v, nil
}

// resolveSubject picks the subject to work with: the --subject flag, then
// the last one used, then the first one the backend knows.
func (e *clientEnv) resolveSubject(id int64) (model.Subject, error) {
	if id == 0 {
		last, ok, err := e.cache.LastSubject()
		if err != nil {
			slog.Warn("failed to read last subject", "error", err)
		}
		if ok {
			return last, nil
		}
	}

	ctx, cancel := context.WithTimeout(e.ctx, 30*time.Second)
	defer cancel()
	subjects, err := e.client.ListSubjects(ctx)
	if err != nil {
		if id != 0 {
			slog.Warn("could not list subjects, using ID only", "subject_id", id, "error", err)
			return model.Subject{ID: id, Name: fmt.Sprintf("#%d", id)}, nil
		}
		return model.Subject{}, fmt.Errorf("list subjects: %w", err)
	}
	for _, s := range subjects {
		if id == 0 || s.ID == id {
			return s, nil
		}
	}
	if id != 0 {
		return model.Subject{}, fmt.Errorf("subject %d not found", id)
	}
	return model.Subject{}, fmt.Errorf("the backend has no subjects yet")
}
