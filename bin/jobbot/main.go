package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/jobbot/bot"
	"github.com/hrygo/jobbot/internal/profile"
	"github.com/hrygo/jobbot/server"
	"github.com/hrygo/jobbot/store"
	"github.com/hrygo/jobbot/store/db"
)

const version = "0.1.0"

const greetingBanner = `
   _       _     _           _
  (_) ___ | |__ | |__   ___ | |_
  | |/ _ \| '_ \| '_ \ / _ \| __|
  | | (_) | |_) | |_) | (_) | |_
 _/ |\___/|_.__/|_.__/ \___/ \__|
|__/
`

var rootCmd = &cobra.Command{
	Use:   "jobbot",
	Short: "Telegram onboarding bot for job channel subscriptions",
	RunE: func(_ *cobra.Command, _ []string) error {
		instanceProfile := &profile.Profile{
			Mode:        viper.GetString("mode"),
			Addr:        viper.GetString("addr"),
			Port:        viper.GetInt("port"),
			Data:        viper.GetString("data"),
			Driver:      viper.GetString("driver"),
			DSN:         viper.GetString("dsn"),
			BotToken:    viper.GetString("bot-token"),
			PollTimeout: viper.GetInt("poll-timeout"),
			Version:     version,
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			return err
		}
		return run(instanceProfile)
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("addr", "")
	viper.SetDefault("port", 8231)
	viper.SetDefault("data", "")
	viper.SetDefault("driver", "")

	rootCmd.PersistentFlags().String("mode", "dev", `mode of the bot, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of the ops HTTP server")
	rootCmd.PersistentFlags().Int("port", 8231, "port of the ops HTTP server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "", "storage driver: jsonfile, sqlite or postgres")
	rootCmd.PersistentFlags().String("dsn", "", "database source name")
	rootCmd.PersistentFlags().String("bot-token", "", "Telegram bot token")
	rootCmd.PersistentFlags().Int("poll-timeout", 30, "Telegram long-polling timeout in seconds")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn", "bot-token", "poll-timeout"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("jobbot")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func run(instanceProfile *profile.Profile) error {
	level := slog.LevelInfo
	if instanceProfile.IsDev() {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return err
	}
	storeInstance := store.New(dbDriver, instanceProfile)
	defer func() {
		if err := storeInstance.Close(); err != nil {
			slog.Error("failed to close store", slog.String("error", err.Error()))
		}
	}()

	client, err := bot.NewClient(instanceProfile)
	if err != nil {
		return err
	}
	dispatcher := bot.NewDispatcher(storeInstance, client, client)
	opsServer := server.NewServer(instanceProfile, storeInstance)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Print(greetingBanner)
	slog.Info("bot started",
		slog.String("version", version),
		slog.String("mode", instanceProfile.Mode),
		slog.String("driver", instanceProfile.Driver),
		slog.String("account", client.Username()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.Run(gctx, dispatcher)
	})
	g.Go(func() error {
		return opsServer.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return opsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("bot stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %+v\n", err)
		os.Exit(1)
	}
}
