package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/olivesarenice/telegram-rag/internal/profile"
	"github.com/olivesarenice/telegram-rag/server"
	"github.com/olivesarenice/telegram-rag/store"
	"github.com/olivesarenice/telegram-rag/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "notes",
	Short: `Save chat messages as enriched notes and answer questions from them.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		profile.LoadDotEnv()
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile, err := loadProfile()
		if err != nil {
			slog.Error("failed to load profile", "error", err)
			os.Exit(1)
		}
		setupLogger(instanceProfile)

		ctx, cancel := context.WithCancel(context.Background())
		storeInstance, err := openStore(ctx, instanceProfile)
		if err != nil {
			cancel()
			slog.Error("failed to open store", "error", err)
			return
		}

		s, err := server.NewServer(ctx, instanceProfile, storeInstance)
		if err != nil {
			cancel()
			slog.Error("failed to create server", "error", err)
			return
		}

		c := make(chan os.Signal, 1)
		// Trigger graceful shutdown on SIGINT or SIGTERM.
		// The default signal sent by the `kill` command is SIGTERM,
		// which is taken as the graceful shutdown signal for many systems, eg., Kubernetes, Gunicorn.
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)

		if err := s.Start(ctx); err != nil {
			cancel()
			slog.Error("failed to start server", "error", err)
			return
		}

		printGreetings(instanceProfile)

		go func() {
			<-c
			s.Shutdown(ctx)
			cancel()
		}()

		// Wait for CTRL-C.
		<-ctx.Done()
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8081)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver, sqlite or postgres")
	rootCmd.PersistentFlags().String("dsn", "", "database source name(aka. DSN)")
	rootCmd.PersistentFlags().String("base-url", "", "public url of this server, used in page links")

	for _, name := range []string{"mode", "addr", "port", "data", "driver", "dsn", "base-url"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("notes")
	viper.AutomaticEnv()
	if err := viper.BindEnv("base-url", "NOTES_BASE_URL"); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(saveCmd, askCmd, listCmd, vectorizeCmd)
}

func loadProfile() (*profile.Profile, error) {
	instanceProfile := &profile.Profile{
		Mode:    viper.GetString("mode"),
		Addr:    viper.GetString("addr"),
		Port:    viper.GetInt("port"),
		Data:    viper.GetString("data"),
		Driver:  viper.GetString("driver"),
		DSN:     viper.GetString("dsn"),
		BaseURL: viper.GetString("base-url"),
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		return nil, err
	}
	return instanceProfile, nil
}

func setupLogger(p *profile.Profile) {
	var handler slog.Handler
	if p.IsDev() {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

func openStore(ctx context.Context, p *profile.Profile) (*store.Store, error) {
	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, err
	}

	storeInstance := store.New(dbDriver, p)
	if err := storeInstance.Migrate(ctx); err != nil {
		storeInstance.Close()
		return nil, err
	}
	return storeInstance, nil
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("notes server running in %s mode, driver %s\n", p.Mode, p.Driver)
	if len(p.Addr) == 0 {
		fmt.Printf("listening on port %d\n", p.Port)
	} else {
		fmt.Printf("listening on %s:%d\n", p.Addr, p.Port)
	}
	fmt.Printf("references: %s, domain tags: %v\n", p.References, p.DomainTags)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
