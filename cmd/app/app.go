package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ticketgate/gate-api/internal/api"
	"github.com/ticketgate/gate-api/internal/cache"
	"github.com/ticketgate/gate-api/internal/config"
	"github.com/ticketgate/gate-api/internal/db"
	"github.com/ticketgate/gate-api/internal/logger"
	"github.com/ticketgate/gate-api/internal/pkg/jwthelper"
)

const defaultConfigPath = "./cmd/app/config.yml"

// Run dispatches to a subcommand. With no subcommand the server is started.
//
//	gate-api [--config PATH] [serve]
//	gate-api [--config PATH] token --operator NAME [--role ROLE] [--ttl DURATION]
func Run(args []string, stdout io.Writer) error {
	var configPath string

	flagSet := pflag.NewFlagSet("gate-api", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", defaultConfigPath, "path to the YAML config file")
	flagSet.SetInterspersed(false)
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	command, rest := "serve", flagSet.Args()
	if len(rest) > 0 {
		command, rest = rest[0], rest[1:]
	}

	switch command {
	case "serve":
		return serve(configPath)
	case "token":
		return issueToken(configPath, rest, stdout)
	}

	return fmt.Errorf("unknown command %q", command)
}

func serve(configPath string) error {
	conf, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to initialize config -> %w", err)
	}

	if err = logger.Init(conf.API.Environment); err != nil {
		return fmt.Errorf("failed to initialize logger -> %w", err)
	}
	if err = logger.SetLevel(conf.Log.Level); err != nil {
		return fmt.Errorf("failed to set log level -> %w", err)
	}

	err = config.Watch(configPath, func(conf *config.AppConfig, event fsnotify.Event) {
		if err := logger.SetLevel(conf.Log.Level); err != nil {
			zap.L().Warn("config reload: bad log level", zap.String("level", conf.Log.Level), zap.Error(err))
			return
		}
		zap.L().Info("config reloaded", zap.String("file", event.Name), zap.String("log_level", conf.Log.Level))
	})
	if err != nil {
		return fmt.Errorf("failed to watch config -> %w", err)
	}

	dbURL := os.Getenv("DATABASE_URL")
	var postgresDB *gorm.DB
	if dbURL != "" {
		postgresDB, err = db.OpenPostgresWithURL(dbURL)
	} else {
		postgresDB, err = db.OpenPostgres(conf.Postgres)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database -> %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closeCache, err := cache.Open(ctx, conf.Cache)
	if err != nil {
		return fmt.Errorf("failed to initialize cache -> %w", err)
	}
	defer closeCache()

	s := api.NewServer(conf, postgresDB, backend, nil)
	if err = s.Run(ctx); err != nil {
		return fmt.Errorf("failed to run the server -> %w", err)
	}

	return nil
}

func issueToken(configPath string, args []string, stdout io.Writer) error {
	var (
		operator string
		role     string
		ttl      time.Duration
	)

	flagSet := pflag.NewFlagSet("token", pflag.ContinueOnError)
	flagSet.StringVar(&operator, "operator", "", "operator name carried by the token (required)")
	flagSet.StringVar(&role, "role", "scanner", "operator role")
	flagSet.DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime, 0 for no expiry")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	conf, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to initialize config -> %w", err)
	}
	if conf.API.JWTSigningKey == "" {
		return errors.New("api.jwt_signing_key is not set")
	}

	token, err := jwthelper.GenerateToken([]byte(conf.API.JWTSigningKey), operator, role, ttl)
	if err != nil {
		return fmt.Errorf("jwthelper.GenerateToken -> %w", err)
	}

	_, err = fmt.Fprintln(stdout, token)
	return err
}
