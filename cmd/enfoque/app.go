package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/Thiht/transactor"
	txStdLib "github.com/Thiht/transactor/stdlib"
	"github.com/charmbracelet/log"

	"github.com/benjamonnguyen/enfoque"
	"github.com/benjamonnguyen/enfoque/discordgo"
	"github.com/benjamonnguyen/enfoque/notify"
	"github.com/benjamonnguyen/enfoque/sqlite"
)

// app holds what every command needs: config, logger, db and repos.
type app struct {
	cfg       enfoque.Config
	l         *log.Logger
	db        *sql.DB
	tx        transactor.Transactor
	broker    *sqlite.Broker
	tasks     enfoque.TaskRepo
	reminders enfoque.ReminderRepo
	leases    enfoque.LeaseRepo
}

func newApp(ctx context.Context) (*app, error) {
	// config
	cfg, err := enfoque.LoadConfig(isProd, configFile)
	if err != nil {
		return nil, err
	}

	// logger
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	log.SetLevel(level)
	l := log.Default()

	// db
	l.Debug("opening db", "url", cfg.DatabaseURL)
	db, err := sqlite.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed database open: %w", err)
	}
	if err := sqlite.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed migration: %w", err)
	}

	tx, dbGetter := txStdLib.NewTransactor(db, txStdLib.NestedTransactionsSavepoints)
	broker := sqlite.NewBroker()
	return &app{
		cfg:       cfg,
		l:         l,
		db:        db,
		tx:        tx,
		broker:    broker,
		tasks:     sqlite.NewTaskRepo(dbGetter, l),
		reminders: sqlite.NewReminderRepo(dbGetter, l, broker),
		leases:    sqlite.NewLeaseRepo(dbGetter, l, nil),
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.l.Error("failed to close db", "err", err)
	}
}

// notifier fans out to the log, the terminal bell and Discord, as configured.
func (a *app) notifier() (notify.Notifier, error) {
	notifiers := notify.Multi{notify.NewLogNotifier(a.l)}
	if a.cfg.Bell {
		notifiers = append(notifiers, notify.NewBell(os.Stdout))
	}
	if a.cfg.DiscordToken != "" {
		cl, err := discordgo.NewClient(a.cfg.DiscordToken, fmt.Sprintf("enfoque (%s, v%s)", RepoURL, Version))
		if err != nil {
			return nil, fmt.Errorf("create discord client: %w", err)
		}
		notifiers = append(notifiers, discordgo.NewNotifier(cl, a.cfg.DiscordChannelID, a.l))
	}
	return notifiers, nil
}

// userID resolves the --user flag over the configured user.
func (a *app) userID(flag string) (enfoque.UserID, error) {
	if flag != "" {
		return enfoque.UserID(flag), nil
	}
	if a.cfg.UserID == "" {
		return "", fmt.Errorf("provide --user or ENFOQUE_USER_ID")
	}
	return a.cfg.UserID, nil
}
