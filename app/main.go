package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/robfig/cron/v3"
	"github.com/umputun/go-flags"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/cozummakina/montaj/app/backup"
	"github.com/cozummakina/montaj/app/ledger"
	"github.com/cozummakina/montaj/app/notify"
	"github.com/cozummakina/montaj/app/persistence"
	"github.com/cozummakina/montaj/app/roster"
	"github.com/cozummakina/montaj/app/web"
)

var opts struct {
	DB        string `short:"d" long:"db" env:"MONTAJ_DB" default:"montaj.db" description:"sqlite database file"`
	Demo      bool   `long:"demo" env:"MONTAJ_DEMO" description:"enable demo jobs"`
	Personnel bool   `long:"personnel" env:"MONTAJ_PERSONNEL" description:"enable personnel roster and team assignment"`
	Roster    string `long:"roster" env:"MONTAJ_ROSTER" description:"personnel roster yaml file to seed on startup"`
	Dbg       bool   `long:"dbg" env:"MONTAJ_DEBUG" description:"debug mode"`

	Web struct {
		Address      string        `long:"address" env:"ADDRESS" default:":8080" description:"web server listen address"`
		Password     string        `long:"password" env:"PASSWORD" description:"admin password"`
		PasswordHash string        `long:"password-hash" env:"PASSWORD_HASH" description:"bcrypt hash of admin password"`
		LoginTTL     time.Duration `long:"login-ttl" env:"LOGIN_TTL" default:"24h" description:"admin session ttl"`
		LoginRate    float64       `long:"login-rate" env:"LOGIN_RATE" default:"1" description:"login attempts per second per ip"`
		BaseURL      string        `long:"base-url" env:"BASE_URL" description:"base url path for reverse proxy, e.g. /montaj"`
	} `group:"web" namespace:"web" env-namespace:"MONTAJ_WEB"`

	Backup struct {
		Schedule string `long:"schedule" env:"SCHEDULE" description:"cron spec of spreadsheet backups, e.g. \"0 3 * * *\""`
		Dir      string `long:"dir" env:"DIR" default:"backups" description:"backup directory"`
		Keep     int    `long:"keep" env:"KEEP" default:"30" description:"backup files to keep, 0 keeps all"`
	} `group:"backup" namespace:"backup" env-namespace:"MONTAJ_BACKUP"`

	Notify struct {
		Webhooks      []string      `long:"webhook" env:"WEBHOOKS" env-delim:"," description:"webhook url(s)"`
		SlackToken    string        `long:"slack-token" env:"SLACK_TOKEN" description:"slack token"`
		SlackChannels []string      `long:"slack-channel" env:"SLACK_CHANNELS" env-delim:"," description:"slack channel(s)"`
		Timeout       time.Duration `long:"timeout" env:"TIMEOUT" default:"10s" description:"notification timeout"`
		Attempts      int           `long:"attempts" env:"ATTEMPTS" default:"3" description:"delivery attempts"`
		BaseURL       string        `long:"base-url" env:"BASE_URL" description:"dashboard url added to messages"`
	} `group:"notify" namespace:"notify" env-namespace:"MONTAJ_NOTIFY"`

	Log struct {
		Enabled         bool   `long:"enabled" env:"ENABLED" description:"enable logging to file"`
		Filename        string `long:"filename" env:"FILENAME" default:"montaj.log" description:"log file name"`
		MaxSize         int    `long:"max-size" env:"MAX_SIZE" default:"100" description:"max log file size in MB"`
		MaxBackups      int    `long:"max-backups" env:"MAX_BACKUPS" default:"7" description:"max number of old log files"`
		MaxAge          int    `long:"max-age" env:"MAX_AGE" default:"30" description:"max days to keep old log files"`
		EnabledCompress bool   `long:"compress" env:"COMPRESS" description:"compress rotated log files"`
	} `group:"log" namespace:"log" env-namespace:"MONTAJ_LOG"`
}

var revision = "unknown"

func main() {
	fmt.Printf("montaj %s\n", revision)

	p := flags.NewParser(&opts, flags.Default)
	p.NamespaceDelimiter = "."
	p.EnvNamespaceDelimiter = "_"
	if _, err := p.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}
	if opts.Web.Password == "" {
		opts.Web.Password = os.Getenv("ADMIN_PASSWORD")
	}

	setupLogs()
	defer func() {
		if x := recover(); x != nil {
			log.Printf("[WARN] run time panic:\n%v", x)
			panic(x)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	signals(cancel) // handle SIGQUIT and SIGTERM

	if err := run(ctx); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	store, err := persistence.NewSQLiteStore(opts.DB)
	if err != nil {
		return fmt.Errorf("can't open database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("[WARN] can't close database, %v", err)
		}
	}()

	params := ledger.Params{
		Store:        store,
		Capabilities: ledger.Capabilities{SupportsDemo: opts.Demo, SupportsPersonnel: opts.Personnel},
	}
	if notif := makeNotifier(); notif != nil {
		params.Notifier = notif
	}
	lg := ledger.New(params)
	log.Printf("[INFO] ledger ready, db %s, demo %v, personnel %v", opts.DB, opts.Demo, opts.Personnel)

	if opts.Roster != "" {
		if !opts.Personnel {
			return errors.New("roster file requires --personnel")
		}
		f, err := roster.Load(opts.Roster)
		if err != nil {
			return err
		}
		if _, err := roster.Seed(ctx, lg, f); err != nil {
			return fmt.Errorf("can't seed roster: %w", err)
		}
	}

	if opts.Backup.Schedule != "" {
		sched := &backup.Scheduler{Cron: cron.New(), Source: lg, Spec: opts.Backup.Schedule,
			Dir: opts.Backup.Dir, Keep: opts.Backup.Keep}
		go func() {
			if err := sched.Do(ctx); err != nil {
				log.Printf("[ERROR] backup scheduler failed, %v", err)
			}
		}()
	}

	passwordHash, err := makePasswordHash()
	if err != nil {
		return err
	}
	if passwordHash == "" {
		log.Printf("[WARN] no admin password set, dashboard is read-only")
	}

	srv, err := web.New(web.Config{
		Ledger:       lg,
		BaseURL:      validateBaseURL(opts.Web.BaseURL),
		Version:      revision,
		PasswordHash: passwordHash,
		LoginTTL:     opts.Web.LoginTTL,
		LoginRate:    opts.Web.LoginRate,
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx, opts.Web.Address)
}

// makeNotifier returns notification service, nil if no destinations configured
func makeNotifier() *notify.Service {
	return notify.NewService(notify.Params{
		Webhooks:      opts.Notify.Webhooks,
		SlackToken:    opts.Notify.SlackToken,
		SlackChannels: opts.Notify.SlackChannels,
		Timeout:       opts.Notify.Timeout,
		Attempts:      opts.Notify.Attempts,
		BaseURL:       opts.Notify.BaseURL,
	})
}

// makePasswordHash returns bcrypt hash of the admin password, prefers the pre-computed hash
func makePasswordHash() (string, error) {
	if opts.Web.PasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(opts.Web.PasswordHash)); err != nil {
			return "", fmt.Errorf("invalid password hash: %w", err)
		}
		return opts.Web.PasswordHash, nil
	}
	if opts.Web.Password == "" {
		return "", nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Web.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("can't hash password: %w", err)
	}
	return string(hash), nil
}

// validateBaseURL normalizes base url, drops trailing slash and converts "/" to empty
func validateBaseURL(u string) string {
	u = strings.TrimSuffix(strings.TrimSpace(u), "/")
	if u != "" && !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	return u
}

// setupLogs configures lgr, logs go to file with rotation if enabled, stdout otherwise
func setupLogs() io.Writer {
	out := io.Writer(os.Stdout)
	if opts.Log.Enabled {
		out = &lumberjack.Logger{
			Filename:   opts.Log.Filename,
			MaxSize:    opts.Log.MaxSize,
			MaxBackups: opts.Log.MaxBackups,
			MaxAge:     opts.Log.MaxAge,
			Compress:   opts.Log.EnabledCompress,
		}
	}

	if opts.Dbg {
		log.Setup(log.Debug, log.Msec, log.CallerFunc, log.CallerPkg, log.CallerFile, log.Out(out), log.Err(out))
		return out
	}
	log.Setup(log.Msec, log.Out(out), log.Err(out))
	return out
}

func signals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	go func() {
		stacktrace := make([]byte, 8192)
		for sig := range sigChan {
			if sig == syscall.SIGQUIT { // catch SIGQUIT and print stack traces
				length := runtime.Stack(stacktrace, true)
				fmt.Println(string(stacktrace[:length]))
				continue
			}
			cancel() // terminate on SIGTERM and SIGINT
		}
	}()
	signal.Notify(sigChan, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
}
