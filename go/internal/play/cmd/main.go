package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/playtime/go/internal/play/audit"
	"github.com/mcdev12/playtime/go/internal/play/board"
	"github.com/mcdev12/playtime/go/internal/play/config"
	"github.com/mcdev12/playtime/go/internal/play/countdown"
	"github.com/mcdev12/playtime/go/internal/play/join"
	"github.com/mcdev12/playtime/go/internal/play/notify"
	"github.com/mcdev12/playtime/go/internal/play/state"
	"github.com/mcdev12/playtime/go/internal/play/status"
	"github.com/mcdev12/playtime/go/internal/play/transport"
	"github.com/mcdev12/playtime/go/internal/play/wallet"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(os.Getenv("PLAYTIME_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("unknown log level, keeping info")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	socketCfg := transport.DefaultConfig()
	socketCfg.URL = cfg.Server.URL
	socketCfg.Codec = cfg.Server.Codec
	socketCfg.MaxReconnects = cfg.Server.MaxReconnects
	socketCfg.ReconnectWait = cfg.Server.ReconnectWait

	client, err := transport.NewClient(socketCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create socket client")
	}

	store := state.NewStore()
	unbind := state.Bind(store, client)
	defer unbind()

	connector := wallet.NewConnector(wallet.NewRemoteSigner(cfg.Wallet.SignerURL, cfg.Wallet.Address, 0))
	notifier := notify.NewConsole(os.Stdout)

	var joinOpts []join.Option
	if cfg.Audit.NATSURL != "" {
		auditCfg := audit.DefaultConfig()
		auditCfg.URL = cfg.Audit.NATSURL
		auditCfg.SubjectPrefix = cfg.Audit.Subject
		auditCfg.StreamName = cfg.Audit.Stream

		publisher, err := audit.Connect(ctx, auditCfg)
		if err != nil {
			log.Warn().Err(err).Msg("audit publisher disabled")
		} else {
			defer publisher.Close()
			joinOpts = append(joinOpts, join.WithRecorder(publisher))
		}
	}

	requester := join.NewRequester(join.Config{
		Tag:         cfg.Join.Tag,
		Domain:      cfg.Join.Domain,
		SignTimeout: cfg.Wallet.SignTimeout,
	}, connector, client, store, notifier, joinOpts...)

	presenter := countdown.NewPresenter(clockwork.NewRealClock())
	view := board.New(os.Stdout, store, client, presenter, notifier, requester)

	log.Info().
		Str("client_id", client.ID()).
		Str("server_url", cfg.Server.URL).
		Str("codec", cfg.Server.Codec).
		Str("signer_url", cfg.Wallet.SignerURL).
		Str("address", cfg.Wallet.Address).
		Msg("starting playtime client")

	g, gctx := errgroup.WithContext(ctx)

	unmount := view.Mount(gctx)
	defer unmount()

	g.Go(func() error {
		return client.Run(gctx)
	})

	if cfg.Status.Addr != "" {
		server := status.NewServer(cfg.Status.Addr, status.NewHandler(client.ID(), store, presenter, requester, cfg.Status.Origins))

		g.Go(func() error {
			log.Info().Str("addr", server.Addr).Msg("status server starting")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	// stdin can't be interrupted, so the command loop lives outside the group
	commands := &commandLoop{
		board:  view,
		wallet: connector,
		out:    os.Stdout,
		quit:   stop,
	}
	go commands.run(gctx, os.Stdin)

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("playtime client stopped")
		unmount()
		os.Exit(1)
	}

	log.Info().Msg("playtime client shutdown complete")
}
