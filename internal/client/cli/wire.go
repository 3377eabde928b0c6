package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/foodshare/internal/client/config"
	"github.com/dmitrijs2005/foodshare/internal/client/gateway"
	"github.com/dmitrijs2005/foodshare/internal/client/identity"
	"github.com/dmitrijs2005/foodshare/internal/client/media"
	"github.com/dmitrijs2005/foodshare/internal/client/models"
	"github.com/dmitrijs2005/foodshare/internal/client/mutation"
	"github.com/dmitrijs2005/foodshare/internal/client/notify"
	"github.com/dmitrijs2005/foodshare/internal/client/payment"
	"github.com/dmitrijs2005/foodshare/internal/client/services"
	"github.com/dmitrijs2005/foodshare/internal/client/session"
	"github.com/dmitrijs2005/foodshare/internal/client/storage"
	"github.com/dmitrijs2005/foodshare/internal/common"
	"github.com/dmitrijs2005/foodshare/internal/cryptox"
	"github.com/dmitrijs2005/foodshare/internal/filex"
	"github.com/dmitrijs2005/foodshare/internal/logging"
	"github.com/dmitrijs2005/foodshare/internal/metrics"
	"github.com/dmitrijs2005/foodshare/internal/retry"
)

// NewApp wires every client component from cfg. The returned App owns the
// local database and the metrics listener; Run closes them on exit.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	app := &App{
		config: cfg,
		logger: logger,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}

	ok := false
	defer func() {
		if !ok {
			_ = app.Close()
		}
	}()

	dir, err := filex.EnsureDir(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("data dir error: %w", err)
	}
	logger.Debug(ctx, "using data dir", "path", dir)

	store, err := storage.Open(ctx, cfg.DatabasePath())
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, store.Close)

	key, err := cryptox.LoadOrCreateKey(cfg.KeyPath())
	if err != nil {
		return nil, fmt.Errorf("session key error: %w", err)
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Routes(reg)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "metrics server stopped", "error", err)
			}
		}()
		app.closers = append(app.closers, srv.Close)
	}

	brokerOpts := []identity.Option{
		identity.WithSessionStore(identity.NewSealedStore(store.Metadata, key)),
		identity.WithLogger(logger),
	}
	if cfg.FederatedEnabled() {
		fed, err := identity.NewOIDCProvider(ctx, identity.OIDCConfig{
			Name:         cfg.OIDCProviderName,
			Issuer:       cfg.OIDCIssuer,
			ClientID:     cfg.OIDCClientID,
			ClientSecret: cfg.OIDCClientSecret,
			Open:         printURL(app.out),
			Logger:       logger,
		})
		if err != nil {
			return nil, fmt.Errorf("federated sign-in error: %w", err)
		}
		brokerOpts = append(brokerOpts, identity.WithFederated(fed))
	}
	broker := identity.NewBroker(passwordProvider(cfg), brokerOpts...)

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	gw, err := gateway.NewHTTPGateway(cfg.BackendURL,
		gateway.WithHTTPClient(httpClient),
		gateway.WithTokenSource(broker),
		gateway.WithRateLimit(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		gateway.WithRecorder(collector),
		gateway.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	machine := session.NewMachine(gw,
		session.WithPostLimit(cfg.PostLimit),
		session.WithRetryPolicy(retry.Constant(cfg.ProfileFetchAttempts, cfg.ProfileRetryBackoff)),
		session.WithRecorder(collector),
		session.WithLogger(logger),
	)

	coordinator := mutation.NewCoordinator(
		mutation.WithNotifier(notify.Multi{notify.NewWriter(app.out), notify.Log{Logger: logger}}),
		mutation.WithRecorder(collector),
		mutation.WithLogger(logger),
	)
	app.closers = append(app.closers, func() error {
		coordinator.Wait()
		return nil
	})

	var uploader media.Uploader = media.Passthrough{}
	if cfg.MediaEnabled() {
		uploader, err = media.NewS3Uploader(ctx, media.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("image storage error: %w", err)
		}
	}

	var confirmer payment.Confirmer
	if cfg.PaymentKey != "" {
		confirmer = payment.NewStripeConfirmer(cfg.PaymentKey,
			payment.WithBaseURL(cfg.PaymentURL),
			payment.WithHTTPClient(httpClient),
			payment.WithLogger(logger),
		)
	}

	svc := services.New(services.Deps{
		Gateway:     gw,
		Identity:    broker,
		Session:     machine,
		Coordinator: coordinator,
		Metadata:    store.Metadata,
		Uploader:    uploader,
		Confirmer:   confirmer,
		Logger:      logger,
	})

	app.authService = svc.Auth
	app.listingService = svc.Listings
	app.requestService = svc.Requests
	app.membershipService = svc.Membership
	app.session = machine
	app.current = broker.Current
	app.restore = startSession(broker, machine, store, logger)

	ok = true
	return app, nil
}

// startSession subscribes the machine to principal changes before the
// stored login is restored, so the restored principal is the first event it
// sees. Local data of a user who signs out is forgotten.
func startSession(broker *identity.Broker, machine *session.Machine, store *storage.Store, logger logging.Logger) func(context.Context) error {
	return func(ctx context.Context) error {
		sub := broker.ObservePrincipal()
		events := make(chan *models.Principal)
		go func() {
			defer sub.Close()
			defer close(events)
			var last *models.Principal
			for {
				select {
				case <-ctx.Done():
					return
				case p, ok := <-sub.C:
					if !ok {
						return
					}
					if p == nil && last != nil {
						if err := store.ForgetUser(ctx, last.Email); err != nil {
							logger.Warn(ctx, "local data not cleared", "email", last.Email, "error", err)
						}
					}
					last = p
					select {
					case events <- p:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
		go machine.Run(ctx, events)

		p, err := broker.Restore(ctx)
		if err != nil {
			return err
		}
		if p != nil {
			logger.Info(ctx, "session restored", "email", p.Email)
		}
		return nil
	}
}

func passwordProvider(cfg *config.Config) identity.PasswordProvider {
	if strings.EqualFold(cfg.IdentityMode, "rest") {
		return identity.NewRESTProvider(cfg.IdentityAPIKey,
			identity.WithEndpoints(cfg.IdentityURL, cfg.IdentityTokenURL),
		)
	}
	// Local accounts live only as long as the process.
	return identity.NewLocalProvider(common.GenerateRandByteArray(32))
}

func printURL(w io.Writer) identity.Opener {
	return func(url string) error {
		_, err := fmt.Fprintf(w, "Open this link in your browser to sign in:\n  %s\n", url)
		return err
	}
}
