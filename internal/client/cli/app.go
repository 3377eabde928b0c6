package cli

import (
	"bufio"
	"context"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/foodshare/internal/client/config"
	"github.com/dmitrijs2005/foodshare/internal/client/models"
	"github.com/dmitrijs2005/foodshare/internal/client/services"
	"github.com/dmitrijs2005/foodshare/internal/client/session"
	"github.com/dmitrijs2005/foodshare/internal/logging"
	"github.com/dmitrijs2005/foodshare/internal/pubsub"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// sessionView is what the CLI reads from the session machine.
type sessionView interface {
	Snapshot() session.Snapshot
	Await(ctx context.Context) (session.Snapshot, error)
	Refresh(ctx context.Context) (session.Snapshot, error)
	Watch() *pubsub.Subscription[session.Snapshot]
}

type App struct {
	config *config.Config
	logger logging.Logger

	authService       services.AuthService
	listingService    services.ListingService
	requestService    services.RequestService
	membershipService services.MembershipService
	session           sessionView
	current           func() *models.Principal
	restore           func(ctx context.Context) error

	reader *bufio.Reader
	out    io.Writer
	now    func() time.Time

	modeMu sync.Mutex
	Mode   Mode

	closers []func() error
}

func (a *App) setMode(mode Mode) {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	if a.Mode != mode {
		a.Mode = mode
		a.logger.Info(context.Background(), "connectivity changed", "mode", string(mode))
	}
}

func (a *App) mode() Mode {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	return a.Mode
}

// Run starts the background watchers and blocks in the REPL until the user
// exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.Close()

	go a.watchSession(ctx)
	if a.restore != nil {
		if err := a.restore(ctx); err != nil {
			a.logger.Warn(ctx, "session not restored", "error", err)
		}
	}
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	printlnFn("Welcome to FoodShare CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

// Close releases everything NewApp opened, last opened first.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

func (a *App) clock() time.Time {
	if a.now == nil {
		return time.Now()
	}
	return a.now()
}

func (a *App) isLoggedIn() bool {
	return a.principal() != nil
}

func (a *App) principal() *models.Principal {
	if a.current == nil {
		return nil
	}
	return a.current()
}

func (a *App) getStatus() string {
	s := ""
	if p := a.principal(); p != nil {
		s = p.Email + " "
	}
	if m := a.mode(); m != "" {
		s += string(m)
	}
	if s != "" {
		s = "(" + s + ")"
	}
	return s
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.authService.Ping(pctx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}

// watchSession logs every session phase change until ctx ends.
func (a *App) watchSession(ctx context.Context) {
	sub := a.session.Watch()
	defer sub.Close()

	last := session.Phase(-1)
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-sub.C:
			if !ok {
				return
			}
			if s.Phase == last {
				continue
			}
			last = s.Phase
			args := []any{"phase", s.Phase.String()}
			if s.Principal != nil {
				args = append(args, "email", s.Principal.Email)
			}
			if s.Err != nil {
				args = append(args, "error", s.Err)
			}
			a.logger.Debug(ctx, "session", args...)
		}
	}
}
