package app

import (
	"context"
	"log"
	"time"

	"sharelist/api/internal/access"
	"sharelist/api/internal/activity"
	"sharelist/api/internal/authpw"
	"sharelist/api/internal/config"
	"sharelist/api/internal/email"
	"sharelist/api/internal/export"
	"sharelist/api/internal/realtime"
	"sharelist/api/internal/search"
	"sharelist/api/internal/store"
)

// dataStore is the relational store: every query, run on the pool or inside
// WithTx.
type dataStore interface {
	store.Querier
	WithTx(ctx context.Context, fn func(store.Querier) error) error
	Ping(ctx context.Context) error
}

// sessionStore keeps refresh tokens and revoked access tokens. Redis when
// configured, otherwise the relational store.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, userID int64, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
	RevokeAccessToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)
}

type hub interface {
	activity.Publisher
	Subscribe(ctx context.Context, listID int64) (*realtime.Subscription, error)
}

type searchIndex interface {
	Search(ctx context.Context, q search.Query) search.Response
	IndexList(rec search.ListRecord)
	IndexTask(rec search.TaskRecord)
	DeleteList(id int64, taskIDs []int64)
	DeleteTask(id int64)
}

type mailer interface {
	IsConfigured() bool
	SendShareNotification(to string, data email.ShareData) error
}

type exporter interface {
	Export(ctx context.Context, list store.List, req export.Request) (*export.Result, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the optional collaborators of Service. Nil fields fall
// back to in-process or no-op implementations.
type Dependencies struct {
	Sessions sessionStore
	Hub      hub
	Search   searchIndex
	Archiver activity.Archiver
	Mailer   mailer
	Exporter exporter
	// Redis is pinged by the readiness check when set.
	Redis pinger
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	auth     *authpw.Service
	hub      hub
	search   searchIndex
	archiver activity.Archiver
	mailer   mailer
	exporter exporter
	redis    pinger
	now      func() time.Time
}

func New(cfg config.Config, dataStore dataStore, deps Dependencies) *Service {
	s := &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: deps.Sessions,
		auth:     authpw.NewService(dataStore),
		hub:      deps.Hub,
		search:   deps.Search,
		archiver: deps.Archiver,
		mailer:   deps.Mailer,
		exporter: deps.Exporter,
		redis:    deps.Redis,
		now:      time.Now,
	}
	if s.sessions == nil {
		s.sessions = dataStore
	}
	if s.hub == nil {
		s.hub = realtime.NewLocalHub()
	}
	if s.exporter == nil {
		s.exporter = export.NewService(dataStore)
	}
	return s
}

// Ping checks the health of service dependencies (database, redis)
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) PingRedis(ctx context.Context) (configured bool, err error) {
	if s.redis == nil {
		return false, nil
	}
	return true, s.redis.Ping(ctx)
}

// txScope is what a mutation sees inside audited: the transaction handle, a
// gate reading through it, and the entries recorded so far.
type txScope struct {
	q        store.Querier
	gate     *access.Gate
	entries  []store.ActivityEntry
	onCommit []func(context.Context)
}

// record appends ev on the scope's transaction.
func (t *txScope) record(ctx context.Context, ev activity.Event) error {
	entry, err := activity.Record(ctx, t.q, ev)
	if err != nil {
		return err
	}
	t.entries = append(t.entries, entry)
	return nil
}

// after registers fn to run once the transaction has committed.
func (t *txScope) after(fn func(context.Context)) {
	t.onCommit = append(t.onCommit, fn)
}

// audited runs fn in one transaction. Recorded entries are published and
// post-commit hooks run only after a successful commit; their failures are
// logged and never reach the caller.
func (s *Service) audited(ctx context.Context, fn func(ctx context.Context, tx *txScope) error) error {
	var scope *txScope
	err := s.store.WithTx(ctx, func(q store.Querier) error {
		scope = &txScope{q: q, gate: access.New(q)}
		return fn(ctx, scope)
	})
	if err != nil {
		return err
	}

	bg := context.WithoutCancel(ctx)
	for _, entry := range scope.entries {
		if err := s.hub.Publish(bg, entry); err != nil {
			log.Printf("realtime: publish activity %d: %v", entry.ID, err)
		}
	}
	for _, fn := range scope.onCommit {
		fn(bg)
	}
	return nil
}

// gate reads through the pool for read-only operations.
func (s *Service) gate() *access.Gate {
	return access.New(s.store)
}
