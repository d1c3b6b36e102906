package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/time/rate"

	"fieldguard/internal/audit"
	"fieldguard/internal/auth"
	"fieldguard/internal/fields"
	"fieldguard/internal/guard"
	"fieldguard/internal/record"
	"fieldguard/internal/secrets"
	"fieldguard/internal/tenant"
)

type Server struct {
	cfg Config

	mux      *http.ServeMux
	signer   *auth.JWTSigner
	users    auth.UserStore
	members  guard.Memberships
	records  record.Store
	xform    *fields.Transformer
	guard    *guard.Guard
	auditLog *audit.Log
	recorder *audit.AsyncRecorder
	logger   *log.Logger

	storageClient *mongo.Client

	// Precomposed protected operations; the pipeline order is fixed at
	// construction and handlers cannot bypass it.
	readEmployee  guard.Protected
	writeEmployee guard.Protected
	listEmployees guard.Protected
	readBank      guard.Protected
	writeBank     guard.Protected
	readSettings  guard.Protected
	writeSettings guard.Protected

	rlLoginIP *keyedLimiter
	rlLoginID *keyedLimiter
	rlStepUp  *keyedLimiter
	rlGuarded *keyedLimiter
}

func New(ctx context.Context, cfg Config) (*Server, error) {
	cfg.setDefaults()

	logger := log.New(os.Stderr, "guardd: ", log.LstdFlags)

	s := &Server{
		cfg:      cfg,
		mux:      http.NewServeMux(),
		logger:   logger,
		auditLog: audit.NewLog(),
		xform:    fields.NewTransformer(logger),

		rlLoginIP: newKeyedLimiter(rate.Limit(1), 5, 10*time.Minute),
		rlLoginID: newKeyedLimiter(rate.Limit(0.2), 3, 30*time.Minute),
		rlStepUp:  newKeyedLimiter(rate.Limit(0.5), 3, 30*time.Minute),
		rlGuarded: newKeyedLimiter(rate.Limit(10), 20, 10*time.Minute),
	}
	s.recorder = audit.NewAsyncRecorder(s.auditLog, cfg.AuditQueueDepth, logger)

	priv, _, err := auth.GenerateEd25519()
	if err != nil {
		return nil, err
	}
	s.signer = auth.NewJWTSigner(priv, cfg.JWTIssuer, cfg.TokenTTL)

	var granter interface {
		Grant(ctx context.Context, uid, tenantID, role string) error
	}
	if cfg.MongoURI != "" {
		dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		cli, err := mongo.Connect(dialCtx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, err
		}
		if err := cli.Ping(dialCtx, readpref.Primary()); err != nil {
			return nil, err
		}
		s.storageClient = cli

		users, err := auth.NewMongoUserStore(ctx, cli, cfg.MongoDB, cfg.UsersCollection)
		if err != nil {
			return nil, err
		}
		members, err := tenant.NewMongoStore(ctx, cli, cfg.MongoDB, cfg.MembershipsCollection)
		if err != nil {
			return nil, err
		}
		s.users = users
		s.members = members
		granter = members
		s.records = record.NewMongoStore(cli, cfg.MongoDB, cfg.RecordsCollection)
	} else {
		s.users = auth.NewMemoryUserStore()
		mem := tenant.NewMemoryStore()
		s.members = mem
		granter = memGranter{mem}
		s.records = record.NewMemoryStore()
	}

	s.guard = guard.New(s.signer, s.members, secrets.Env{Prefix: cfg.SecretEnvPrefix}, s.recorder, logger)
	s.composeProtected()

	if err := s.seed(ctx, granter); err != nil {
		return nil, err
	}

	s.routes()
	return s, nil
}

type memGranter struct{ s *tenant.MemoryStore }

func (g memGranter) Grant(_ context.Context, uid, tenantID, role string) error {
	g.s.Grant(uid, tenantID, role)
	return nil
}

func (s *Server) seed(ctx context.Context, granter interface {
	Grant(ctx context.Context, uid, tenantID, role string) error
}) error {
	for _, su := range s.cfg.SeedUsers {
		hash, err := auth.HashPassword(auth.DefaultArgon, su.Password)
		if err != nil {
			return err
		}
		err = s.users.Add(ctx, &auth.User{
			UID:        su.UID,
			Email:      su.Email,
			PassHash:   hash,
			TOTPSecret: su.TOTPSecret,
		})
		if err != nil {
			s.logger.Printf("seed user %s: %v", su.UID, err)
			continue
		}
		for tenantID, role := range su.TenantRoles {
			if err := granter.Grant(ctx, su.UID, tenantID, role); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) Close(ctx context.Context) error {
	s.recorder.Close()
	if s.storageClient != nil {
		return s.storageClient.Disconnect(ctx)
	}
	return nil
}

// AuditLog exposes the event log for operator verification endpoints and
// tests.
func (s *Server) AuditLog() *audit.Log { return s.auditLog }
