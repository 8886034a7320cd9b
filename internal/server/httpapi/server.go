// Package httpapi exposes the identity, profile, and storage services as a
// JSON HTTP API.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mzheleznov/profilehub/internal/logging"
	"github.com/mzheleznov/profilehub/internal/server/models"
	"github.com/mzheleznov/profilehub/internal/server/services"
)

// Identity is the authentication surface the API exposes.
type Identity interface {
	Register(ctx context.Context, email, password, username string) (*models.User, *services.TokenPair, error)
	Login(ctx context.Context, email, password string) (*models.User, *services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	VerifyAccessToken(tokenString string) (string, error)
}

// Profile is the profile/avatar surface the API exposes.
type Profile interface {
	Get(ctx context.Context, userID string) (*services.ProfileView, error)
	UpdateUsername(ctx context.Context, userID, username string) error
	SetAvatar(ctx context.Context, userID, key string) (*services.ProfileView, error)
	NewAvatarUploadURL(ctx context.Context, userID, ext, contentType string) (string, string, error)
}

// Server hosts the public HTTP API.
type Server struct {
	address  string
	logger   logging.Logger
	identity Identity
	profile  Profile
}

// NewServer constructs a Server bound to the given services.
func NewServer(address string, l logging.Logger, identity Identity, profile Profile) *Server {
	return &Server{
		address:  address,
		logger:   l.With("module", "httpapi"),
		identity: identity,
		profile:  profile,
	}
}

// Router builds the route table. Split out from Run so tests can exercise
// the handlers through httptest without binding a socket.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	api.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(s.authMiddleware)
	authed.HandleFunc("/profile", s.handleGetProfile).Methods(http.MethodGet)
	authed.HandleFunc("/profile", s.handleUpdateProfile).Methods(http.MethodPatch)
	authed.HandleFunc("/profile/avatar/url", s.handleAvatarUploadURL).Methods(http.MethodPost)
	authed.HandleFunc("/profile/avatar", s.handleConfirmAvatar).Methods(http.MethodPut)

	return r
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "stopping http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "starting http server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
