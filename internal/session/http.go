package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"VinoStore/pkg/kit"
)

const (
	minPasswordLen = 8

	sessionLimitPerMin  = 20
	loginLimitPerMin    = 5
	registerLimitPerMin = 3
	limitWindow         = 60 * time.Second
)

type Server struct {
	Log      *zap.Logger
	Accounts AccountStore
	JWT      *TokenMaker
	TTL      time.Duration
}

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResp struct {
	AccessToken string  `json:"access_token"`
	Session     Session `json:"session"`
}

// Mount registers the public session and account routes.
func (s *Server) Mount(r chi.Router) {
	sessionLimiter := kit.NewIPRateLimiter(sessionLimitPerMin, limitWindow)
	loginLimiter := kit.NewIPRateLimiter(loginLimitPerMin, limitWindow)
	registerLimiter := kit.NewIPRateLimiter(registerLimitPerMin, limitWindow)

	r.With(sessionLimiter.Middleware).Post("/session", s.handleGuest)

	r.Route("/auth", func(rr chi.Router) {
		rr.With(loginLimiter.Middleware).Post("/login", s.handleLogin)
		rr.With(registerLimiter.Middleware).Post("/register", s.handleRegister)
		rr.With(RequireSession(s.JWT)).Get("/whoami", s.handleWhoAmI)
	})
}

func (s *Server) handleGuest(w http.ResponseWriter, r *http.Request) {
	s.issue(w, r, http.StatusCreated, NewGuest())
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	req.Email = normalizeEmail(req.Email)
	req.Password = normalizePassword(req.Password)

	if req.Email == "" || req.Password == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "email/password required", nil)
		return
	}
	if len(req.Password) < minPasswordLen {
		kit.WriteError(w, r, http.StatusBadRequest, "password too short", map[string]any{"min_len": minPasswordLen})
		return
	}

	id := "u_" + uuid.NewString()
	if err := s.Accounts.Create(r.Context(), id, req.Email, req.Password); err != nil {
		if errors.Is(err, ErrEmailExists) {
			kit.WriteError(w, r, http.StatusConflict, err.Error(), nil)
			return
		}
		s.Log.Error("create account", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	s.issue(w, r, http.StatusCreated, ForCustomer(Account{ID: id, Email: req.Email}))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	if normalizeEmail(req.Email) == "" || normalizePassword(req.Password) == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "email/password required", nil)
		return
	}

	a, err := s.Accounts.Verify(r.Context(), req.Email, req.Password)
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			s.Log.Error("verify account", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}

	s.issue(w, r, http.StatusOK, ForCustomer(a))
}

func (s *Server) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	sess, ok := FromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusUnauthorized, "no session", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, sess)
}

func (s *Server) issue(w http.ResponseWriter, r *http.Request, status int, sess Session) {
	tok, err := s.JWT.New(sess, s.TTL)
	if err != nil {
		s.Log.Error("token issue", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, status, tokenResp{AccessToken: tok, Session: sess})
}
