// Package httpapi exposes the dashboard REST API on chi.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gofrs/uuid/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/and161185/wordshelf/internal/errs"
	"github.com/and161185/wordshelf/internal/model"
	"github.com/and161185/wordshelf/internal/observability"
	"github.com/and161185/wordshelf/internal/service"
)

const maxBody = 1 << 20

// Server wires services into HTTP handlers.
type Server struct {
	auth service.AuthService
	lib  service.LibraryService
	log  *zap.Logger
}

// New constructs the API handlers.
func New(auth service.AuthService, lib service.LibraryService, log *zap.Logger) *Server {
	return &Server{auth: auth, lib: lib, log: observability.OrNop(log)}
}

// Options toggle optional routes and limits.
type Options struct {
	Metrics   bool    // expose /metrics
	AuthRPS   float64 // per-address rate on /v1/auth/*; 0 disables
	AuthBurst int
}

// Routes builds the router.
func (s *Server) Routes(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(Recover(s.log))
	r.Use(Logging(s.log))
	r.Use(Metrics)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if opts.AuthRPS > 0 {
				r.Use(s.RateLimit(opts.AuthRPS, max(1, opts.AuthBurst)))
			}
			r.Post("/auth/register", s.register)
			r.Post("/auth/login", s.login)
			r.Post("/auth/refresh", s.refresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.Bearer)
			r.Get("/subscription", s.subscription)
			r.Get("/pdfs/{id}/pages", s.pdfPages)
			r.Get("/{kind}", s.listItems)
			r.Post("/{kind}", s.createItem)
			r.Delete("/{kind}/{id}", s.deleteItem)
		})
	})
	return r
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type itemRequest struct {
	Folder string `json:"folder"`
	Text   string `json:"text"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.ErrInvalidArgument
	}
	return nil
}

func userInfo(u model.User) model.UserInfo {
	return model.UserInfo{ID: u.ID.String(), Email: u.Email, Name: u.Name, Plan: u.Plan}
}

func sessionBody(t model.Tokens, u model.User) model.Session {
	return model.Session{
		AccessToken:           t.AccessToken,
		AccessTokenExpiresAt:  t.AccessExpiresAt.Unix(),
		RefreshToken:          t.RefreshToken,
		RefreshTokenExpiresAt: t.RefreshExpiresAt.Unix(),
		User:                  userInfo(u),
	}
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.auth.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, userInfo(u))
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	tok, u, err := s.auth.Login(r.Context(), req.Username, req.Password, r.RemoteAddr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionBody(tok, u))
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	tok, u, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionBody(tok, u))
}

func (s *Server) subscription(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	sub, err := s.lib.Subscription(r.Context(), uid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// window reads offset and limit; a missing limit defaults to 20.
func window(r *http.Request) (int, int, error) {
	q := r.URL.Query()
	offset, limit := 0, 20
	var err error
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil {
			return 0, 0, errs.ErrInvalidArgument
		}
	}
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			return 0, 0, errs.ErrInvalidArgument
		}
	}
	return offset, limit, nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.FromString(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errs.ErrInvalidArgument
	}
	return id, nil
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	kind := model.Kind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		s.writeError(w, r, errs.ErrNotFound)
		return
	}
	offset, limit, err := window(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.lib.List(r.Context(), uid, model.ItemQuery{
		Kind:     kind,
		Folder:   r.URL.Query().Get("folder"),
		Statuses: r.URL.Query()["status"],
		Offset:   offset,
		Limit:    limit,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	kind := model.Kind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		s.writeError(w, r, errs.ErrNotFound)
		return
	}
	var req itemRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	it, err := s.lib.Save(r.Context(), model.SavedItem{
		UserID: uid, Kind: kind, Folder: req.Folder, Text: req.Text, URL: req.URL, Status: req.Status,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.lib.Delete(r.Context(), uid, model.Kind(chi.URLParam(r, "kind")), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) pdfPages(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	doc, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	offset, limit, err := window(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.lib.PDFPages(r.Context(), uid, doc, offset, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
