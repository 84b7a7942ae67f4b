// Package httpapi is the HTTP framing layer around the allocator and
// resolver core. It is deliberately thin: it decodes requests, calls
// the core, and maps core error kinds to status codes per §7's table.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"

	"github.com/koopa0/shortcore/internal/allocator"
	"github.com/koopa0/shortcore/internal/resolver"
)

// Pinger is the subset of store.Store the health handler needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the core collaborators the HTTP layer talks to.
type Handler struct {
	allocator    *allocator.Allocator
	resolver     *resolver.Resolver
	store        Pinger
	logger       *zap.Logger
	maxURLLength int
}

// Config configures a new Handler.
type Config struct {
	Allocator    *allocator.Allocator
	Resolver     *resolver.Resolver
	Store        Pinger
	Logger       *zap.Logger
	MaxURLLength int // store.max_url_length, default 2048
}

// NewHandler builds a Handler from cfg.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxLen := cfg.MaxURLLength
	if maxLen <= 0 {
		maxLen = 2048
	}
	return &Handler{
		allocator:    cfg.Allocator,
		resolver:     cfg.Resolver,
		store:        cfg.Store,
		logger:       logger,
		maxURLLength: maxLen,
	}
}

// ShortenHandler implements POST /api/shorten.
func (h *Handler) ShortenHandler(rw http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	if contentType != "application/json" {
		writeError(rw, http.StatusBadRequest, "InvalidRequest", "Content-Type must be application/json", "")
		return
	}

	var req ShortenRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(rw, http.StatusBadRequest, "InvalidRequest", "invalid JSON body", "")
		return
	}

	if err := h.validateURL(req.URL); err != nil {
		writeError(rw, http.StatusBadRequest, "InvalidRequest", err.Error(), "")
		return
	}

	outcome, err := h.allocator.Allocate(r.Context(), req.URL, req.Alias)
	if err != nil {
		h.writeAllocateError(rw, err)
		return
	}

	resp := ShortenResponse{Code: outcome.Code, URL: outcome.URL, IsNew: outcome.IsNew}
	status := http.StatusOK
	if outcome.IsNew {
		status = http.StatusCreated
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	if err := json.NewEncoder(rw).Encode(resp); err != nil {
		h.logger.Error("encode shorten response", zap.Error(err))
	}
}

func (h *Handler) validateURL(raw string) error {
	if raw == "" {
		return errors.New("url must not be empty")
	}
	if len(raw) > h.maxURLLength {
		return errors.New("url exceeds maximum length")
	}
	parsed, err := url.Parse(raw)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return errors.New("url must be a syntactically valid absolute URL")
	}
	return nil
}

// RedirectHandler implements GET /{code}.
func (h *Handler) RedirectHandler(rw http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		writeError(rw, http.StatusBadRequest, "InvalidRequest", "empty code", "")
		return
	}

	target, err := h.resolver.Resolve(r.Context(), code)
	if err != nil {
		h.writeResolveError(rw, err)
		return
	}

	rw.Header().Set("Location", target)
	rw.WriteHeader(http.StatusPermanentRedirect)
}

// InfoHandler implements GET /api/info/{code}: metadata about a code
// without performing the redirect, a read-only peek endpoint alongside
// the redirect path.
func (h *Handler) InfoHandler(rw http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		writeError(rw, http.StatusBadRequest, "InvalidRequest", "empty code", "")
		return
	}

	target, err := h.resolver.Resolve(r.Context(), code)
	if err != nil {
		h.writeResolveError(rw, err)
		return
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(rw).Encode(InfoResponse{Code: code, URL: target}); err != nil {
		h.logger.Error("encode info response", zap.Error(err))
	}
}

// HealthHandler implements GET /health and GET /healthz, grounded in
// a lightweight database ping.
func (h *Handler) HealthHandler(rw http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Error("database ping failed", zap.Error(err))
		writeError(rw, http.StatusServiceUnavailable, "StorageUnavailable", "database unreachable", "")
		return
	}
	rw.WriteHeader(http.StatusOK)
}

func (h *Handler) writeAllocateError(rw http.ResponseWriter, err error) {
	var ae *allocator.Error
	if !errors.As(err, &ae) {
		h.logger.Error("unrecognized allocate error", zap.Error(err))
		writeError(rw, http.StatusInternalServerError, "Internal", "internal error", "")
		return
	}

	switch ae.Kind {
	case allocator.KindInvalidAlias:
		writeError(rw, http.StatusUnprocessableEntity, string(ae.Kind), "alias rejected", string(ae.Reason))
	case allocator.KindAliasTaken:
		writeError(rw, http.StatusConflict, string(ae.Kind), "alias already in use", "")
	case allocator.KindCodeSpaceExhausted:
		writeError(rw, http.StatusInternalServerError, string(ae.Kind), "code space exhausted", "")
	case allocator.KindStorageUnavailable:
		writeError(rw, http.StatusServiceUnavailable, string(ae.Kind), "storage unavailable", "")
	default:
		writeError(rw, http.StatusInternalServerError, string(ae.Kind), "internal error", "")
	}
}

func (h *Handler) writeResolveError(rw http.ResponseWriter, err error) {
	var re *resolver.Error
	if !errors.As(err, &re) {
		h.logger.Error("unrecognized resolve error", zap.Error(err))
		writeError(rw, http.StatusInternalServerError, "Internal", "internal error", "")
		return
	}

	switch re.Kind {
	case resolver.KindNotFound:
		writeError(rw, http.StatusNotFound, string(re.Kind), "code not found", "")
	case resolver.KindStorageUnavailable:
		writeError(rw, http.StatusServiceUnavailable, string(re.Kind), "storage unavailable", "")
	default:
		writeError(rw, http.StatusInternalServerError, string(re.Kind), "internal error", "")
	}
}

func writeError(rw http.ResponseWriter, status int, kind, message, reason string) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(ErrorResponse{Kind: kind, Message: message, Reason: reason})
}
