package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"Storefront/pkg/kit"
)

const maxDocumentBytes = 4 << 20

// Paths maps each document to the route the storefront fetches it from.
var Paths = map[string]string{
	DocCategories:         "/categories",
	DocAllCategories:      "/categories/all",
	DocKits:               "/kits",
	DocPremiumProducts:    "/products/premium",
	DocNonPremiumProducts: "/products/non-premium",
	DocAllProducts:        "/products/all",
	DocDiscounts:          "/discounts",
	DocPriceRanges:        "/price-ranges",
	DocAnnouncement:       "/announcement",
}

type Server struct {
	Store      Store
	Log        *zap.Logger
	AdminToken string
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()

		if err := s.Store.Ping(ctx); err != nil {
			if s.Log != nil {
				s.Log.Warn("readyz failed", zap.Error(err))
			}
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	for name, path := range Paths {
		r.Get(path, s.document(name))
	}

	if s.AdminToken != "" {
		r.With(kit.BearerAuth(s.AdminToken)).Put("/documents/{name}", s.put)
	}

	return r
}

func (s *Server) document(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok, err := s.Store.Document(r.Context(), name)
		if err != nil {
			if s.Log != nil {
				s.Log.Error("get document failed", zap.Error(err), zap.String("document", name))
			}
			kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
			return
		}
		if !ok {
			kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"document": name})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

func (s *Server) put(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !KnownDocument(name) {
		kit.WriteError(w, r, http.StatusNotFound, "unknown document", map[string]any{"document": name})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "read body", map[string]any{"cause": err.Error()})
		return
	}
	if !json.Valid(body) {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	if err := s.Store.Put(r.Context(), name, body); err != nil {
		if s.Log != nil {
			s.Log.Error("put document failed", zap.Error(err), zap.String("document", name))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
