// Package storefront exposes the synced catalog to the UI over HTTP and
// implements the remote catalog client the scheduler fetches from.
package storefront

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"Storefront/internal/cache"
	"Storefront/internal/datasync"
	"Storefront/internal/identity"
	"Storefront/internal/search"
	"Storefront/pkg/kit"
)

var _ datasync.RemoteCatalog = (*CatalogClient)(nil)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 100
	eventBuffer        = 64
	keepAliveInterval  = 25 * time.Second
)

// SyncStatus is the part of the scheduler the API reports on.
type SyncStatus interface {
	State() datasync.State
	Status() datasync.Status
}

type Server struct {
	Cache   *cache.Cache
	Search  *search.Engine
	Sync    SyncStatus
	Session *identity.Session
	Log     *zap.Logger
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/search", s.search)
	r.Get("/filter", s.filter)
	r.Get("/sorted", s.sorted)
	r.Get("/price/{id}", s.price)
	r.Get("/recent", s.recent)
	r.Get("/products/{kind}/{id}", s.lookup)
	r.Get("/tags", func(w http.ResponseWriter, _ *http.Request) {
		kit.WriteJSON(w, http.StatusOK, s.Search.Tags())
	})
	r.Get("/price-bounds", func(w http.ResponseWriter, _ *http.Request) {
		kit.WriteJSON(w, http.StatusOK, s.Search.PriceBounds())
	})
	r.Get("/price-bands", func(w http.ResponseWriter, _ *http.Request) {
		kit.WriteJSON(w, http.StatusOK, s.Search.PriceBands())
	})
	r.Get("/announcement", func(w http.ResponseWriter, _ *http.Request) {
		kit.WriteJSON(w, http.StatusOK, s.Cache.Announcement())
	})
	r.Get("/discounts", func(w http.ResponseWriter, _ *http.Request) {
		kit.WriteJSON(w, http.StatusOK, s.Cache.Discounts())
	})
	r.Get("/sync/status", func(w http.ResponseWriter, _ *http.Request) {
		kit.WriteJSON(w, http.StatusOK, s.Sync.Status())
	})
	r.Get("/events", s.events)

	if s.Session != nil {
		r.Put("/session", s.signIn)
		r.Delete("/session", s.signOut)
	}

	return r
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.Search.Search(r.URL.Query().Get("q")))
}

func (s *Server) filter(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad filter", map[string]any{"cause": err.Error()})
		return
	}
	kit.WriteJSON(w, http.StatusOK, s.Search.Filter(f))
}

func parseFilter(r *http.Request) (search.Filter, error) {
	q := r.URL.Query()
	var f search.Filter

	if tags := strings.TrimSpace(q.Get("tags")); tags != "" {
		for _, t := range strings.Split(tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				f.Tags = append(f.Tags, t)
			}
		}
	}

	minS, maxS := q.Get("min_price"), q.Get("max_price")
	if minS != "" || maxS != "" {
		pr := search.PriceRange{Active: true, Max: math.MaxFloat64}
		var err error
		if minS != "" {
			if pr.Min, err = strconv.ParseFloat(minS, 64); err != nil {
				return f, err
			}
		}
		if maxS != "" {
			if pr.Max, err = strconv.ParseFloat(maxS, 64); err != nil {
				return f, err
			}
		}
		f.Price = pr
	}

	if rs := q.Get("rating"); rs != "" {
		n, err := strconv.Atoi(rs)
		if err != nil {
			return f, err
		}
		f.MinRating = n
	}
	return f, nil
}

func (s *Server) sorted(w http.ResponseWriter, r *http.Request) {
	asc := r.URL.Query().Get("order") != "desc"
	kit.WriteJSON(w, http.StatusOK, s.Search.SortByPrice(asc))
}

func (s *Server) price(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name := r.URL.Query().Get("field")
	if name == "" {
		name = "raw"
	}
	field, _ := search.ParsePriceField(name)

	kit.WriteJSON(w, http.StatusOK, map[string]any{
		"id":    id,
		"field": name,
		"price": s.Search.PriceLookup(id, field),
	})
}

func (s *Server) recent(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if ls := r.URL.Query().Get("limit"); ls != "" {
		n, err := strconv.Atoi(ls)
		if err != nil {
			kit.WriteError(w, r, http.StatusBadRequest, "bad limit", nil)
			return
		}
		limit = min(n, maxRecentLimit)
	}
	kit.WriteJSON(w, http.StatusOK, s.Cache.RecentlyAdded(limit))
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) {
	kind, ok := cache.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		kit.WriteError(w, r, http.StatusBadRequest, "bad kind", nil)
		return
	}
	id := chi.URLParam(r, "id")

	e, ok := s.Cache.LookupByID(kind, id)
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	if kind == cache.KindKit {
		kit.WriteJSON(w, http.StatusOK, e.Kit)
		return
	}
	kit.WriteJSON(w, http.StatusOK, e.Product)
}

// events streams every slice replacement as a server-sent event named after
// its topic, followed by the generic update event. Slow clients lose events
// rather than stall the cache writer.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		kit.WriteError(w, r, http.StatusInternalServerError, "streaming unsupported", nil)
		return
	}

	ch := make(chan cache.Event, eventBuffer)
	relay := func(ev cache.Event) {
		select {
		case ch <- ev:
		default:
		}
	}

	topics := []string{cache.TopicUpdate}
	for _, sl := range cache.Slices() {
		topics = append(topics, sl.Topic())
	}
	tokens := make([]cache.Token, 0, len(topics))
	for _, topic := range topics {
		tokens = append(tokens, s.Cache.Subscribe(topic, relay))
	}
	defer func() {
		for _, tok := range tokens {
			s.Cache.Unsubscribe(tok)
		}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := kit.WriteEvent(w, "ready", map[string]any{"state": s.Sync.State().String()}); err != nil {
		return
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if err := kit.WriteEvent(w, "ping", struct{}{}); err != nil {
				return
			}
		case ev := <-ch:
			err := kit.WriteEvent(w, ev.Topic, map[string]any{
				"slice":   ev.Slice.String(),
				"cycle":   ev.Cycle,
				"payload": ev.Payload,
			})
			if err != nil {
				if s.Log != nil {
					s.Log.Debug("event stream closed", zap.Error(err))
				}
				return
			}
		}
	}
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	tok, ok := kit.BearerToken(r)
	if !ok {
		kit.WriteError(w, r, http.StatusUnauthorized, "missing bearer token", nil)
		return
	}

	c, err := s.Session.SignIn(tok)
	if err != nil {
		kit.WriteError(w, r, http.StatusUnauthorized, "invalid token", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, map[string]any{"user_id": c.UserID})
}

func (s *Server) signOut(w http.ResponseWriter, _ *http.Request) {
	s.Session.SignOut()
	w.WriteHeader(http.StatusNoContent)
}
