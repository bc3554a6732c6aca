package main

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/seanblong/paperrag/internal/auth"
	"github.com/seanblong/paperrag/internal/rag"
	"github.com/seanblong/paperrag/pkg/models"
)

const (
	searchTimeout = 10 * time.Second
	askTimeout    = 2 * time.Minute
)

type Simple struct {
	Text    string  `json:"text"`
	Source  string  `json:"source"`
	Section string  `json:"section,omitempty"`
	Title   string  `json:"title,omitempty"`
	Score   float64 `json:"score"`
}

func output(res []models.RetrievalResult) (out []Simple) {
	out = make([]Simple, 0, len(res))
	for _, r := range res {
		score := r.Score
		if math.IsNaN(score) || math.IsInf(score, 0) {
			score = 0
		}
		out = append(out, Simple{
			Text:    r.Text,
			Source:  r.Source(),
			Section: r.Metadata[models.MetaSection],
			Title:   r.Metadata[models.MetaTitle],
			Score:   score,
		})
	}
	return out
}

type askRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

type askResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
	Context []Simple `json:"context"`
}

// pinger is implemented by index backends that sit behind a connection.
type pinger interface {
	Ping(ctx context.Context) error
}

// newHandler wires the API routes around p and wraps them with request
// logging. When health is set, /healthz reports 503 while it fails.
func newHandler(logger zerolog.Logger, p *rag.Pipeline, health pinger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health.Ping(r.Context()); err != nil {
				hlog.FromRequest(r).Warn().Err(err).Msg("health check failed")
				http.Error(w, "index unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(200)
	})

	// Auth status endpoint (always available)
	mux.HandleFunc("/auth/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(map[string]bool{"enabled": auth.IsAuthEnabled()})
		if err != nil {
			http.Error(w, "Failed to encode response", 500)
		}
	})

	mux.HandleFunc("/search", auth.OptionalAuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		k := 0
		if v := r.URL.Query().Get("k"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				k = n
			}
		}
		if q == "" {
			http.Error(w, "missing query parameter q", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), searchTimeout)
		defer cancel()
		res, err := p.Retrieve(ctx, q, k)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Str("q", q).Msg("search failed")
			http.Error(w, "search failed", 500)
			return
		}

		writeJSON(w, r, output(res))
		hlog.FromRequest(r).Info().Str("path", "/search").Str("q", q).Int("k", k).Int("results", len(res)).Dur("dur", time.Since(start)).Msg("served")
	}))

	mux.HandleFunc("/ask", auth.OptionalAuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		start := time.Now()

		var req askRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Question) == "" {
			http.Error(w, "missing question", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), askTimeout)
		defer cancel()
		ans, err := p.Ask(ctx, req.Question, req.TopK)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("ask failed")
			http.Error(w, "answer generation failed", http.StatusBadGateway)
			return
		}

		writeJSON(w, r, askResponse{
			Answer:  ans.Text,
			Sources: ans.Sources,
			Context: output(ans.Results),
		})

		ev := hlog.FromRequest(r).Info().Str("path", "/ask").Int("sources", len(ans.Sources)).Dur("dur", time.Since(start))
		if u := auth.GetUserFromContext(r); u != nil {
			ev = ev.Str("subject", u.Subject)
		}
		ev.Msg("served")
	}))

	return hlog.NewHandler(logger)(
		hlog.AccessHandler(func(r *http.Request, status, size int, dur time.Duration) {
			logger.Info().Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Int("size", size).Dur("dur", dur).Msg("http")
		})(mux),
	)
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to encode response")
	}
}
