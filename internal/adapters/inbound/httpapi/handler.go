package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pennyhailey/witness-protocol/internal/domain"
	"github.com/pennyhailey/witness-protocol/internal/ports"
)

// SummaryResponse is the body of GET /v1/subjects/{subject}/summary.
type SummaryResponse struct {
	Summary domain.Summary `json:"summary"`
	// Contests maps each contested record to the number of attestations contesting it
	Contests map[string]int `json:"contests"`
	Sources  ports.Sources  `json:"sources"`
	Warnings []string       `json:"warnings"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type handler struct {
	svc      ports.DiscoveryService
	parser   ports.IdentifierParser
	defaults ports.DiscoverOptions
	logger   *slog.Logger
}

// HandlerOption configures the API handler
type HandlerOption func(*handler)

// WithDefaults sets the discovery options used for query parameters a request omits
func WithDefaults(opts ports.DiscoverOptions) HandlerOption {
	return func(h *handler) {
		h.defaults = opts
	}
}

// WithLogger sets a structured logger for access logs
// If logger is nil, uses io.Discard for silent operation
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *handler) {
		if logger != nil {
			h.logger = logger
		} else {
			h.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
	}
}

// NewHandler returns the routes of the discovery API:
//
//	GET /healthz
//	GET /v1/subjects/{subject}/attestations?witness=&registry=&indexer=&social=&raw=
//	GET /v1/subjects/{subject}/summary?<same query>
//	GET /v1/subjects/{subject}/operator
//
// witness, registry and indexer may repeat or hold comma-separated lists; a
// list given in the query replaces the configured default. Subjects that
// contain slashes (SPIFFE IDs) must be path-escaped.
func NewHandler(svc ports.DiscoveryService, parser ports.IdentifierParser, opts ...HandlerOption) http.Handler {
	h := &handler{
		svc:      svc,
		parser:   parser,
		defaults: ports.DefaultDiscoverOptions(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(peerIdentity)
	r.Use(h.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Route("/v1/subjects/{subject}", func(r chi.Router) {
		r.Get("/attestations", h.attestations)
		r.Get("/summary", h.summary)
		r.Get("/operator", h.operator)
	})
	return r
}

func (h *handler) attestations(w http.ResponseWriter, r *http.Request) {
	subject, opts, ok := h.discoverRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Discover(r.Context(), subject, opts))
}

func (h *handler) summary(w http.ResponseWriter, r *http.Request) {
	subject, opts, ok := h.discoverRequest(w, r)
	if !ok {
		return
	}
	result := h.svc.Discover(r.Context(), subject, opts)

	contests := make(map[string]int)
	for ref, group := range domain.Contests(result.Attestations) {
		contests[ref] = len(group)
	}
	writeJSON(w, http.StatusOK, SummaryResponse{
		Summary:  domain.Summarize(result.Attestations, subject),
		Contests: contests,
		Sources:  result.Sources,
		Warnings: result.Warnings,
	})
}

func (h *handler) operator(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.DiscoverOperator(r.Context(), subject))
}

func (h *handler) subject(w http.ResponseWriter, r *http.Request) (domain.Identifier, bool) {
	raw, err := url.PathUnescape(chi.URLParam(r, "subject"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid subject encoding: %v", err))
		return "", false
	}
	id, err := h.parser.ParseIdentifier(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return id, true
}

func (h *handler) discoverRequest(w http.ResponseWriter, r *http.Request) (domain.Identifier, ports.DiscoverOptions, bool) {
	subject, ok := h.subject(w, r)
	if !ok {
		return "", ports.DiscoverOptions{}, false
	}
	opts, err := h.discoverOptions(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", ports.DiscoverOptions{}, false
	}
	return subject, opts, true
}

func (h *handler) discoverOptions(q url.Values) (ports.DiscoverOptions, error) {
	opts := h.defaults
	if ws := listParam(q, "witness"); ws != nil {
		opts.KnownWitnesses = toIdentifiers(ws)
	}
	if rs := listParam(q, "registry"); rs != nil {
		opts.Registries = toIdentifiers(rs)
	}
	if is := listParam(q, "indexer"); is != nil {
		opts.Indexers = make([]ports.IndexerTarget, len(is))
		for i, u := range is {
			opts.Indexers[i] = ports.IndexerTarget{BaseURL: u}
		}
	}
	if v := q.Get("social"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("invalid social %q: want true or false", v)
		}
		opts.DiscoverWitnessesSocially = b
	}
	if v := q.Get("raw"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("invalid raw %q: want true or false", v)
		}
		opts.Deduplicate = !b
	}
	return opts, nil
}

// listParam collects repeated and comma-separated values. It returns nil
// when the parameter is absent.
func listParam(q url.Values, name string) []string {
	values, ok := q[name]
	if !ok {
		return nil
	}
	out := []string{}
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

func toIdentifiers(ss []string) []domain.Identifier {
	out := make([]domain.Identifier, len(ss))
	for i, s := range ss {
		out[i] = domain.Identifier(s)
	}
	return out
}

func (h *handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.String("caller", callerString(r)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Duration("elapsed", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
