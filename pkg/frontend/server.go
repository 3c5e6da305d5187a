package frontend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/adammck/numbers/pkg/api"
	"github.com/adammck/numbers/pkg/metrics"
	"github.com/adammck/numbers/pkg/proto/conv"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type rangeBody struct {
	From *int `json:"from"`
	To   *int `json:"to"`
}

type submitResponse struct {
	From         int     `json:"from"`
	To           int     `json:"to"`
	PrimeNumbers []int   `json:"primeNumbers"`
	InstanceID   string  `json:"instanceId"`
	Duration     string  `json:"duration"`
	DurationMs   float64 `json:"durationMs"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server is the HTTP face of the frontend.
type Server struct {
	caller Submitter
	log    *zap.Logger
}

func NewServer(caller Submitter, log *zap.Logger) *Server {
	return &Server{
		caller: caller,
		log:    log,
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.render).Methods(http.MethodGet)
	r.HandleFunc("/", s.submit).Methods(http.MethodPost)
	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	return r
}

// render returns the range that a fresh form would be filled in with.
func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	from, to := api.DefaultRange.From, api.DefaultRange.To
	writeJSON(w, http.StatusOK, rangeBody{From: &from, To: &to})
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	sub, err := s.caller.Submit(r.Context(), rng.From, rng.To)
	if err != nil {
		code := http.StatusBadGateway
		switch {
		case errors.Is(err, ErrNoBackends):
			code = http.StatusServiceUnavailable
		case errors.Is(err, ErrInvalidRange), status.Code(err) == codes.InvalidArgument:
			code = http.StatusBadRequest
		}

		s.log.Warn("submit failed", zap.Stringer("range", rng), zap.Error(err))
		writeJSON(w, code, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, submitResponse{
		From:         rng.From,
		To:           rng.To,
		PrimeNumbers: sub.Primes,
		InstanceID:   sub.InstanceID,
		Duration:     sub.Elapsed.String(),
		DurationMs:   float64(sub.Elapsed.Microseconds()) / 1000,
	})
}

// parseRange accepts either a JSON body or a form, since the latter is what
// a plain HTML form would send. Both bounds are required either way, and must
// fit on the wire.
func parseRange(r *http.Request) (api.Range, error) {
	rng, err := decodeRange(r)
	if err != nil {
		return api.Range{}, err
	}

	if err := conv.ValidateRange(rng); err != nil {
		return api.Range{}, err
	}

	return rng, nil
}

func decodeRange(r *http.Request) (api.Range, error) {
	ct := r.Header.Get("Content-Type")

	if strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data") {
		from, err := formInt(r, "from")
		if err != nil {
			return api.Range{}, err
		}

		to, err := formInt(r, "to")
		if err != nil {
			return api.Range{}, err
		}

		return api.Range{From: from, To: to}, nil
	}

	body := rangeBody{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return api.Range{}, fmt.Errorf("invalid body: %w", err)
	}

	if body.From == nil {
		return api.Range{}, errors.New("missing: from")
	}

	if body.To == nil {
		return api.Range{}, errors.New("missing: to")
	}

	return api.Range{From: *body.From, To: *body.To}, nil
}

func formInt(r *http.Request, name string) (int, error) {
	v := r.FormValue(name)
	if v == "" {
		return 0, fmt.Errorf("missing: %s", name)
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, v)
	}

	return n, nil
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "200: OK")
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
