// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cobaltcore-dev/flavor-matcher/internal/classification"
	"github.com/cobaltcore-dev/flavor-matcher/internal/conf"
	"github.com/cobaltcore-dev/flavor-matcher/internal/enrollment"
	"github.com/cobaltcore-dev/flavor-matcher/internal/flavor"
	"github.com/cobaltcore-dev/flavor-matcher/internal/machine"
	"github.com/cobaltcore-dev/flavor-matcher/internal/monitoring"
	"github.com/gophercloud/gophercloud/v2"
)

// Upper bound for request bodies, classify requests are tiny.
const maxBodyBytes = 1 << 20

// Hardware facts of a machine as reported by the BMC collector.
type ClassifyRequest struct {
	Chassis        machine.ChassisInfo `json:"chassis"`
	SmallestDiskGB int                 `json:"smallest_disk_gb"`
	// Identifies the machine in the decision, defaults to "api".
	Source string `json:"source,omitempty"`
}

// Build the machine record from the request.
func (r ClassifyRequest) Machine() (machine.Machine, error) {
	return machine.FromChassis(r.Chassis, r.SmallestDiskGB)
}

type FlavorsResponse struct {
	Flavors []flavor.Spec `json:"flavors"`
}

type DecisionsResponse struct {
	Decisions []classification.Decision `json:"decisions"`
}

// Enrolls single ironic nodes.
type Enroller interface {
	EnrollNode(ctx context.Context, id string) (enrollment.Result, error)
}

// Lists past classification decisions.
type History interface {
	Latest(ctx context.Context, source string, limit int) ([]classification.Decision, error)
}

type HTTPAPI interface {
	// Bind the server handlers.
	Init(*http.ServeMux)
}

type httpAPI struct {
	config     conf.APIConfig
	monitor    Monitor
	classifier *classification.Classifier
	// Optional, nil if ironic is not configured.
	enroller Enroller
	// Optional, nil if no database is configured.
	history History
}

type Option func(*httpAPI)

func WithEnroller(e Enroller) Option {
	return func(a *httpAPI) { a.enroller = e }
}

func WithHistory(h History) Option {
	return func(a *httpAPI) { a.history = h }
}

func NewAPI(config conf.APIConfig, registry *monitoring.Registry, classifier *classification.Classifier, opts ...Option) HTTPAPI {
	a := &httpAPI{
		config:     config,
		monitor:    NewAPIMonitor(registry),
		classifier: classifier,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Init the API mux and bind the handlers.
func (a *httpAPI) Init(mux *http.ServeMux) {
	mux.HandleFunc("GET /up", a.Up)
	mux.HandleFunc("GET /flavors", a.Flavors)
	mux.HandleFunc("POST /classify", a.Classify)
	mux.HandleFunc("POST /nodes/{id}/enroll", a.EnrollNode)
	mux.HandleFunc("GET /decisions/{source}", a.Decisions)
}

func writeJSON(w http.ResponseWriter, code int, obj any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(obj)
}

// Liveness probe.
func (a *httpAPI) Up(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// List the currently loaded flavor specs.
func (a *httpAPI) Flavors(w http.ResponseWriter, r *http.Request) {
	callback := a.monitor.Callback(w, r, "/flavors")
	response := FlavorsResponse{Flavors: a.classifier.Matcher().Catalog().Flavors()}
	if err := writeJSON(w, http.StatusOK, response); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
	callback.Respond(http.StatusOK, nil, "Success")
}

// Classify the machine described by the request body.
// Unclassifiable machines are answered with 422 and the decision.
func (a *httpAPI) Classify(w http.ResponseWriter, r *http.Request) {
	callback := a.monitor.Callback(w, r, "/classify")
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		callback.Respond(http.StatusBadRequest, err, "failed to read request body")
		return
	}
	// If configured, log out the complete request body.
	if a.config.LogRequestBodies {
		slog.Info("request body", "body", string(body))
	}

	var request ClassifyRequest
	if err := json.Unmarshal(body, &request); err != nil {
		callback.Respond(http.StatusBadRequest, err, "failed to decode request body")
		return
	}
	m, err := request.Machine()
	if err != nil {
		// Adapter errors are safe to show, they only describe the input.
		callback.Respond(http.StatusBadRequest, err, err.Error())
		return
	}

	source := request.Source
	if source == "" {
		source = "api"
	}
	decision, err := a.classifier.Classify(r.Context(), source, m)
	code, text := http.StatusOK, "Success"
	switch {
	case errors.Is(err, classification.ErrUnclassifiable):
		code, text = http.StatusUnprocessableEntity, "unclassifiable"
	case err != nil:
		callback.Respond(http.StatusInternalServerError, err, "failed to classify machine")
		return
	}
	if err := writeJSON(w, code, decision); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
	callback.Respond(code, nil, text)
}

// Enroll the ironic node with the given uuid or name.
func (a *httpAPI) EnrollNode(w http.ResponseWriter, r *http.Request) {
	callback := a.monitor.Callback(w, r, "/nodes/{id}/enroll")
	if a.enroller == nil {
		callback.Respond(http.StatusNotImplemented, errors.New("ironic is not configured"), "ironic is not configured")
		return
	}
	id := r.PathValue("id")
	result, err := a.enroller.EnrollNode(r.Context(), id)
	code, text := http.StatusOK, "Success"
	var adapterErr *machine.AdapterError
	switch {
	case err == nil:
	case gophercloud.ResponseCodeIs(err, http.StatusNotFound):
		callback.Respond(http.StatusNotFound, err, "node not found")
		return
	case errors.Is(err, classification.ErrUnclassifiable):
		code, text = http.StatusUnprocessableEntity, "unclassifiable"
	case errors.As(err, &adapterErr):
		code, text = http.StatusUnprocessableEntity, "invalid inventory"
	default:
		callback.Respond(http.StatusBadGateway, err, "failed to enroll node")
		return
	}
	if err := writeJSON(w, code, result); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
	callback.Respond(code, nil, text)
}

// List the latest decisions for a source, newest first.
func (a *httpAPI) Decisions(w http.ResponseWriter, r *http.Request) {
	callback := a.monitor.Callback(w, r, "/decisions/{source}")
	if a.history == nil {
		callback.Respond(http.StatusNotImplemented, errors.New("no database configured"), "no database configured")
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 1000 {
			callback.Respond(http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw), "invalid limit")
			return
		}
		limit = parsed
	}
	decisions, err := a.history.Latest(r.Context(), r.PathValue("source"), limit)
	if err != nil {
		callback.Respond(http.StatusInternalServerError, err, "failed to list decisions")
		return
	}
	if err := writeJSON(w, http.StatusOK, DecisionsResponse{Decisions: decisions}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
	callback.Respond(http.StatusOK, nil, "Success")
}
