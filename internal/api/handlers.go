// Package api exposes wake and status operations as a JSON HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fgeck/gowake/internal/models"
	"github.com/fgeck/gowake/internal/services/probe"
	"github.com/fgeck/gowake/internal/services/wol"
	"github.com/rs/zerolog"
)

// Handler handles HTTP requests.
type Handler struct {
	cfg    models.Config
	wolSvc wol.Service
	prober wol.Prober
	logger zerolog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(logger zerolog.Logger, cfg models.Config, wolSvc wol.Service, prober wol.Prober) *Handler {
	return &Handler{
		cfg:    cfg,
		wolSvc: wolSvc,
		prober: prober,
		logger: logger,
	}
}

// RegisterRoutes registers all API routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/wake", h.wake)
	mux.HandleFunc("GET /api/status", h.status)
	mux.HandleFunc("GET /api/hosts", h.listHosts)
	mux.HandleFunc("POST /api/hosts/{name}/wake", h.wakeHost)
}

// Routes returns the API with request ids, access logging and optional auth applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	var handler http.Handler = mux
	handler = AuthMiddleware(h.cfg.Server.Token, handler)
	handler = AccessLogMiddleware(h.logger, handler)
	return RequestIDMiddleware(handler)
}

type response struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Data      any    `json:"data,omitempty"`
}

type wakeData struct {
	Host        string              `json:"host,omitempty"`
	MACAddress  string              `json:"mac"`
	Destination string              `json:"destination"`
	Broadcast   bool                `json:"broadcast"`
	Transport   string              `json:"transport"`
	TargetReady bool                `json:"target_ready"`
	WaitMillis  int64               `json:"wait_ms,omitempty"`
	Trace       []models.TraceEntry `json:"trace,omitempty"`
}

type statusData struct {
	Host      string `json:"host"`
	IsUp      bool   `json:"isUp"`
	OpenPorts []int  `json:"openPorts"`
	ErrStr    string `json:"errStr,omitempty"`
}

type hostData struct {
	Name       string `json:"name"`
	MACAddress string `json:"mac"`
	Host       string `json:"host"`
	CIDR       string `json:"cidr,omitempty"`
	Port       string `json:"port,omitempty"`
	Comment    string `json:"comment,omitempty"`
	Shutdown   bool   `json:"shutdown"`
}

// wake handles GET /api/wake.
func (h *Handler) wake(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	host := q.Get("host")
	if host == "" {
		host = q.Get("ip")
	}
	if host == "" {
		h.writeError(w, r, http.StatusBadRequest, "", "host is required")
		return
	}

	port := q.Get("port")
	if port == "" {
		port = h.cfg.Defaults.Port
	}

	req := models.WakeRequest{
		MACAddress: q.Get("mac"),
		Host:       host,
		CIDR:       q.Get("cidr"),
		Port:       port,
		Trace:      isTrue(q.Get("trace")),
	}

	h.runWake(w, r, "", req)
}

// wakeHost handles POST /api/hosts/{name}/wake.
func (h *Handler) wakeHost(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	host, ok := h.cfg.Host(name)
	if !ok {
		h.writeError(w, r, http.StatusNotFound, "", "host not found")
		return
	}

	req := host.WakeRequest()
	req.Trace = isTrue(r.URL.Query().Get("trace"))
	if r.URL.Query().Get("wait") == "false" {
		req.Wait = nil
	}

	h.runWake(w, r, name, req)
}

func (h *Handler) runWake(w http.ResponseWriter, r *http.Request, name string, req models.WakeRequest) {
	result, err := h.wolSvc.Wake(r.Context(), req)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	if result.Error != nil {
		h.logger.Warn().
			Err(result.Error).
			Str("request_id", RequestID(r.Context())).
			Str("host", req.Host).
			Msg("wake failed")
		h.writeError(w, r, statusForError(result.Error), wol.Kind(result.Error), result.Error.Error())
		return
	}

	h.writeJSON(w, r, http.StatusOK, wakeData{
		Host:        name,
		MACAddress:  result.MACAddress,
		Destination: result.Destination,
		Broadcast:   result.Broadcast,
		Transport:   result.Transport,
		TargetReady: result.TargetReady,
		WaitMillis:  result.WaitDuration.Milliseconds(),
		Trace:       result.Trace,
	})
}

// status handles GET /api/status.
func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	host := q.Get("host")
	if host == "" {
		host = q.Get("ip")
	}
	if host == "" {
		h.writeError(w, r, http.StatusBadRequest, "", "host is required")
		return
	}

	ports := h.cfg.Defaults.ProbePorts
	if len(ports) == 0 {
		ports = probe.DefaultPorts
	}
	if raw := q.Get("port"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port < 1 || port > 65535 {
			h.writeError(w, r, http.StatusBadRequest, wol.Kind(wol.ErrInvalidPort), "invalid port: "+raw)
			return
		}
		ports = []int{port}
	}

	timeout := h.cfg.Defaults.ProbeTimeout
	if timeout <= 0 {
		timeout = probe.DefaultTimeout
	}

	result := h.prober.Probe(r.Context(), host, ports, timeout)

	data := statusData{
		Host:      result.Host,
		IsUp:      result.IsUp,
		OpenPorts: result.OpenPorts,
	}
	if data.OpenPorts == nil {
		data.OpenPorts = []int{}
	}
	if result.Error != nil {
		data.ErrStr = result.Error.Error()
	}

	h.writeJSON(w, r, http.StatusOK, data)
}

// listHosts handles GET /api/hosts.
func (h *Handler) listHosts(w http.ResponseWriter, r *http.Request) {
	hosts := make([]hostData, 0, len(h.cfg.Hosts))
	for _, host := range h.cfg.Hosts {
		hosts = append(hosts, hostData{
			Name:       host.Name,
			MACAddress: host.MACAddress,
			Host:       host.Host,
			CIDR:       host.CIDR,
			Port:       host.Port,
			Comment:    host.Comment,
			Shutdown:   host.SSHShutdown != nil,
		})
	}

	h.writeJSON(w, r, http.StatusOK, hosts)
}

// statusForError maps a wake failure to an HTTP status.
func statusForError(err error) int {
	switch {
	case wol.IsInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, wol.ErrResolutionFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, wol.ErrTransportUnavailable), errors.Is(err, wol.ErrSendFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func isTrue(s string) bool {
	v, err := strconv.ParseBool(s)
	return err == nil && v
}

func encodeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, must-revalidate")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	encodeJSON(w, status, response{RequestID: RequestID(r.Context()), Data: data})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, kind, message string) {
	encodeJSON(w, status, response{RequestID: RequestID(r.Context()), Error: message, Kind: kind})
}

// internalError logs the error and writes a generic 500 response.
func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error().Err(err).Str("request_id", RequestID(r.Context())).Msg("internal server error")
	h.writeError(w, r, http.StatusInternalServerError, "", "internal server error")
}

// NewServer builds the HTTP server for the configured listen address.
func NewServer(listen string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
