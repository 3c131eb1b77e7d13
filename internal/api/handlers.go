package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	neterrors "github.com/keepithuman/netconfig-automation/internal/errors"
	"github.com/keepithuman/netconfig-automation/internal/inventory"
	"github.com/keepithuman/netconfig-automation/internal/logger"
	"github.com/keepithuman/netconfig-automation/internal/orchestrator"
	"github.com/keepithuman/netconfig-automation/internal/storage"
	"github.com/keepithuman/netconfig-automation/pkg/config"
	"github.com/keepithuman/netconfig-automation/pkg/types"
)

// Operator is the slice of the orchestrator the gateway drives.
// *orchestrator.Orchestrator satisfies it; tests substitute a stub.
type Operator interface {
	Deploy(ctx context.Context, req orchestrator.DeployRequest) (*types.BatchResult, error)
	Backup(ctx context.Context, req orchestrator.BackupRequest) (*types.BatchResult, error)
	Rollback(ctx context.Context, req orchestrator.RollbackRequest) (*types.BatchResult, error)
	CheckCompliance(ctx context.Context, req orchestrator.ComplianceRequest) (*types.BatchResult, error)
}

// Handlers holds the gateway's collaborators.
type Handlers struct {
	cfg       config.APIConfig
	version   string
	tokens    *TokenService
	inventory *inventory.Service
	store     storage.Store
	operator  Operator
	logger    logger.Logger
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// statusFor maps store sentinels and error categories onto HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrConflict):
		return http.StatusConflict
	}
	switch neterrors.TypeOf(err) {
	case neterrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case neterrors.ErrorTypeResolution, neterrors.ErrorTypeValidation, neterrors.ErrorTypeRender:
		return http.StatusBadRequest
	case neterrors.ErrorTypeAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.WithField("op", op).Error("request failed", err)
		respondError(w, status, op+" failed")
		return
	}
	respondError(w, status, err.Error())
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password required")
		return
	}

	if err := authenticate(h.cfg, req.Username, req.Password); err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.tokens.Generate(req.Username, "admin")
	if err != nil {
		h.fail(w, "login", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": token,
		"user": map[string]string{
			"username": req.Username,
			"role":     "admin",
		},
	})
}

type deviceRequest struct {
	Name       string `json:"name"`
	Host       string `json:"host"`
	DeviceType string `json:"device_type"`
	Port       int    `json:"port,omitempty"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
}

func (h *Handlers) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.inventory.List(r.Context())
	if err != nil {
		h.fail(w, "list devices", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"devices": devices,
		"count":   len(devices),
	})
}

func (h *Handlers) handleAddDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	for field, value := range map[string]string{
		"name":        req.Name,
		"host":        req.Host,
		"device_type": req.DeviceType,
	} {
		if strings.TrimSpace(value) == "" {
			respondError(w, http.StatusBadRequest, "missing required field: "+field)
			return
		}
	}

	device := &types.Device{
		Name:       req.Name,
		Host:       req.Host,
		DeviceType: req.DeviceType,
		Port:       req.Port,
		Username:   req.Username,
		Password:   req.Password,
	}
	if err := h.inventory.Add(r.Context(), device); err != nil {
		h.fail(w, "add device", err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success":   true,
		"message":   "device registered",
		"device_id": device.ID,
	})
}

func (h *Handlers) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	device, err := h.inventory.Get(r.Context(), chi.URLParam(r, "deviceID"))
	if err != nil {
		h.fail(w, "get device", err)
		return
	}
	respondJSON(w, http.StatusOK, device)
}

func (h *Handlers) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	device, err := h.inventory.Get(r.Context(), chi.URLParam(r, "deviceID"))
	if err != nil {
		h.fail(w, "update device", err)
		return
	}

	var req deviceRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	if req.Name != "" {
		device.Name = req.Name
	}
	if req.Host != "" {
		device.Host = req.Host
	}
	if req.DeviceType != "" {
		device.DeviceType = req.DeviceType
	}
	if req.Port != 0 {
		device.Port = req.Port
	}
	if req.Username != "" {
		device.Username = req.Username
	}
	if req.Password != "" {
		device.Password = req.Password
	}

	if err := h.inventory.Update(r.Context(), device); err != nil {
		h.fail(w, "update device", err)
		return
	}
	respondJSON(w, http.StatusOK, device)
}

func (h *Handlers) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	if err := h.inventory.Remove(r.Context(), chi.URLParam(r, "deviceID")); err != nil {
		h.fail(w, "delete device", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "device removed",
	})
}

type deployRequest struct {
	Template  string            `json:"template"`
	Devices   []string          `json:"devices"`
	Variables map[string]string `json:"variables,omitempty"`
	DryRun    bool              `json:"dry_run,omitempty"`
}

func (h *Handlers) handleDeploy(w http.ResponseWriter, r *http.Request) {
	var req deployRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	if req.Template == "" {
		respondError(w, http.StatusBadRequest, "missing required field: template")
		return
	}
	if req.Devices == nil {
		respondError(w, http.StatusBadRequest, "missing required field: devices")
		return
	}

	batch, err := h.operator.Deploy(r.Context(), orchestrator.DeployRequest{
		Template:  req.Template,
		Devices:   req.Devices,
		Variables: req.Variables,
		DryRun:    req.DryRun,
	})
	if err != nil {
		h.fail(w, "deploy", err)
		return
	}
	respondJSON(w, http.StatusOK, batch)
}

type backupRequest struct {
	Devices   []string `json:"devices,omitempty"`
	OutputDir string   `json:"output_dir,omitempty"`
}

func (h *Handlers) handleBackup(w http.ResponseWriter, r *http.Request) {
	var req backupRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}

	batch, err := h.operator.Backup(r.Context(), orchestrator.BackupRequest{
		Devices:   req.Devices,
		OutputDir: req.OutputDir,
	})
	if err != nil {
		h.fail(w, "backup", err)
		return
	}
	respondJSON(w, http.StatusOK, batch)
}

type rollbackRequest struct {
	ConfigID string   `json:"config_id"`
	Devices  []string `json:"devices,omitempty"`
}

func (h *Handlers) handleRollback(w http.ResponseWriter, r *http.Request) {
	var req rollbackRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	if req.ConfigID == "" {
		respondError(w, http.StatusBadRequest, "missing required field: config_id")
		return
	}

	batch, err := h.operator.Rollback(r.Context(), orchestrator.RollbackRequest{
		ConfigID: req.ConfigID,
		Devices:  req.Devices,
	})
	if err != nil {
		h.fail(w, "rollback", err)
		return
	}
	respondJSON(w, http.StatusOK, batch)
}

func (h *Handlers) handleCompliance(w http.ResponseWriter, r *http.Request) {
	batch, err := h.operator.CheckCompliance(r.Context(), orchestrator.ComplianceRequest{
		Devices: r.URL.Query()["device"],
	})
	if err != nil {
		h.fail(w, "compliance check", err)
		return
	}
	respondJSON(w, http.StatusOK, batch)
}

func (h *Handlers) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := h.store.ListDeploymentRecords(r.Context(), limit)
	if err != nil {
		h.fail(w, "list history", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"deployments": records,
		"count":       len(records),
	})
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   "netconfig-automation",
		"version":   h.version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handlers) handleDocs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "netconfig-automation gateway",
		"version": h.version,
		"endpoints": map[string]map[string]string{
			"authentication": {
				"POST /api/v1/auth/login": "authenticate and receive a bearer token",
			},
			"devices": {
				"GET /api/v1/devices":         "list registered devices",
				"POST /api/v1/devices":        "register a device",
				"GET /api/v1/devices/{id}":    "device details",
				"PUT /api/v1/devices/{id}":    "update a device",
				"DELETE /api/v1/devices/{id}": "remove a device",
			},
			"configuration": {
				"POST /api/v1/deploy":   "deploy a rendered template to devices",
				"POST /api/v1/backup":   "back up running configurations",
				"POST /api/v1/rollback": "restore a stored snapshot",
			},
			"compliance": {
				"GET /api/v1/compliance": "audit devices against the policy set",
			},
			"system": {
				"GET /api/v1/health":  "health check",
				"GET /api/v1/history": "deployment history",
				"GET /api/v1/docs":    "this document",
				"GET /metrics":        "prometheus metrics",
			},
		},
		"authentication_scheme": map[string]string{
			"type":   "JWT bearer token",
			"header": "Authorization: Bearer <token>",
		},
	})
}
