package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/drippyfi/dualchain-middleware/pkg/app/errors"
	"github.com/drippyfi/dualchain-middleware/pkg/network"
	"github.com/drippyfi/dualchain-middleware/pkg/session"
)

type handler struct {
	facade *session.Facade
	logger *zap.Logger
}

func newHandler(facade *session.Facade, logger *zap.Logger) *handler {
	return &handler{facade: facade, logger: logger.Named("api")}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// respondError maps a service error category to an HTTP status.
func (h *handler) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var svcErr *apperrors.ServiceError
	if errors.As(err, &svcErr) {
		switch svcErr.Category {
		case apperrors.CategoryNotFound:
			status = http.StatusNotFound
		case apperrors.CategoryConfigAbsent:
			status = http.StatusConflict
		case apperrors.CategoryNotConnected, apperrors.CategoryConnectivity:
			status = http.StatusServiceUnavailable
		case apperrors.CategoryAgent:
			status = http.StatusBadGateway
		case apperrors.CategoryDecode:
			status = http.StatusUnprocessableEntity
		}
	}

	h.logger.Warn("Request failed", zap.Int("status", status), zap.Error(err))
	h.respondJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) listNetworks(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, http.StatusOK, network.All())
}

func (h *handler) snapshot(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, http.StatusOK, h.facade.Snapshot())
}

func (h *handler) connectWallet(w http.ResponseWriter, _ *http.Request) {
	h.facade.ConnectWallet()
	h.respondJSON(w, http.StatusOK, h.facade.Snapshot())
}

func (h *handler) closeConnectModal(w http.ResponseWriter, _ *http.Request) {
	h.facade.CloseConnectModal()
	h.respondJSON(w, http.StatusOK, h.facade.Snapshot())
}

type authorizedRequest struct {
	Account string `json:"account"`
}

func (h *handler) authorized(w http.ResponseWriter, r *http.Request) {
	var req authorizedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Account == "" {
		h.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "account is required"})
		return
	}
	h.facade.HandleAuthorized(r.Context(), req.Account)
	h.respondJSON(w, http.StatusOK, h.facade.Snapshot())
}

func (h *handler) disconnectWallet(w http.ResponseWriter, r *http.Request) {
	h.facade.DisconnectWallet(r.Context())
	h.respondJSON(w, http.StatusOK, h.facade.Snapshot())
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	h.facade.RefreshBalances(r.Context())
	h.respondJSON(w, http.StatusOK, h.facade.Snapshot())
}

type switchNetworkRequest struct {
	Name string `json:"name"`
}

func (h *handler) switchNetwork(w http.ResponseWriter, r *http.Request) {
	var req switchNetworkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		h.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}

	cfg, ok := network.Resolve(req.Name)
	if !ok {
		h.respondError(w, apperrors.NotFoundError("unknown network "+req.Name))
		return
	}

	h.facade.SwitchNetwork(r.Context(), cfg)
	h.respondJSON(w, http.StatusOK, h.facade.Snapshot())
}

func (h *handler) toggleEnvironment(w http.ResponseWriter, r *http.Request) {
	h.facade.ToggleEnvironment(r.Context())
	h.respondJSON(w, http.StatusOK, h.facade.Snapshot())
}

func (h *handler) requestTrustLine(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.facade.RequestTrustLine(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, outcome)
}

func (h *handler) trustLineDeepLink(w http.ResponseWriter, _ *http.Request) {
	link, err := h.facade.TrustLineDeepLink()
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"url": link})
}
