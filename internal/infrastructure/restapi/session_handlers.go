package restapi

import (
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mybucks/internal/app/service"
	"mybucks/internal/domain/entity"
)

// SessionHandler handles the wallet session endpoints.
type SessionHandler struct {
	session   *service.SessionService
	estimator *service.Estimator
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(session *service.SessionService, estimator *service.Estimator) *SessionHandler {
	return &SessionHandler{
		session:   session,
		estimator: estimator,
	}
}

type unlockRequest struct {
	Password string `json:"password"`
	Passcode string `json:"passcode"`
	Network  string `json:"network"`
	Link     string `json:"link"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// UnlockHandler opens a session from credentials, or from a wallet link when
// the link field is set. A malformed link returns a dedicated code so clients
// can fall back to manual credential entry.
func (h *SessionHandler) UnlockHandler(c *gin.Context) {
	var req unlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if req.Link != "" {
		network, err := h.session.UnlockWithLink(c.Request.Context(), req.Link)
		if err != nil {
			if errors.Is(err, entity.ErrLinkMalformed) {
				c.JSON(http.StatusBadRequest, errorResponse{Error: "wallet link is malformed", Code: "link_malformed"})
				return
			}
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"network": network, "session": h.session.Snapshot()})
		return
	}

	if err := h.session.Unlock(c.Request.Context(), req.Password, req.Passcode, req.Network); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": h.session.Snapshot()})
}

// SnapshotHandler returns the current session state.
func (h *SessionHandler) SnapshotHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// ResetHandler locks the session and drops all secret material.
func (h *SessionHandler) ResetHandler(c *gin.Context) {
	h.session.Reset()
	c.Status(http.StatusNoContent)
}

// ProgressHandler reports derivation progress while an unlock runs.
func (h *SessionHandler) ProgressHandler(c *gin.Context) {
	view := h.session.Snapshot()
	c.JSON(http.StatusOK, gin.H{"deriving": view.Deriving, "progress": view.Progress})
}

type networkRequest struct {
	Network string `json:"network"`
}

// UpdateNetworkHandler switches the session to another network.
func (h *SessionHandler) UpdateNetworkHandler(c *gin.Context) {
	var req networkRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Network == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "network is required"})
		return
	}
	if err := h.session.UpdateNetwork(c.Request.Context(), req.Network); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// BalancesHandler returns the balance snapshot, refreshing it first when
// refresh=true.
func (h *SessionHandler) BalancesHandler(c *gin.Context) {
	if c.Query("refresh") == "true" {
		if _, err := h.session.FetchBalances(c.Request.Context()); err != nil {
			h.writeError(c, err)
			return
		}
	}
	view := h.session.Snapshot()
	if !view.Unlocked {
		h.writeError(c, entity.ErrNoSession)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balances": view.Balances, "refreshedAt": view.RefreshedAt})
}

// HistoryHandler returns recent transfers of the token named by the token
// query parameter, or the native asset when absent.
func (h *SessionHandler) HistoryHandler(c *gin.Context) {
	records, err := h.session.History(c.Request.Context(), c.Query("token"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transfers": records})
}

type transferRequest struct {
	TokenAddress string `json:"tokenAddress"`
	To           string `json:"to"`
	Value        string `json:"value"`
	Option       string `json:"option"`
}

func (r *transferRequest) estimateRequest() (service.EstimateRequest, bool) {
	value, ok := new(big.Int).SetString(r.Value, 10)
	if !ok {
		return service.EstimateRequest{}, false
	}
	option := entity.GasOption(r.Option)
	if option == "" {
		option = entity.GasOptionAverage
	}
	return service.EstimateRequest{
		TokenAddress: r.TokenAddress,
		To:           r.To,
		Value:        value,
		Option:       option,
	}, true
}

// EstimateHandler populates a transfer and predicts its fee. Requests are
// debounced; a call superseded by a newer one returns 409 and no estimate.
func (h *SessionHandler) EstimateHandler(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	estimateReq, ok := req.estimateRequest()
	if !ok {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "value must be a base-10 integer"})
		return
	}

	result, err := h.estimator.Estimate(c.Request.Context(), estimateReq)
	if err != nil {
		if errors.Is(err, service.ErrEstimateSuperseded) {
			c.JSON(http.StatusConflict, errorResponse{Error: "superseded by a newer estimate", Code: "superseded"})
			return
		}
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// TransferHandler builds, signs and broadcasts a transfer, waiting for its
// on-chain outcome.
func (h *SessionHandler) TransferHandler(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	estimateReq, ok := req.estimateRequest()
	if !ok {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "value must be a base-10 integer"})
		return
	}

	transfer, err := h.session.PopulateTransfer(c.Request.Context(), estimateReq.TokenAddress, estimateReq.To, estimateReq.Value)
	if err != nil {
		h.writeError(c, err)
		return
	}
	result, err := h.session.Execute(c.Request.Context(), transfer, estimateReq.Option)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// LinkHandler returns the wallet link for the current session, or a PNG QR
// code of it when format=qr.
func (h *SessionHandler) LinkHandler(c *gin.Context) {
	if c.Query("format") == "qr" {
		size := 256
		if raw := c.Query("size"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 64 || parsed > 1024 {
				c.JSON(http.StatusBadRequest, errorResponse{Error: "size must be between 64 and 1024"})
				return
			}
			size = parsed
		}
		png, err := h.session.LinkQRCode(size)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.Data(http.StatusOK, "image/png", png)
		return
	}

	link, err := h.session.Link()
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"link": link})
}

// writeError maps domain errors onto HTTP statuses.
func (h *SessionHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, entity.ErrNoSession):
		c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error(), Code: "no_session"})
	case errors.Is(err, entity.ErrInvalidAddress),
		errors.Is(err, entity.ErrInvalidAmount),
		errors.Is(err, entity.ErrInsufficientBalance),
		errors.Is(err, entity.ErrLinkMalformed):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, entity.ErrNotActivated):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error(), Code: "not_activated"})
	case errors.Is(err, entity.ErrEstimateUnavailable):
		c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
	case errors.Is(err, entity.ErrSetupFailed):
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
}
