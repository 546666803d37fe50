package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"commission-board/internal/auth"
	"commission-board/internal/commission"
	"commission-board/internal/commission/db"
	"commission-board/internal/models"
	"commission-board/internal/upload"
	"commission-board/internal/utils"
)

// The read side of the dashboard: the same gate + repository sequence
// the mutating handlers run, returning JSON for the client views.

type commissionView struct {
	models.Commission
	FileSize string `json:"fileSize,omitempty"`
}

type dashboardView struct {
	User        *models.DiscordUser `json:"user"`
	Admin       bool                `json:"admin"`
	Commissions []models.Commission `json:"commissions"`
	Alert       []string            `json:"alert"`
	Unread      unreadView          `json:"unread"`
}

type unreadView struct {
	Count int             `json:"count"`
	Items []models.Update `json:"items"`
}

// ListCommissions handles GET /api/commissions.
func (h *Handler) ListCommissions(w http.ResponseWriter, r *http.Request) {
	us := auth.Identity(r.Context())

	list, err := h.Service.List(r.Context(), us.User.ID)
	if err != nil {
		h.Logger.Error("COMMISSION", fmt.Sprintf("List failed for %s: %v", us.User.ID, err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to list commissions", err.Error()))
		return
	}
	if list == nil {
		list = []models.Commission{}
	}

	utils.WriteJSON(w, http.StatusOK, list)
}

// GetCommission handles GET /api/commission/{code}. The admin can view
// any record; clients only their own, and an unknown or foreign code is
// a bare 403 either way.
func (h *Handler) GetCommission(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	us := auth.Identity(r.Context())

	c, err := h.Service.Get(r.Context(), code, us.User.ID, auth.IsAdmin(r.Context()))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to load commission", err.Error()))
		return
	}

	view := commissionView{Commission: *c}
	if c.File != nil {
		if size, err := h.Uploads.Size(*c.File); err == nil {
			view.FileSize = upload.FormatBytes(size)
		}
	}

	utils.WriteJSON(w, http.StatusOK, view)
}

// LatestUpdates handles GET /api/updates/latest: the total unread count
// plus the three most recent unread updates across all commissions.
func (h *Handler) LatestUpdates(w http.ResponseWriter, r *http.Request) {
	us := auth.Identity(r.Context())

	count, items, err := h.Service.LatestUnread(r.Context(), us.User.ID, commission.DefaultUnreadLimit)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to collect unread updates", err.Error()))
		return
	}

	utils.WriteJSON(w, http.StatusOK, unreadView{Count: count, Items: items})
}

// GetAlert handles GET /api/alert. Lines are null when no alert is set.
func (h *Handler) GetAlert(w http.ResponseWriter, r *http.Request) {
	lines, err := h.Service.Alert(r.Context())
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to load alert", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"lines": lines})
}

// Dashboard handles GET /. It is the OAuth redirect target, so it runs
// behind the page gate (which consumes a ?code= parameter), and returns
// everything the landing view renders in one response.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	us := auth.Identity(r.Context())

	list, err := h.Service.List(r.Context(), us.User.ID)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to list commissions", err.Error()))
		return
	}
	if list == nil {
		list = []models.Commission{}
	}

	lines, err := h.Service.Alert(r.Context())
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to load alert", err.Error()))
		return
	}

	count, items, err := h.Service.LatestUnread(r.Context(), us.User.ID, commission.DefaultUnreadLimit)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to collect unread updates", err.Error()))
		return
	}

	utils.WriteJSON(w, http.StatusOK, dashboardView{
		User:        us.User,
		Admin:       auth.IsAdmin(r.Context()),
		Commissions: list,
		Alert:       lines,
		Unread:      unreadView{Count: count, Items: items},
	})
}
