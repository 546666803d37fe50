package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"commission-board/internal/auth"
	"commission-board/internal/commission"
	"commission-board/internal/commission/db"
	"commission-board/internal/logger"
	"commission-board/internal/models"
	"commission-board/internal/upload"
	"commission-board/internal/utils"
	"commission-board/internal/validate"
)

const maxMultipartMemory = 32 << 20

// maxAlertLength caps the alert form field.
const maxAlertLength = 150

// SessionDestroyer is the slice of the session store the logout handler
// needs.
type SessionDestroyer interface {
	Destroy(w http.ResponseWriter, r *http.Request) error
}

type Handler struct {
	Service  *commission.Service
	Uploads  *upload.Store
	Sessions SessionDestroyer
	Logger   *logger.Logger
}

// parseForm accepts both multipart (the admin forms post FormData) and
// urlencoded bodies.
func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(maxMultipartMemory)
	}
	return r.ParseForm()
}

// CreateCommission handles POST /api/commission/create (admin). All six
// field checks run before anything is written, and every failure comes
// back at once in the per-field error map.
func (h *Handler) CreateCommission(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid form body", err.Error()))
		return
	}

	title := r.FormValue("title")
	description := r.FormValue("description")
	userID := r.FormValue("userId")
	deadline := r.FormValue("deadline")
	price := r.FormValue("price")
	discountedPrice := r.FormValue("discountedPrice")

	errs := validate.Errors{}
	errs.Add(validate.KeyTitle, validate.CommissionTitle(title))
	errs.Add(validate.KeyDescription, validate.CommissionDescription(description))
	errs.Add(validate.KeyUserID, validate.UserID(userID))
	errs.Add(validate.KeyDeadline, validate.Deadline(deadline))
	errs.Add(validate.KeyPrice, validate.Price(price))
	errs.Add(validate.KeyDiscountedPrice, validate.DiscountedPrice(discountedPrice))

	if !errs.Ok() {
		utils.WriteJSON(w, http.StatusBadRequest, errs)
		return
	}

	deadlineMillis, _ := strconv.ParseInt(deadline, 10, 64)

	code, err := h.Service.Create(r.Context(), models.CommissionDraft{
		UserID:          userID,
		Title:           title,
		Description:     description,
		Price:           price,
		DiscountedPrice: discountedPrice,
		Deadline:        deadlineMillis,
	})
	if err != nil {
		h.Logger.Error("COMMISSION", fmt.Sprintf("Create failed: %v", err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to create commission", err.Error()))
		return
	}

	h.Logger.LogCommission("CREATE", code, fmt.Sprintf("Created for user %s", userID))
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("commission created", map[string]string{"code": code}))
}

// PostUpdate handles POST /api/commission/update (admin, multipart).
// An attached file is committed to storage and recorded on the
// commission before the update entry is appended.
func (h *Handler) PostUpdate(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid form body", err.Error()))
		return
	}

	code := r.FormValue("code")
	title := r.FormValue("title")
	description := r.FormValue("description")
	status := r.FormValue("status")

	errs := validate.Errors{}
	errs.Add(validate.KeyTitle, validate.UpdateTitle(title))
	errs.Add(validate.KeyDescription, validate.UpdateDescription(description))
	errs.Add(validate.KeyStatus, validate.Status(status))
	errs.Add(validate.KeyCode, validate.Code(code))

	// The one check that needs the store: the code must reference an
	// existing commission.
	if _, present := errs[validate.KeyCode]; !present {
		exists, err := h.Service.Exists(r.Context(), code)
		if err != nil {
			utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to verify commission code", err.Error()))
			return
		}
		if !exists {
			errs.Add(validate.KeyCode, "There is no commission that uses this code.")
		}
	}

	if !errs.Ok() {
		utils.WriteJSON(w, http.StatusBadRequest, errs)
		return
	}

	attached := false
	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()

		rel, err := h.Uploads.Save(code, header.Filename, file)
		if err != nil {
			h.Logger.Error("UPLOAD", fmt.Sprintf("Failed to store file for %s: %v", code, err))
			utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to store file", err.Error()))
			return
		}
		if err := h.Service.AttachFile(r.Context(), code, rel); err != nil {
			utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to record file", err.Error()))
			return
		}
		attached = true
		h.Logger.LogUpload("ATTACH", code, rel)
	}

	err := h.Service.AppendUpdate(r.Context(), code, models.UpdateDraft{
		Title:        title,
		Description:  description,
		NewStatus:    models.CommissionStatus(status),
		AttachedFile: attached,
	})
	if err != nil {
		h.Logger.Error("COMMISSION", fmt.Sprintf("Update append failed for %s: %v", code, err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to append update", err.Error()))
		return
	}

	h.Logger.LogCommission("UPDATE", code, title)
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("update posted", nil))
}

// CreateAlert handles POST /api/alert/create (admin). The form carries
// one newline-separated text field.
func (h *Handler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid form body", err.Error()))
		return
	}

	text := r.FormValue("text")
	if text == "" || len(text) > maxAlertLength {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	lines := strings.Split(text, "\n")
	if err := h.Service.SaveAlert(r.Context(), lines); err != nil {
		h.Logger.Error("ALERT", fmt.Sprintf("Save failed: %v", err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to save alert", err.Error()))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("alert saved", nil))
}

// DeleteAlert handles POST /api/alert/delete (admin).
func (h *Handler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.ClearAlert(r.Context()); err != nil {
		h.Logger.Error("ALERT", fmt.Sprintf("Delete failed: %v", err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to delete alert", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("alert deleted", nil))
}

// Download handles POST /api/download?code=. Only the owner gets bytes;
// a foreign or unknown code is a bare 403 either way.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("empty code", "the code query parameter is required"))
		return
	}

	us := auth.Identity(r.Context())
	c, err := h.Service.Get(r.Context(), code, us.User.ID, false)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to load commission", err.Error()))
		return
	}
	if c.File == nil {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	f, err := h.Uploads.Open(*c.File)
	if err != nil {
		h.Logger.Error("UPLOAD", fmt.Sprintf("Failed to open %s: %v", *c.File, err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	defer f.Close()

	parts := strings.Split(*c.File, "/")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", parts[len(parts)-1]))
	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, f); err != nil {
		h.Logger.Error("UPLOAD", fmt.Sprintf("Download stream for %s failed: %v", code, err))
	}
}

// MarkRead handles POST /api/read?code=&id=, where id is the update's
// stable sequence number.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	id := r.URL.Query().Get("id")
	if code == "" || id == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("empty code or id", "both code and id query parameters are required"))
		return
	}

	seq, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid id", err.Error()))
		return
	}

	us := auth.Identity(r.Context())
	if err := h.Service.MarkRead(r.Context(), code, us.User.ID, seq); err != nil && !errors.Is(err, db.ErrNotFound) {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to mark update read", err.Error()))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("marked read", nil))
}

// MarkAllRead handles POST /api/read/all?code=.
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("empty code", "the code query parameter is required"))
		return
	}

	us := auth.Identity(r.Context())
	if err := h.Service.MarkAllRead(r.Context(), code, us.User.ID); err != nil && !errors.Is(err, db.ErrNotFound) {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to mark updates read", err.Error()))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("marked all read", nil))
}

// Logout handles POST /api/logout for any session holder.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Destroy(w, r); err != nil {
		h.Logger.Error("AUTH", fmt.Sprintf("Logout failed: %v", err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to destroy session", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("logged out", nil))
}
