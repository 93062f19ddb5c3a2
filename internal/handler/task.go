package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskboard/internal/auth"
	"github.com/BuzzLyutic/taskboard/internal/dashboard"
	"github.com/BuzzLyutic/taskboard/internal/gateway"
	"github.com/BuzzLyutic/taskboard/internal/model"
	"github.com/BuzzLyutic/taskboard/internal/repo"
	"github.com/BuzzLyutic/taskboard/internal/view"
	"github.com/BuzzLyutic/taskboard/pkg/respond"
)

type TaskHandler struct {
	boards   *dashboard.Manager
	verifier *auth.Verifier
	validate *validator.Validate
	logger   *zap.Logger
}

func NewTaskHandler(boards *dashboard.Manager, verifier *auth.Verifier, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		boards:   boards,
		verifier: verifier,
		validate: newValidator(),
		logger:   logger,
	}
}

type listResponse struct {
	Tasks  []dashboard.Item `json:"tasks"`
	Loaded bool             `json:"loaded"`
}

func (h *TaskHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	respond.JSON(w, r, http.StatusOK, user)
}

func (h *TaskHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	user, _ := auth.UserFromContext(r.Context())

	if err := h.verifier.SignOut(r.Context(), claims); err != nil {
		h.handleErrors(w, r, err)
		return
	}
	h.boards.Close(user.ID)

	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	criteria, err := parseCriteria(r)
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}

	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	respond.JSON(w, r, http.StatusOK, listResponse{
		Tasks:  d.View(criteria),
		Loaded: d.Loaded(),
	})
}

func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	respond.JSON(w, r, http.StatusOK, d.Stats())
}

func (h *TaskHandler) Notices(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	respond.JSON(w, r, http.StatusOK, d.TakeNotices())
}

func (h *TaskHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	if err := d.Refresh(r.Context()); err != nil {
		if errors.Is(err, dashboard.ErrClosed) {
			h.handleErrors(w, r, err)
			return
		}
		h.logger.Warn("refresh failed", zap.Error(err))
		respond.Error(w, r, http.StatusBadGateway, "Failed to fetch tasks")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !h.decode(w, r, &req) {
		return
	}
	draft, err := req.draft()
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	task, err := d.Gateway().Create(r.Context(), &draft)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/tasks/%s", task.ID))
	respond.JSON(w, r, http.StatusCreated, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	var req patchRequest
	if !h.decode(w, r, &req) {
		return
	}
	patch, err := req.patch()
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	if patch.Empty() {
		respond.Error(w, r, http.StatusBadRequest, "nothing to update")
		return
	}

	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	task, err := d.Gateway().Update(r.Context(), id, patch)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

// Edit stages the task as the user currently sees it and submits the full
// replacement of its editable fields.
func (h *TaskHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	var req editRequest
	if !h.decode(w, r, &req) {
		return
	}
	edit, err := req.edit()
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	current, err := d.Task(r.Context(), id)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	editor := d.Editor()
	task, err := editor.Replace(r.Context(), current, edit)
	if err != nil {
		editor.Cancel(current.ID)
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	if err := d.Gateway().Delete(r.Context(), id); err != nil {
		h.handleErrors(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) dashboard(w http.ResponseWriter, r *http.Request) (*dashboard.Dashboard, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.handleErrors(w, r, gateway.ErrUnauthenticated)
		return nil, false
	}
	d, err := h.boards.Get(user)
	if err != nil {
		h.handleErrors(w, r, err)
		return nil, false
	}
	return d, true
}

func (h *TaskHandler) taskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid task id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *TaskHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := respond.Decode(r, v); err != nil {
		respond.Error(w, r, http.StatusBadRequest, err.Error())
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			respond.Invalid(w, r, fieldErrors(verrs))
			return false
		}
		h.handleErrors(w, r, err)
		return false
	}
	return true
}

func (h *TaskHandler) handleErrors(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repo.ErrorNotFound):
		respond.Error(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, repo.ErrorConflict):
		respond.Error(w, r, http.StatusConflict, "conflict")
	case errors.Is(err, gateway.ErrUnauthenticated):
		respond.Error(w, r, http.StatusUnauthorized, "unauthenticated")
	case errors.Is(err, gateway.ErrEmptyTitle),
		errors.Is(err, gateway.ErrNothingStaged),
		errors.Is(err, repo.ErrorInvalid),
		errors.Is(err, model.ErrUnknownPriority),
		errors.Is(err, model.ErrUnknownCategory):
		respond.Error(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, dashboard.ErrClosed):
		respond.Error(w, r, http.StatusServiceUnavailable, "shutting down")
	case errors.Is(err, context.DeadlineExceeded):
		respond.Error(w, r, http.StatusGatewayTimeout, "timeout")
	default:
		h.logger.Error("internal error", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}

func parseCriteria(r *http.Request) (view.Criteria, error) {
	q := r.URL.Query()
	c := view.Criteria{Search: q.Get("search")}

	if s := q.Get("priority"); s != "" && s != "all" {
		p, err := model.ParsePriority(s)
		if err != nil {
			return c, err
		}
		c.Priority = &p
	}
	if s := q.Get("category"); s != "" && s != "all" {
		cat, err := model.ParseCategory(s)
		if err != nil {
			return c, err
		}
		c.Category = &cat
	}

	tab, err := view.ParseTab(q.Get("tab"))
	if err != nil {
		return c, err
	}
	c.Tab = tab
	return c, nil
}

type createRequest struct {
	Title       string     `json:"title" validate:"max=200"`
	Description string     `json:"description" validate:"max=2000"`
	DueDate     *time.Time `json:"due_date"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Category    string     `json:"category" validate:"omitempty,oneof=personal work health finance learning shopping"`
}

func (req createRequest) draft() (model.Draft, error) {
	d := model.NewDraft()
	d.Title = req.Title
	d.Description = req.Description
	d.DueDate = req.DueDate

	var err error
	if req.Priority != "" {
		if d.Priority, err = model.ParsePriority(req.Priority); err != nil {
			return d, err
		}
	}
	if req.Category != "" {
		if d.Category, err = model.ParseCategory(req.Category); err != nil {
			return d, err
		}
	}
	return d, nil
}

// patchRequest tells an absent due_date (keep) from an explicit null (clear).
type patchRequest struct {
	Title       *string         `json:"title" validate:"omitempty,max=200"`
	Description *string         `json:"description" validate:"omitempty,max=2000"`
	Completed   *bool           `json:"completed"`
	DueDate     json.RawMessage `json:"due_date"`
	Priority    *string         `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Category    *string         `json:"category" validate:"omitempty,oneof=personal work health finance learning shopping"`
}

func (req patchRequest) patch() (model.Patch, error) {
	p := model.Patch{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	}

	switch {
	case len(req.DueDate) == 0:
	case string(req.DueDate) == "null":
		p.ClearDueDate = true
	default:
		var due time.Time
		if err := json.Unmarshal(req.DueDate, &due); err != nil {
			return p, fmt.Errorf("%w: due_date: %v", repo.ErrorInvalid, err)
		}
		p.DueDate = &due
	}

	if req.Priority != nil {
		pr, err := model.ParsePriority(*req.Priority)
		if err != nil {
			return p, err
		}
		p.Priority = &pr
	}
	if req.Category != nil {
		c, err := model.ParseCategory(*req.Category)
		if err != nil {
			return p, err
		}
		p.Category = &c
	}
	return p, nil
}

type editRequest struct {
	Title       string     `json:"title" validate:"max=200"`
	Description string     `json:"description" validate:"max=2000"`
	DueDate     *time.Time `json:"due_date"`
	Priority    string     `json:"priority" validate:"required,oneof=low medium high urgent"`
	Category    string     `json:"category" validate:"required,oneof=personal work health finance learning shopping"`
}

func (req editRequest) edit() (model.Edit, error) {
	priority, err := model.ParsePriority(req.Priority)
	if err != nil {
		return model.Edit{}, err
	}
	category, err := model.ParseCategory(req.Category)
	if err != nil {
		return model.Edit{}, err
	}
	return model.Edit{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    priority,
		Category:    category,
	}, nil
}
