package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dfedorov/statement-desk/internal/api/middleware"
	"github.com/dfedorov/statement-desk/internal/catalog"
	"github.com/dfedorov/statement-desk/internal/domain"
	"github.com/dfedorov/statement-desk/internal/logger"
	"github.com/dfedorov/statement-desk/internal/rules"
	"github.com/dfedorov/statement-desk/internal/workspace"
)

// GroupsHandler serves the category-group endpoints. Handlers log through
// the request-scoped logger the middleware stashes in the context.
type GroupsHandler struct {
	svc *catalog.Service
}

// NewGroupsHandler creates a new groups handler.
func NewGroupsHandler(svc *catalog.Service) *GroupsHandler {
	return &GroupsHandler{svc: svc}
}

// ListGroups handles GET /api/v1/category-groups
func (h *GroupsHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	groups, err := h.svc.ListGroups(ctx, middleware.OwnerFrom(ctx))
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to list groups")
		writeDomainError(w, err, "Failed to list groups")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"groups": groups,
		"count":  len(groups),
	})
}

// CreateGroup handles POST /api/v1/category-groups
func (h *GroupsHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	group, err := h.svc.CreateGroup(ctx, middleware.OwnerFrom(ctx), req.Name)
	if err != nil {
		writeDomainError(w, err, "Failed to create group")
		return
	}

	log := logger.FromContext(ctx)
	log.Info().Str("group_id", group.ID).Str("name", group.Name).Msg("Group created")
	middleware.WriteJSON(w, http.StatusCreated, group)
}

// GetGroup handles GET /api/v1/category-groups/{groupID}
func (h *GroupsHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	group, err := h.svc.GetGroup(ctx, middleware.OwnerFrom(ctx), chi.URLParam(r, "groupID"))
	if err != nil {
		writeDomainError(w, err, "Failed to get group")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, group)
}

// RenameGroup handles PATCH /api/v1/category-groups/{groupID}
func (h *GroupsHandler) RenameGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	group, err := h.svc.RenameGroup(ctx, middleware.OwnerFrom(ctx), chi.URLParam(r, "groupID"), req.Name)
	if err != nil {
		writeDomainError(w, err, "Failed to rename group")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, group)
}

// DeleteGroup handles DELETE /api/v1/category-groups/{groupID}
func (h *GroupsHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.svc.DeleteGroup(ctx, middleware.OwnerFrom(ctx), chi.URLParam(r, "groupID")); err != nil {
		writeDomainError(w, err, "Failed to delete group")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ActivateGroup handles POST /api/v1/category-groups/{groupID}/activate
func (h *GroupsHandler) ActivateGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.svc.ActivateGroup(ctx, middleware.OwnerFrom(ctx), chi.URLParam(r, "groupID")); err != nil {
		writeDomainError(w, err, "Failed to activate group")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "active"})
}

// AddCategory handles POST /api/v1/category-groups/{groupID}/categories
func (h *GroupsHandler) AddCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	category, warning, err := h.svc.AddCategory(ctx, middleware.OwnerFrom(ctx), chi.URLParam(r, "groupID"), req.Name, req.Description)
	if err != nil {
		writeDomainError(w, err, "Failed to add category")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, categoryResponse(category, warning))
}

// UpdateCategory handles PATCH /api/v1/categories/{categoryID}
func (h *GroupsHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		SortOrder   *int    `json:"sort_order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	patch := catalog.CategoryPatch{Name: req.Name, Description: req.Description, SortOrder: req.SortOrder}
	category, warning, err := h.svc.UpdateCategory(ctx, middleware.OwnerFrom(ctx), chi.URLParam(r, "categoryID"), patch)
	if err != nil {
		writeDomainError(w, err, "Failed to update category")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, categoryResponse(category, warning))
}

// DeleteCategory handles DELETE /api/v1/categories/{categoryID}
func (h *GroupsHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	err := h.svc.DeleteCategory(ctx, middleware.OwnerFrom(ctx), chi.URLParam(r, "categoryID"))
	if err != nil {
		writeDomainError(w, err, "Failed to delete category")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// AddRule handles POST /api/v1/categories/{categoryID}/rules
func (h *GroupsHandler) AddRule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RuleType string `json:"rule_type"`
		Pattern  string `json:"pattern"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	rule, warning, err := h.svc.AddRule(ctx, middleware.OwnerFrom(ctx), chi.URLParam(r, "categoryID"), domain.RuleType(req.RuleType), req.Pattern)
	if err != nil {
		writeDomainError(w, err, "Failed to add rule")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, ruleResponse(rule, warning))
}

// UpdateRule handles PATCH /api/v1/rules/{ruleID}
func (h *GroupsHandler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RuleType *string `json:"rule_type"`
		Pattern  *string `json:"pattern"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var patch catalog.RulePatch
	if req.RuleType != nil {
		rt := domain.RuleType(*req.RuleType)
		patch.RuleType = &rt
	}
	patch.Pattern = req.Pattern

	ctx := r.Context()
	rule, warning, err := h.svc.UpdateRule(ctx, middleware.OwnerFrom(ctx), chi.URLParam(r, "ruleID"), patch)
	if err != nil {
		writeDomainError(w, err, "Failed to update rule")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, ruleResponse(rule, warning))
}

// DeleteRule handles DELETE /api/v1/rules/{ruleID}
func (h *GroupsHandler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	err := h.svc.DeleteRule(ctx, middleware.OwnerFrom(ctx), chi.URLParam(r, "ruleID"))
	if err != nil {
		writeDomainError(w, err, "Failed to delete rule")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ApplyRules handles POST /api/v1/apply-rules and
// POST /api/v1/category-groups/{groupID}/apply-rules. Without a group id the
// owner's active group is used.
func (h *GroupsHandler) ApplyRules(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Transactions []domain.Transaction `json:"transactions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	outcomes, applied, err := h.svc.ApplyRules(ctx, middleware.OwnerFrom(ctx), chi.URLParam(r, "groupID"), req.Transactions)
	if err != nil {
		writeDomainError(w, err, "Failed to apply rules")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results":       outcomes,
		"rules_applied": applied,
	})
}

func categoryResponse(category *domain.CategoryItem, warning *rules.Warning) map[string]interface{} {
	resp := map[string]interface{}{"category": category}
	if warning != nil {
		resp["warning"] = warning
	}
	return resp
}

func ruleResponse(rule *domain.CategoryRule, warning *rules.Warning) map[string]interface{} {
	resp := map[string]interface{}{"rule": rule}
	if warning != nil {
		resp["warning"] = warning
	}
	return resp
}

// SessionHandler serves the persisted-session endpoints.
type SessionHandler struct {
	store *workspace.Store
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(store *workspace.Store) *SessionHandler {
	return &SessionHandler{store: store}
}

// GetSession handles GET /api/v1/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	state, err := h.store.Load(ctx, middleware.OwnerFrom(ctx))
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to load session")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load session")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, state)
}

// PutSession handles PUT /api/v1/session
func (h *SessionHandler) PutSession(w http.ResponseWriter, r *http.Request) {
	var state workspace.State
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	if err := h.store.Save(ctx, middleware.OwnerFrom(ctx), state); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to save session")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save session")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// DeleteSession handles DELETE /api/v1/session
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.store.Clear(ctx, middleware.OwnerFrom(ctx)); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to clear session")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to clear session")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeDomainError maps domain sentinel errors onto HTTP statuses, falling
// back to a 500 with the given message.
func writeDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalid):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		middleware.WriteError(w, http.StatusInternalServerError, fallback)
	}
}
