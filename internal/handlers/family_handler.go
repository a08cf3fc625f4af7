package handlers

import (
	"familytodo/internal/service"
)

// FamilyHandler serves family membership and shared task endpoints
type FamilyHandler struct {
	familyService     *service.FamilyService
	familyTodoService *service.FamilyTodoService
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(familyService *service.FamilyService, familyTodoService *service.FamilyTodoService) *FamilyHandler {
	return &FamilyHandler{
		familyService:     familyService,
		familyTodoService: familyTodoService,
	}
}

// CreateFamily makes a family with the caller as its only member
func (h *FamilyHandler) CreateFamily(rc *RequestContext) (Result, error) {
	var req struct {
		Name string `json:"name"`
	}
	if err := rc.Decode(&req); err != nil {
		return Result{}, err
	}

	family, err := h.familyService.Create(rc.Context(), rc.UserID, req.Name)
	if err != nil {
		return Result{}, err
	}
	return OK(familyView(family)), nil
}

// JoinFamily adds the caller to the family owning the referral code
func (h *FamilyHandler) JoinFamily(rc *RequestContext) (Result, error) {
	var req struct {
		ReferralCode string `json:"referralCode"`
	}
	if err := rc.Decode(&req); err != nil {
		return Result{}, err
	}

	family, err := h.familyService.Join(rc.Context(), rc.UserID, req.ReferralCode)
	if err != nil {
		return Result{}, err
	}
	return OK(familyView(family)), nil
}

// MyFamily returns the family the caller belongs to
func (h *FamilyHandler) MyFamily(rc *RequestContext) (Result, error) {
	family, err := h.familyService.Mine(rc.Context(), rc.UserID)
	if err != nil {
		return Result{}, err
	}
	return OK(familyView(family)), nil
}

// LeaveFamily removes the caller from their family
func (h *FamilyHandler) LeaveFamily(rc *RequestContext) (Result, error) {
	if err := h.familyService.Leave(rc.Context(), rc.UserID); err != nil {
		return Result{}, err
	}
	return OK(MessageView{Message: "Left family"}), nil
}

// InviteMember emails the family's referral code
func (h *FamilyHandler) InviteMember(rc *RequestContext) (Result, error) {
	var req struct {
		Email string `json:"email"`
	}
	if err := rc.Decode(&req); err != nil {
		return Result{}, err
	}

	if err := h.familyService.Invite(rc.Context(), rc.UserID, req.Email); err != nil {
		return Result{}, err
	}
	return OK(MessageView{Message: "Invitation sent"}), nil
}

// ListTodos returns the family's shared tasks, newest first
func (h *FamilyHandler) ListTodos(rc *RequestContext) (Result, error) {
	todos, err := h.familyTodoService.List(rc.Context(), rc.UserID, rc.Param("familyId"))
	if err != nil {
		return Result{}, err
	}
	return OK(familyTodoViews(todos)), nil
}

// CreateTodo adds a shared task
func (h *FamilyHandler) CreateTodo(rc *RequestContext) (Result, error) {
	var req todoRequest
	if err := rc.Decode(&req); err != nil {
		return Result{}, err
	}
	input, err := req.input()
	if err != nil {
		return Result{}, err
	}

	todo, err := h.familyTodoService.Create(rc.Context(), rc.UserID, rc.Param("familyId"), input)
	if err != nil {
		return Result{}, err
	}
	return Created(familyTodoView(todo)), nil
}

// UpdateTodo patches a shared task, typically toggling done
func (h *FamilyHandler) UpdateTodo(rc *RequestContext) (Result, error) {
	var req todoRequest
	if err := rc.Decode(&req); err != nil {
		return Result{}, err
	}
	patch, err := req.patch()
	if err != nil {
		return Result{}, err
	}

	todo, err := h.familyTodoService.Update(rc.Context(), rc.UserID, rc.Param("familyId"), rc.Param("todoId"), patch)
	if err != nil {
		return Result{}, err
	}
	return OK(familyTodoView(todo)), nil
}

// DeleteTodo removes a shared task
func (h *FamilyHandler) DeleteTodo(rc *RequestContext) (Result, error) {
	if err := h.familyTodoService.Delete(rc.Context(), rc.UserID, rc.Param("familyId"), rc.Param("todoId")); err != nil {
		return Result{}, err
	}
	return OK(MessageView{Message: "Todo deleted successfully"}), nil
}
