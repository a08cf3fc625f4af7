package handlers

import (
	"familytodo/internal/service"
)

// TodoHandler serves the personal task endpoints. Every call is scoped to
// the authenticated user.
type TodoHandler struct {
	todoService *service.TodoService
}

// NewTodoHandler creates a new todo handler
func NewTodoHandler(todoService *service.TodoService) *TodoHandler {
	return &TodoHandler{todoService: todoService}
}

// List returns the caller's tasks, newest first
func (h *TodoHandler) List(rc *RequestContext) (Result, error) {
	todos, err := h.todoService.List(rc.Context(), rc.UserID)
	if err != nil {
		return Result{}, err
	}
	return OK(todoViews(todos)), nil
}

// Create adds a task. Responds 200 like the rest of this resource.
func (h *TodoHandler) Create(rc *RequestContext) (Result, error) {
	var req todoRequest
	if err := rc.Decode(&req); err != nil {
		return Result{}, err
	}
	input, err := req.input()
	if err != nil {
		return Result{}, err
	}

	todo, err := h.todoService.Create(rc.Context(), rc.UserID, input)
	if err != nil {
		return Result{}, err
	}
	return OK(todoView(todo)), nil
}

// Update applies the fields present in the body
func (h *TodoHandler) Update(rc *RequestContext) (Result, error) {
	var req todoRequest
	if err := rc.Decode(&req); err != nil {
		return Result{}, err
	}
	patch, err := req.patch()
	if err != nil {
		return Result{}, err
	}

	todo, err := h.todoService.Update(rc.Context(), rc.UserID, rc.Param("id"), patch)
	if err != nil {
		return Result{}, err
	}
	return OK(todoView(todo)), nil
}

// Delete removes a task
func (h *TodoHandler) Delete(rc *RequestContext) (Result, error) {
	if err := h.todoService.Delete(rc.Context(), rc.UserID, rc.Param("id")); err != nil {
		return Result{}, err
	}
	return OK(MessageView{Message: "Deleted"}), nil
}
