package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
}

// UpdateTicketRequest payload; nil fields are left unchanged.
type UpdateTicketRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Priority    *domain.TicketPriority `json:"priority"`
}

// SetStatusRequest payload.
type SetStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AgentID string `json:"agent_id"`
}

// TicketResponse is the full ticket view.
type TicketResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	Owner       *UserSummary          `json:"owner"`
	Assignee    *UserSummary          `json:"assigned_to"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Comment string `json:"comment"`
}

// CommentResponse represents a thread comment.
type CommentResponse struct {
	ID        string       `json:"id"`
	Body      string       `json:"comment"`
	Author    *UserSummary `json:"author"`
	CreatedAt time.Time    `json:"created_at"`
}

// AddCommentResponse wraps a stored comment with the dedup outcome.
type AddCommentResponse struct {
	Comment     CommentResponse `json:"comment"`
	IsDuplicate bool            `json:"is_duplicate"`
}
