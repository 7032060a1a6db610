package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// CommentService is the append-only comment log for tickets.
type CommentService struct {
	comments   repository.CommentRepository
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
}

// CommentDependencies bundles collaborators for the comment service.
type CommentDependencies struct {
	CommentRepo repository.CommentRepository
	TicketRepo  repository.TicketRepository
	Dispatcher  events.Dispatcher
}

// CommentResult reports the stored (or matched) comment. IsDuplicate is
// true when a system-generated comment was suppressed in favor of an
// existing identical one.
type CommentResult struct {
	Comment     *domain.Comment
	IsDuplicate bool
}

// NewCommentService constructs the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	return &CommentService{
		comments:   deps.CommentRepo,
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
	}
}

// Add appends a comment to an existing ticket. Any authenticated user may
// comment, owners or not. Status-change flows and manual comment creation
// can race to record the same narrative line, so system-generated comments
// with an identical body and author are deduplicated against the most
// recent match instead of inserted twice.
func (s *CommentService) Add(ctx context.Context, caller *domain.User, ticketID, body string, systemGenerated bool) (*CommentResult, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body required", nil)
	}

	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	if systemGenerated {
		existing, err := s.comments.FindRecentMatching(ctx, ticketID, body, caller.ID)
		if err == nil {
			return &CommentResult{Comment: existing, IsDuplicate: true}, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
	}

	comment := &domain.Comment{
		TicketID: ticketID,
		AuthorID: caller.ID,
		Body:     body,
		Author:   caller,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventTicketCommented,
			TicketID:  ticketID,
			ActorID:   caller.ID,
			Timestamp: time.Now(),
			Payload: events.TicketCommentedPayload{
				CommentID:   comment.ID,
				AuthorID:    caller.ID,
				BodyPreview: bodyPreview(body, 120),
			},
		})
	}
	return &CommentResult{Comment: comment, IsDuplicate: false}, nil
}

// ListByTicket returns the ticket's comments, newest first.
func (s *CommentService) ListByTicket(ctx context.Context, caller *domain.User, ticketID string) ([]domain.Comment, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return comments, nil
}

func bodyPreview(body string, max int) string {
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
