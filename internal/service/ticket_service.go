package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const (
	statsCacheKey = "tickets:stats"
	statsCacheTTL = 30 * time.Second
)

// TicketService is the ticket lifecycle engine: it enforces status
// transitions, ownership, assignment and statistics. Every operation takes
// the resolved caller explicitly and re-derives permission before mutating.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	cache      *persistence.Redis
	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Cache      *persistence.Redis
	Dispatcher events.Dispatcher
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
}

// TicketUpdateInput describes the owner-editable fields; nil means
// unchanged. Status and assignment are not reachable through this path.
type TicketUpdateInput struct {
	Title       *string
	Description *string
	Priority    *domain.TicketPriority
}

// TicketStats aggregates per-status tallies and mean resolution time.
// Closed tickets are deliberately excluded from the tallies.
type TicketStats struct {
	Open                       int     `json:"open"`
	InProgress                 int     `json:"in_progress"`
	Resolved                   int     `json:"resolved"`
	AverageResolutionTimeHours float64 `json:"average_resolution_time_hours"`
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
	}
}

// Create opens a ticket owned by the caller. Status always starts open and
// priority defaults to low.
func (s *TicketService) Create(ctx context.Context, owner *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if owner == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityLow
	}
	if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
		OwnerID:     owner.ID,
		Owner:       owner,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.invalidateStats(ctx)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  owner.ID,
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Priority: ticket.Priority,
		},
	})
	return ticket, nil
}

// Get fetches a ticket the caller is allowed to see.
func (s *TicketService) Get(ctx context.Context, caller *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := ensureCanAccess(caller, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// Update mutates title, description and priority under the same ownership
// rule as Get.
func (s *TicketService) Update(ctx context.Context, caller *domain.User, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := ensureCanAccess(caller, ticket); err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title must not be empty", nil)
		}
		ticket.Title = title
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return nil, apperrors.NewValidationError("description must not be empty", nil)
		}
		ticket.Description = description
	}
	if input.Priority != nil {
		if !domain.ValidPriority(*input.Priority) {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *input.Priority})
		}
		ticket.Priority = *input.Priority
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// Delete removes a ticket under the same ownership rule as Get. Comments
// are not cascaded here; the schema owns referential cleanup.
func (s *TicketService) Delete(ctx context.Context, caller *domain.User, ticketID string) error {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if err := ensureCanAccess(caller, ticket); err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return apperrors.MapError(err)
	}

	s.invalidateStats(ctx)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		ActorID:  caller.ID,
	})
	return nil
}

// ListOwn returns the caller's tickets, newest first.
func (s *TicketService) ListOwn(ctx context.Context, caller *domain.User) ([]domain.Ticket, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := s.tickets.ListByOwner(ctx, caller.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListAll returns every ticket matching the filter conjunction, newest
// first. Admin only.
func (s *TicketService) ListAll(ctx context.Context, caller *domain.User, filter TicketAdminFilter) ([]domain.Ticket, error) {
	if err := auth.EnsureAdmin(caller); err != nil {
		return nil, err
	}
	tickets, err := s.tickets.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	preds := buildFilterPredicates(filter)
	if len(preds) == 0 {
		return tickets, nil
	}
	match := allOf(preds...)
	filtered := make([]domain.Ticket, 0, len(tickets))
	for i := range tickets {
		if match(&tickets[i]) {
			filtered = append(filtered, tickets[i])
		}
	}
	return filtered, nil
}

// Assign points a ticket at an agent. Admin only; the agent must exist.
// Status is not touched.
func (s *TicketService) Assign(ctx context.Context, caller *domain.User, ticketID, agentID string) (*domain.Ticket, error) {
	if err := auth.EnsureAdmin(caller); err != nil {
		return nil, err
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	agent, err := s.users.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("agent", map[string]any{"agent_id": agentID})
		}
		return nil, apperrors.MapError(err)
	}

	ticket.AssigneeID = &agent.ID
	ticket.Assignee = agent
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		ActorID:  caller.ID,
		Payload:  events.TicketAssignedPayload{AssigneeID: agent.ID},
	})
	return ticket, nil
}

// SetStatus moves a ticket to any of the four lifecycle states. Admin only.
// Transitions are deliberately unrestricted beyond enum membership,
// including same-to-same.
func (s *TicketService) SetStatus(ctx context.Context, caller *domain.User, ticketID string, status domain.TicketStatus) (*domain.Ticket, error) {
	if err := auth.EnsureAdmin(caller); err != nil {
		return nil, err
	}
	if status == "" {
		return nil, apperrors.NewValidationError("status must not be empty", nil)
	}
	if !domain.ValidStatus(status) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
	}

	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	ticket.Status = status
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.invalidateStats(ctx)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		ActorID:  caller.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: status,
		},
	})
	return ticket, nil
}

// Stats tallies open/in_progress/resolved tickets and the mean
// created-to-updated hours over currently resolved tickets. Closed tickets
// are excluded from the tallies entirely. The result is cached briefly in
// redis; mutations invalidate it.
func (s *TicketService) Stats(ctx context.Context) (*TicketStats, error) {
	if cached := s.cachedStats(ctx); cached != nil {
		return cached, nil
	}

	counts, err := s.tickets.StatusCounts(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	stats := &TicketStats{
		Open:       counts[domain.TicketStatusOpen],
		InProgress: counts[domain.TicketStatusInProgress],
		Resolved:   counts[domain.TicketStatusResolved],
	}

	resolved, err := s.tickets.ListByStatus(ctx, domain.TicketStatusResolved)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(resolved) > 0 {
		var totalHours float64
		for i := range resolved {
			totalHours += resolved[i].UpdatedAt.Sub(resolved[i].CreatedAt).Hours()
		}
		stats.AverageResolutionTimeHours = math.Round(totalHours/float64(len(resolved))*100) / 100
	}

	s.storeStats(ctx, stats)
	return stats, nil
}

func (s *TicketService) getTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// ensureCanAccess is the ownership rule shared by read, update and delete:
// admins always pass, otherwise the caller must own the ticket.
func ensureCanAccess(caller *domain.User, ticket *domain.Ticket) error {
	if caller == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if caller.IsAdmin() || ticket.OwnerID == caller.ID {
		return nil
	}
	return apperrors.NewForbidden("not allowed to access this ticket")
}

func (s *TicketService) cachedStats(ctx context.Context) *TicketStats {
	if s.cache == nil || s.cache.Client == nil {
		return nil
	}
	raw, err := s.cache.Client.Get(ctx, statsCacheKey).Result()
	if err != nil {
		return nil
	}
	var stats TicketStats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		return nil
	}
	return &stats
}

func (s *TicketService) storeStats(ctx context.Context, stats *TicketStats) {
	if s.cache == nil || s.cache.Client == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	_ = s.cache.Client.Set(ctx, statsCacheKey, raw, statsCacheTTL).Err()
}

func (s *TicketService) invalidateStats(ctx context.Context) {
	if s.cache == nil || s.cache.Client == nil {
		return
	}
	_ = s.cache.Client.Del(ctx, statsCacheKey).Err()
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
