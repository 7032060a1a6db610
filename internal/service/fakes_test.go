package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

type fakeTicketRepo struct {
	createFn       func(context.Context, *domain.Ticket) error
	updateFn       func(context.Context, *domain.Ticket) error
	deleteFn       func(context.Context, string) error
	getByIDFn      func(context.Context, string) (*domain.Ticket, error)
	listByOwnerFn  func(context.Context, string) ([]domain.Ticket, error)
	listAllFn      func(context.Context) ([]domain.Ticket, error)
	listByStatusFn func(context.Context, domain.TicketStatus) ([]domain.Ticket, error)
	statusCountsFn func(context.Context) (map[domain.TicketStatus]int, error)
}

func (f *fakeTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	if f.createFn != nil {
		return f.createFn(ctx, ticket)
	}
	ticket.ID = "ticket-1"
	return nil
}

func (f *fakeTicketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, ticket)
	}
	return nil
}

func (f *fakeTicketRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func (f *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeTicketRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Ticket, error) {
	if f.listByOwnerFn != nil {
		return f.listByOwnerFn(ctx, ownerID)
	}
	return nil, nil
}

func (f *fakeTicketRepo) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	if f.listAllFn != nil {
		return f.listAllFn(ctx)
	}
	return nil, nil
}

func (f *fakeTicketRepo) ListByStatus(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	if f.listByStatusFn != nil {
		return f.listByStatusFn(ctx, status)
	}
	return nil, nil
}

func (f *fakeTicketRepo) StatusCounts(ctx context.Context) (map[domain.TicketStatus]int, error) {
	if f.statusCountsFn != nil {
		return f.statusCountsFn(ctx)
	}
	return map[domain.TicketStatus]int{}, nil
}

type fakeUserRepo struct {
	createFn     func(context.Context, *domain.User) error
	updateFn     func(context.Context, *domain.User) error
	getByIDFn    func(context.Context, string) (*domain.User, error)
	getByEmailFn func(context.Context, string) (*domain.User, error)
}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	if f.createFn != nil {
		return f.createFn(ctx, user)
	}
	user.ID = "user-1"
	return nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user *domain.User) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, user)
	}
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}
	return nil, pgx.ErrNoRows
}

type fakeCommentRepo struct {
	createFn             func(context.Context, *domain.Comment) error
	listByTicketFn       func(context.Context, string) ([]domain.Comment, error)
	findRecentMatchingFn func(context.Context, string, string, string) (*domain.Comment, error)
}

func (f *fakeCommentRepo) Create(ctx context.Context, comment *domain.Comment) error {
	if f.createFn != nil {
		return f.createFn(ctx, comment)
	}
	comment.ID = "comment-1"
	return nil
}

func (f *fakeCommentRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	if f.listByTicketFn != nil {
		return f.listByTicketFn(ctx, ticketID)
	}
	return nil, nil
}

func (f *fakeCommentRepo) FindRecentMatching(ctx context.Context, ticketID, body, authorID string) (*domain.Comment, error) {
	if f.findRecentMatchingFn != nil {
		return f.findRecentMatchingFn(ctx, ticketID, body, authorID)
	}
	return nil, pgx.ErrNoRows
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	return domainErr.Code
}

func adminUser() *domain.User {
	return &domain.User{ID: "admin-1", Email: "admin@example.com", FirstName: "Ada", LastName: "Admin", Role: domain.RoleAdmin}
}

func regularUser(id string) *domain.User {
	return &domain.User{ID: id, Email: id + "@example.com", FirstName: "Rae", LastName: "User", Role: domain.RoleUser}
}
