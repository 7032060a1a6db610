package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
)

func newTicketService(tickets *fakeTicketRepo, users *fakeUserRepo) *TicketService {
	return NewTicketService(TicketDependencies{TicketRepo: tickets, UserRepo: users})
}

func TestTicketCreateDefaults(t *testing.T) {
	tickets := &fakeTicketRepo{}
	svc := newTicketService(tickets, &fakeUserRepo{})

	ticket, err := svc.Create(context.Background(), regularUser("owner-1"), TicketCreateInput{
		Title:       "Printer jam",
		Description: "Paper stuck in tray 2",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityLow, ticket.Priority)
	assert.Equal(t, "owner-1", ticket.OwnerID)
}

func TestTicketCreateRejectsUnknownPriority(t *testing.T) {
	created := false
	tickets := &fakeTicketRepo{createFn: func(context.Context, *domain.Ticket) error {
		created = true
		return nil
	}}
	svc := newTicketService(tickets, &fakeUserRepo{})

	_, err := svc.Create(context.Background(), regularUser("owner-1"), TicketCreateInput{
		Title:       "Printer jam",
		Description: "Paper stuck",
		Priority:    "urgent",
	})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
	assert.False(t, created)
}

func TestTicketGetOwnershipRule(t *testing.T) {
	tickets := &fakeTicketRepo{getByIDFn: func(_ context.Context, id string) (*domain.Ticket, error) {
		return &domain.Ticket{ID: id, OwnerID: "owner-1", Status: domain.TicketStatusOpen}, nil
	}}
	svc := newTicketService(tickets, &fakeUserRepo{})

	_, err := svc.Get(context.Background(), regularUser("owner-1"), "ticket-1")
	assert.NoError(t, err)

	_, err = svc.Get(context.Background(), regularUser("intruder"), "ticket-1")
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", domainCode(t, err))

	_, err = svc.Get(context.Background(), adminUser(), "ticket-1")
	assert.NoError(t, err)
}

func TestTicketGetNotFound(t *testing.T) {
	svc := newTicketService(&fakeTicketRepo{}, &fakeUserRepo{})

	_, err := svc.Get(context.Background(), adminUser(), "missing")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))
}

func TestTicketUpdatePartialFields(t *testing.T) {
	var saved *domain.Ticket
	tickets := &fakeTicketRepo{
		getByIDFn: func(_ context.Context, id string) (*domain.Ticket, error) {
			return &domain.Ticket{
				ID:          id,
				Title:       "Printer jam",
				Description: "Paper stuck",
				Status:      domain.TicketStatusOpen,
				Priority:    domain.TicketPriorityLow,
				OwnerID:     "owner-1",
			}, nil
		},
		updateFn: func(_ context.Context, ticket *domain.Ticket) error {
			saved = ticket
			return nil
		},
	}
	svc := newTicketService(tickets, &fakeUserRepo{})

	priority := domain.TicketPriorityHigh
	ticket, err := svc.Update(context.Background(), regularUser("owner-1"), "ticket-1", TicketUpdateInput{
		Priority: &priority,
	})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
	assert.Equal(t, "Printer jam", ticket.Title)
	assert.Equal(t, "Paper stuck", ticket.Description)
}

func TestTicketUpdateForbiddenForNonOwner(t *testing.T) {
	updated := false
	tickets := &fakeTicketRepo{
		getByIDFn: func(_ context.Context, id string) (*domain.Ticket, error) {
			return &domain.Ticket{ID: id, OwnerID: "owner-1"}, nil
		},
		updateFn: func(context.Context, *domain.Ticket) error {
			updated = true
			return nil
		},
	}
	svc := newTicketService(tickets, &fakeUserRepo{})

	title := "Hijacked"
	_, err := svc.Update(context.Background(), regularUser("intruder"), "ticket-1", TicketUpdateInput{Title: &title})
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", domainCode(t, err))
	assert.False(t, updated)
}

func TestTicketDeleteForbiddenForNonOwner(t *testing.T) {
	deleted := false
	tickets := &fakeTicketRepo{
		getByIDFn: func(_ context.Context, id string) (*domain.Ticket, error) {
			return &domain.Ticket{ID: id, OwnerID: "owner-1"}, nil
		},
		deleteFn: func(context.Context, string) error {
			deleted = true
			return nil
		},
	}
	svc := newTicketService(tickets, &fakeUserRepo{})

	err := svc.Delete(context.Background(), regularUser("intruder"), "ticket-1")
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", domainCode(t, err))
	assert.False(t, deleted)

	require.NoError(t, svc.Delete(context.Background(), adminUser(), "ticket-1"))
	assert.True(t, deleted)
}

func TestSetStatusRejectsUnknownValue(t *testing.T) {
	updated := false
	tickets := &fakeTicketRepo{
		getByIDFn: func(_ context.Context, id string) (*domain.Ticket, error) {
			return &domain.Ticket{ID: id, OwnerID: "owner-1", Status: domain.TicketStatusOpen}, nil
		},
		updateFn: func(context.Context, *domain.Ticket) error {
			updated = true
			return nil
		},
	}
	svc := newTicketService(tickets, &fakeUserRepo{})

	for _, status := range []domain.TicketStatus{"", "reopened", "OPEN"} {
		_, err := svc.SetStatus(context.Background(), adminUser(), "ticket-1", status)
		require.Error(t, err, "status %q", status)
		assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
	}
	assert.False(t, updated)
}

func TestSetStatusAllowsAnyTransition(t *testing.T) {
	var saved *domain.Ticket
	tickets := &fakeTicketRepo{
		getByIDFn: func(_ context.Context, id string) (*domain.Ticket, error) {
			return &domain.Ticket{ID: id, OwnerID: "owner-1", Status: domain.TicketStatusResolved}, nil
		},
		updateFn: func(_ context.Context, ticket *domain.Ticket) error {
			saved = ticket
			return nil
		},
	}
	svc := newTicketService(tickets, &fakeUserRepo{})

	ticket, err := svc.SetStatus(context.Background(), adminUser(), "ticket-1", domain.TicketStatusOpen)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	require.NotNil(t, saved)
	assert.Equal(t, domain.TicketStatusOpen, saved.Status)
}

func TestSetStatusRequiresAdmin(t *testing.T) {
	svc := newTicketService(&fakeTicketRepo{}, &fakeUserRepo{})

	_, err := svc.SetStatus(context.Background(), regularUser("user-1"), "ticket-1", domain.TicketStatusClosed)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", domainCode(t, err))

	_, err = svc.SetStatus(context.Background(), nil, "ticket-1", domain.TicketStatusClosed)
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", domainCode(t, err))
}

func TestAssignMissingAgent(t *testing.T) {
	updated := false
	tickets := &fakeTicketRepo{
		getByIDFn: func(_ context.Context, id string) (*domain.Ticket, error) {
			return &domain.Ticket{ID: id, OwnerID: "owner-1", Status: domain.TicketStatusOpen}, nil
		},
		updateFn: func(context.Context, *domain.Ticket) error {
			updated = true
			return nil
		},
	}
	users := &fakeUserRepo{getByIDFn: func(context.Context, string) (*domain.User, error) {
		return nil, pgx.ErrNoRows
	}}
	svc := newTicketService(tickets, users)

	_, err := svc.Assign(context.Background(), adminUser(), "ticket-1", "ghost-agent")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))
	assert.False(t, updated)
}

func TestAssignSetsAssigneeWithoutTouchingStatus(t *testing.T) {
	var saved *domain.Ticket
	tickets := &fakeTicketRepo{
		getByIDFn: func(_ context.Context, id string) (*domain.Ticket, error) {
			return &domain.Ticket{ID: id, OwnerID: "owner-1", Status: domain.TicketStatusInProgress}, nil
		},
		updateFn: func(_ context.Context, ticket *domain.Ticket) error {
			saved = ticket
			return nil
		},
	}
	users := &fakeUserRepo{getByIDFn: func(_ context.Context, id string) (*domain.User, error) {
		return &domain.User{ID: id, Role: domain.RoleAdmin}, nil
	}}
	svc := newTicketService(tickets, users)

	ticket, err := svc.Assign(context.Background(), adminUser(), "ticket-1", "agent-7")
	require.NoError(t, err)
	require.NotNil(t, ticket.AssigneeID)
	assert.Equal(t, "agent-7", *ticket.AssigneeID)
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
	require.NotNil(t, saved)
	require.NotNil(t, saved.AssigneeID)
	assert.Equal(t, "agent-7", *saved.AssigneeID)
}

func TestListAllRequiresAdmin(t *testing.T) {
	svc := newTicketService(&fakeTicketRepo{}, &fakeUserRepo{})

	_, err := svc.ListAll(context.Background(), regularUser("user-1"), TicketAdminFilter{})
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", domainCode(t, err))
}

func TestListAllFilters(t *testing.T) {
	all := []domain.Ticket{
		{
			ID: "t1", Title: "VPN broken", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityHigh,
			Owner: &domain.User{FirstName: "Jane", LastName: "Doe"},
		},
		{
			ID: "t2", Title: "Email quota", Status: domain.TicketStatusResolved, Priority: domain.TicketPriorityLow,
			Owner: &domain.User{FirstName: "Bob", LastName: "Smith"},
		},
		{
			ID: "t3", Title: "Monitor flickers for Jane", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityLow,
			Owner: &domain.User{FirstName: "Bob", LastName: "Smith"},
		},
	}
	tickets := &fakeTicketRepo{listAllFn: func(context.Context) ([]domain.Ticket, error) {
		return all, nil
	}}
	svc := newTicketService(tickets, &fakeUserRepo{})
	ctx := context.Background()

	got, err := svc.ListAll(ctx, adminUser(), TicketAdminFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	status := domain.TicketStatusOpen
	got, err = svc.ListAll(ctx, adminUser(), TicketAdminFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "t1", got[0].ID)

	// search matches owner name case-insensitively as well as titles
	term := "jane"
	got, err = svc.ListAll(ctx, adminUser(), TicketAdminFilter{SearchTerm: &term})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "t1", got[0].ID)
	assert.Equal(t, "t3", got[1].ID)

	priority := domain.TicketPriorityLow
	got, err = svc.ListAll(ctx, adminUser(), TicketAdminFilter{Status: &status, Priority: &priority})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t3", got[0].ID)
}

func TestStatsExcludesClosed(t *testing.T) {
	now := time.Now()
	tickets := &fakeTicketRepo{
		statusCountsFn: func(context.Context) (map[domain.TicketStatus]int, error) {
			return map[domain.TicketStatus]int{
				domain.TicketStatusOpen:       2,
				domain.TicketStatusInProgress: 1,
				domain.TicketStatusResolved:   1,
				domain.TicketStatusClosed:     1,
			}, nil
		},
		listByStatusFn: func(_ context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
			require.Equal(t, domain.TicketStatusResolved, status)
			return []domain.Ticket{
				{ID: "t1", CreatedAt: now, UpdatedAt: now.Add(2 * time.Hour)},
			}, nil
		},
	}
	svc := newTicketService(tickets, &fakeUserRepo{})

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Open)
	assert.Equal(t, 1, stats.InProgress)
	assert.Equal(t, 1, stats.Resolved)
	assert.InDelta(t, 2.0, stats.AverageResolutionTimeHours, 0.001)
}

func TestStatsAverageRoundsToTwoDecimals(t *testing.T) {
	now := time.Now()
	tickets := &fakeTicketRepo{
		statusCountsFn: func(context.Context) (map[domain.TicketStatus]int, error) {
			return map[domain.TicketStatus]int{domain.TicketStatusResolved: 2}, nil
		},
		listByStatusFn: func(context.Context, domain.TicketStatus) ([]domain.Ticket, error) {
			return []domain.Ticket{
				{CreatedAt: now, UpdatedAt: now.Add(time.Hour)},
				{CreatedAt: now, UpdatedAt: now.Add(100 * time.Minute)},
			}, nil
		},
	}
	svc := newTicketService(tickets, &fakeUserRepo{})

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	// (1h + 1h40m) / 2 = 1h20m = 1.3333... hours
	assert.InDelta(t, 1.33, stats.AverageResolutionTimeHours, 0.0001)
}

func TestStatsCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := &persistence.Redis{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(cache.Close)

	counts := map[domain.TicketStatus]int{domain.TicketStatusOpen: 1}
	tickets := &fakeTicketRepo{
		statusCountsFn: func(context.Context) (map[domain.TicketStatus]int, error) {
			out := make(map[domain.TicketStatus]int, len(counts))
			for k, v := range counts {
				out[k] = v
			}
			return out, nil
		},
		getByIDFn: func(_ context.Context, id string) (*domain.Ticket, error) {
			return &domain.Ticket{ID: id, OwnerID: "owner-1", Status: domain.TicketStatusOpen}, nil
		},
	}
	svc := NewTicketService(TicketDependencies{
		TicketRepo: tickets,
		UserRepo:   &fakeUserRepo{},
		Cache:      cache,
	})
	ctx := context.Background()

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Open)

	// underlying counts change, but the cached snapshot is served
	counts[domain.TicketStatusOpen] = 5
	stats, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Open)

	// a status mutation drops the cache so the next read recomputes
	_, err = svc.SetStatus(ctx, adminUser(), "ticket-1", domain.TicketStatusInProgress)
	require.NoError(t, err)

	stats, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Open)
}
