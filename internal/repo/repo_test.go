package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ortholine/internal/db"
	"ortholine/internal/domain"
	"ortholine/internal/migrate"
	"ortholine/internal/repo"
)

type store interface {
	InsertOrder(ctx context.Context, o domain.Order) error
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error)
	History(ctx context.Context, orderID string) ([]domain.WorkflowStep, error)
	Assignments(ctx context.Context, orderID string) ([]domain.DepartmentAssignment, error)
	UpdateAssignment(ctx context.Context, a domain.DepartmentAssignment) error
	Commit(ctx context.Context, c repo.Change) error
	ListNotifications(ctx context.Context, f domain.NotificationFilter) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) (bool, error)
	MarkAllNotificationsRead(ctx context.Context, f domain.NotificationFilter) (int, error)
	DeleteNotification(ctx context.Context, id string) (bool, error)
}

var t0 = time.Date(2024, 4, 1, 9, 30, 0, 123456789, time.UTC)

func stores(t *testing.T) map[string]store {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = migrate.Migrate(context.Background(), conn)
	require.NoError(t, err)
	return map[string]store{
		"memory": repo.NewMemory(),
		"sqlite": repo.Repo{DB: conn},
	}
}

func seedOrder(t *testing.T, s store, id string, created time.Time) domain.Order {
	o := domain.Order{
		ID:                id,
		ProductType:       domain.ProductOrthosis,
		Payload:           []byte(`{"size":"M"}`),
		WorkflowStatus:    domain.StatusDraft,
		CurrentDepartment: "registration",
		CreatedBy:         "reg-1",
		CreatedAt:         created,
	}
	require.NoError(t, s.InsertOrder(context.Background(), o))
	return o
}

func sendToMedical(o domain.Order, stepID string) repo.Change {
	next := o
	next.WorkflowStatus = domain.StatusMedicalReview
	next.HistorySeq = o.HistorySeq + 1
	n := domain.Notification{
		ID:            "n-" + stepID,
		OrderID:       o.ID,
		RecipientRole: domain.RoleMedical,
		Type:          domain.NotificationWorkflowUpdate,
		Title:         "t",
		Message:       "m",
		Priority:      domain.PriorityMedium,
		CreatedAt:     t0,
	}
	return repo.Change{
		Order:        next,
		ExpectStatus: o.WorkflowStatus,
		ExpectSeq:    o.HistorySeq,
		Step: domain.WorkflowStep{
			ID:              stepID,
			OrderID:         o.ID,
			Seq:             next.HistorySeq,
			FromDepartment:  "registration",
			ToDepartment:    "medical",
			Action:          domain.ActionSendToMedical,
			FromStatus:      o.WorkflowStatus,
			ResultingStatus: next.WorkflowStatus,
			PerformedBy:     "reg-1",
			PerformedAt:     t0,
		},
		Notification: &n,
	}
}

func TestOrders(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			older := seedOrder(t, s, "o-1", t0)
			seedOrder(t, s, "o-2", t0.Add(time.Hour))

			got, err := s.GetOrder(ctx, "o-1")
			require.NoError(t, err)
			assert.Equal(t, older.ID, got.ID)
			assert.True(t, got.CreatedAt.Equal(t0))
			assert.JSONEq(t, `{"size":"M"}`, string(got.Payload))

			_, err = s.GetOrder(ctx, "missing")
			assert.ErrorIs(t, err, domain.ErrNotFound)

			list, err := s.ListOrders(ctx, domain.OrderFilter{})
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "o-2", list[0].ID)

			require.NoError(t, s.Commit(ctx, sendToMedical(older, "s-1")))
			list, err = s.ListOrders(ctx, domain.OrderFilter{Status: domain.StatusMedicalReview})
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, "o-1", list[0].ID)
		})
	}
}

func TestInsertDuplicateOrderConflicts(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedOrder(t, s, "o-1", t0)
			dup := domain.Order{
				ID:                "o-1",
				ProductType:       domain.ProductRepair,
				WorkflowStatus:    domain.StatusDraft,
				CurrentDepartment: "registration",
				CreatedBy:         "reg-2",
				CreatedAt:         t0.Add(time.Hour),
			}
			err := s.InsertOrder(ctx, dup)
			assert.ErrorIs(t, err, domain.ErrConflict)

			got, err := s.GetOrder(ctx, "o-1")
			require.NoError(t, err)
			assert.Equal(t, domain.ProductOrthosis, got.ProductType)
			assert.Equal(t, "reg-1", got.CreatedBy)
		})
	}
}

func TestCommitCompareAndSwap(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			o := seedOrder(t, s, "o-1", t0)
			change := sendToMedical(o, "s-1")
			require.NoError(t, s.Commit(ctx, change))

			stale := sendToMedical(o, "s-2")
			assert.ErrorIs(t, s.Commit(ctx, stale), domain.ErrConflict)

			missing := sendToMedical(domain.Order{ID: "ghost", WorkflowStatus: domain.StatusDraft}, "s-3")
			assert.ErrorIs(t, s.Commit(ctx, missing), domain.ErrNotFound)

			history, err := s.History(ctx, "o-1")
			require.NoError(t, err)
			require.Len(t, history, 1)
			assert.Equal(t, "s-1", history[0].ID)
			assert.True(t, history[0].PerformedAt.Equal(t0))

			inbox, err := s.ListNotifications(ctx, domain.NotificationFilter{})
			require.NoError(t, err)
			assert.Len(t, inbox, 1, "failed commits must not leave notifications behind")

			got, err := s.GetOrder(ctx, "o-1")
			require.NoError(t, err)
			assert.Equal(t, domain.StatusMedicalReview, got.WorkflowStatus)
			assert.Equal(t, 1, got.HistorySeq)
		})
	}
}

func TestCommitRejectsInconsistentChange(t *testing.T) {
	s := repo.NewMemory()
	o := seedOrder(t, s, "o-1", t0)
	change := sendToMedical(o, "s-1")
	change.Step.Seq = 5
	assert.Error(t, s.Commit(context.Background(), change))
}

func TestAssignments(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			o := seedOrder(t, s, "o-1", t0)
			change := sendToMedical(o, "s-1")
			change.Assignment = &domain.DepartmentAssignment{
				ID:                      "a-1",
				OrderID:                 "o-1",
				Department:              domain.DepartmentMedical,
				AssignedBy:              "disp-1",
				AssignedAt:              t0,
				Priority:                domain.PriorityHigh,
				EstimatedCompletionDate: t0.Add(24 * time.Hour),
				Status:                  domain.AssignmentAssigned,
			}
			require.NoError(t, s.Commit(ctx, change))

			items, err := s.Assignments(ctx, "o-1")
			require.NoError(t, err)
			require.Len(t, items, 1)
			a := items[0]
			assert.Equal(t, domain.PriorityHigh, a.Priority)
			assert.Nil(t, a.ActualCompletionDate)

			done := t0.Add(3 * time.Hour)
			a.Status = domain.AssignmentCompleted
			a.ActualCompletionDate = &done
			require.NoError(t, s.UpdateAssignment(ctx, a))
			items, err = s.Assignments(ctx, "o-1")
			require.NoError(t, err)
			require.NotNil(t, items[0].ActualCompletionDate)
			assert.True(t, items[0].ActualCompletionDate.Equal(done))
			assert.Equal(t, domain.AssignmentCompleted, items[0].Status)

			a.ID = "a-missing"
			assert.ErrorIs(t, s.UpdateAssignment(ctx, a), domain.ErrNotFound)
		})
	}
}

func TestNotificationReadState(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			o1 := seedOrder(t, s, "o-1", t0)
			o2 := seedOrder(t, s, "o-2", t0)
			require.NoError(t, s.Commit(ctx, sendToMedical(o1, "s-1")))
			require.NoError(t, s.Commit(ctx, sendToMedical(o2, "s-2")))

			inbox, err := s.ListNotifications(ctx, domain.NotificationFilter{RecipientRole: domain.RoleMedical})
			require.NoError(t, err)
			require.Len(t, inbox, 2)
			assert.Equal(t, "n-s-2", inbox[0].ID, "newest first")

			found, err := s.MarkNotificationRead(ctx, "n-s-1")
			require.NoError(t, err)
			assert.True(t, found)
			found, err = s.MarkNotificationRead(ctx, "n-nope")
			require.NoError(t, err)
			assert.False(t, found)

			unread, err := s.ListNotifications(ctx, domain.NotificationFilter{UnreadOnly: true})
			require.NoError(t, err)
			require.Len(t, unread, 1)
			assert.Equal(t, "n-s-2", unread[0].ID)

			n, err := s.MarkAllNotificationsRead(ctx, domain.NotificationFilter{RecipientRole: domain.RoleDispatcher})
			require.NoError(t, err)
			assert.Equal(t, 0, n)
			n, err = s.MarkAllNotificationsRead(ctx, domain.NotificationFilter{})
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			found, err = s.DeleteNotification(ctx, "n-s-1")
			require.NoError(t, err)
			assert.True(t, found)
			found, err = s.DeleteNotification(ctx, "n-s-1")
			require.NoError(t, err)
			assert.False(t, found)

			inbox, err = s.ListNotifications(ctx, domain.NotificationFilter{})
			require.NoError(t, err)
			require.Len(t, inbox, 1)
			assert.True(t, inbox[0].IsRead)
		})
	}
}
