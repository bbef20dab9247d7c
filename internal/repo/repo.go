package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ortholine/internal/domain"
)

// Repo is the SQLite-backed store.
type Repo struct {
	DB *sql.DB
}

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

const orderColumns = `id,product_type,payload_json,workflow_status,current_department,created_by,created_at,history_seq`

func scanOrder(row rowScanner) (domain.Order, error) {
	var o domain.Order
	var payload sql.NullString
	var createdAt string
	if err := row.Scan(&o.ID, &o.ProductType, &payload, &o.WorkflowStatus, &o.CurrentDepartment, &o.CreatedBy, &createdAt, &o.HistorySeq); err != nil {
		return o, err
	}
	if payload.Valid && payload.String != "" {
		o.Payload = json.RawMessage(payload.String)
	}
	ts, err := parseTime(createdAt)
	if err != nil {
		return o, fmt.Errorf("order %s created_at: %w", o.ID, err)
	}
	o.CreatedAt = ts
	return o, nil
}

// InsertOrder returns ErrConflict when the id is taken.
func (r Repo) InsertOrder(ctx context.Context, o domain.Order) error {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO orders(`+orderColumns+`) VALUES (?,?,?,?,?,?,?,?) ON CONFLICT(id) DO NOTHING`,
		o.ID, o.ProductType, nullable(string(o.Payload)), o.WorkflowStatus, o.CurrentDepartment, o.CreatedBy, formatTime(o.CreatedAt), o.HistorySeq)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("order %s already exists: %w", o.ID, domain.ErrConflict)
	}
	return nil
}

func (r Repo) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	o, err := scanOrder(r.DB.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=?`, id))
	if err == sql.ErrNoRows {
		return o, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return o, err
}

func (r Repo) ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	var clauses []string
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "workflow_status=?")
		args = append(args, f.Status)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders `+where+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, rows.Err()
}

func (r Repo) History(ctx context.Context, orderID string) ([]domain.WorkflowStep, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,order_id,seq,from_department,to_department,action,from_status,resulting_status,performed_by,performed_at,COALESCE(comments,'')
FROM workflow_steps WHERE order_id=? ORDER BY seq`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.WorkflowStep
	for rows.Next() {
		var s domain.WorkflowStep
		var performedAt string
		if err := rows.Scan(&s.ID, &s.OrderID, &s.Seq, &s.FromDepartment, &s.ToDepartment, &s.Action, &s.FromStatus, &s.ResultingStatus, &s.PerformedBy, &performedAt, &s.Comments); err != nil {
			return nil, err
		}
		if s.PerformedAt, err = parseTime(performedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

const assignmentColumns = `id,order_id,department,assigned_by,assigned_at,priority,estimated_completion_date,actual_completion_date,status`

func (r Repo) Assignments(ctx context.Context, orderID string) ([]domain.DepartmentAssignment, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+assignmentColumns+` FROM department_assignments WHERE order_id=? ORDER BY assigned_at, rowid`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.DepartmentAssignment
	for rows.Next() {
		var a domain.DepartmentAssignment
		var assignedAt, estimated string
		var actual sql.NullString
		if err := rows.Scan(&a.ID, &a.OrderID, &a.Department, &a.AssignedBy, &assignedAt, &a.Priority, &estimated, &actual, &a.Status); err != nil {
			return nil, err
		}
		if a.AssignedAt, err = parseTime(assignedAt); err != nil {
			return nil, err
		}
		if a.EstimatedCompletionDate, err = parseTime(estimated); err != nil {
			return nil, err
		}
		if actual.Valid {
			ts, err := parseTime(actual.String)
			if err != nil {
				return nil, err
			}
			a.ActualCompletionDate = &ts
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) UpdateAssignment(ctx context.Context, a domain.DepartmentAssignment) error {
	var actual any
	if a.ActualCompletionDate != nil {
		actual = formatTime(*a.ActualCompletionDate)
	}
	res, err := r.DB.ExecContext(ctx, `UPDATE department_assignments SET status=?, actual_completion_date=? WHERE id=?`, a.Status, actual, a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("assignment %s: %w", a.ID, domain.ErrNotFound)
	}
	return nil
}

// Commit applies c in one transaction guarded by a compare-and-swap on the order row.
func (r Repo) Commit(ctx context.Context, c Change) error {
	if err := c.validate(); err != nil {
		return err
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE orders SET workflow_status=?, history_seq=? WHERE id=? AND workflow_status=? AND history_seq=?`,
		c.Order.WorkflowStatus, c.Order.HistorySeq, c.Order.ID, c.ExpectStatus, c.ExpectSeq)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM orders WHERE id=?`, c.Order.ID).Scan(&exists)
		if err == sql.ErrNoRows {
			return fmt.Errorf("order %s: %w", c.Order.ID, domain.ErrNotFound)
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("order %s expected %s#%d: %w", c.Order.ID, c.ExpectStatus, c.ExpectSeq, domain.ErrConflict)
	}
	s := c.Step
	if _, err := tx.ExecContext(ctx, `INSERT INTO workflow_steps(id,order_id,seq,from_department,to_department,action,from_status,resulting_status,performed_by,performed_at,comments)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.OrderID, s.Seq, s.FromDepartment, s.ToDepartment, s.Action, s.FromStatus, s.ResultingStatus, s.PerformedBy, formatTime(s.PerformedAt), nullable(s.Comments)); err != nil {
		return fmt.Errorf("insert step: %w", err)
	}
	if a := c.Assignment; a != nil {
		if _, err := tx.ExecContext(ctx, `INSERT INTO department_assignments(`+assignmentColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
			a.ID, a.OrderID, a.Department, a.AssignedBy, formatTime(a.AssignedAt), a.Priority, formatTime(a.EstimatedCompletionDate), nil, a.Status); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
	}
	if n := c.Notification; n != nil {
		if _, err := tx.ExecContext(ctx, `INSERT INTO notifications(id,order_id,recipient_role,type,title,message,is_read,priority,action_required,created_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
			n.ID, n.OrderID, n.RecipientRole, n.Type, n.Title, n.Message, n.IsRead, n.Priority, n.ActionRequired, formatTime(n.CreatedAt)); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
	}
	return tx.Commit()
}

// ListNotifications returns newest first.
func (r Repo) ListNotifications(ctx context.Context, f domain.NotificationFilter) ([]domain.Notification, error) {
	clauses, args := notificationWhere(f)
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,order_id,recipient_role,type,title,message,is_read,priority,action_required,created_at
FROM notifications `+where+` ORDER BY created_at DESC, rowid DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var createdAt string
		if err := rows.Scan(&n.ID, &n.OrderID, &n.RecipientRole, &n.Type, &n.Title, &n.Message, &n.IsRead, &n.Priority, &n.ActionRequired, &createdAt); err != nil {
			return nil, err
		}
		if n.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, rows.Err()
}

func (r Repo) MarkNotificationRead(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE notifications SET is_read=1 WHERE id=?`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r Repo) MarkAllNotificationsRead(ctx context.Context, f domain.NotificationFilter) (int, error) {
	f.UnreadOnly = true
	clauses, args := notificationWhere(f)
	res, err := r.DB.ExecContext(ctx, `UPDATE notifications SET is_read=1 WHERE `+strings.Join(clauses, " AND "), args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r Repo) DeleteNotification(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM notifications WHERE id=?`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func notificationWhere(f domain.NotificationFilter) ([]string, []any) {
	var clauses []string
	var args []any
	if f.RecipientRole != "" {
		clauses = append(clauses, "recipient_role=?")
		args = append(args, f.RecipientRole)
	}
	if f.UnreadOnly {
		clauses = append(clauses, "is_read=0")
	}
	return clauses, args
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
