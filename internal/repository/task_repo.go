package repository

import (
	"context"
	"fmt"
	"time"

	"tareas_api/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TaskRepository scopes every statement by owner, so a foreign task id
// behaves exactly like a missing one.
type TaskRepository struct {
	db *pgxpool.Pool
}

func NewTaskRepository(db *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, user_id, title, description, due_date, completed, created_at`

func (r *TaskRepository) List(ctx context.Context, ownerID int64) ([]*domain.Task, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 ORDER BY id DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make([]*domain.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r *TaskRepository) Create(ctx context.Context, t *domain.Task) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO tasks (user_id, title, description, due_date, completed)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		t.UserID, t.Title, t.Description, t.DueDate.Time, t.Completed,
	).Scan(&t.ID, &t.CreatedAt)
}

func (r *TaskRepository) Get(ctx context.Context, id, ownerID int64) (*domain.Task, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`, id, ownerID)
	t, err := scanTask(row)
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

// Update writes every mutable field of t. Owner and id are only used to
// locate the row.
func (r *TaskRepository) Update(ctx context.Context, t *domain.Task) error {
	var dueDate time.Time
	err := r.db.QueryRow(ctx,
		`UPDATE tasks
		 SET title = $1, description = $2, due_date = $3, completed = $4
		 WHERE id = $5 AND user_id = $6
		 RETURNING due_date, created_at`,
		t.Title, t.Description, t.DueDate.Time, t.Completed, t.ID, t.UserID,
	).Scan(&dueDate, &t.CreatedAt)
	if err != nil {
		return notFound(err)
	}
	t.DueDate = domain.DateOf(dueDate)
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id, ownerID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	var dueDate time.Time
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &dueDate, &t.Completed, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.DueDate = domain.DateOf(dueDate)
	return &t, nil
}
