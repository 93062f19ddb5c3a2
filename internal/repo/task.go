package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/taskboard/internal/model"
)

const taskColumns = `id, user_id, title, description, completed, due_date, priority, category, created_at`

type TaskRepo struct { // PostgreSQL-backed TaskRepository
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{
		pool: pool,
	}
}

func (r *TaskRepo) List(ctx context.Context, userID uuid.UUID) ([]model.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepo) Create(ctx context.Context, userID uuid.UUID, d model.Draft) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (user_id, title, description, completed, due_date, priority, category)
		VALUES ($1, $2, $3, FALSE, $4, $5, $6)
		RETURNING `+taskColumns,
		userID, d.Title, d.Description, d.DueDate, d.Priority.String(), d.Category.String(),
	)
	t, err := scanTask(row)
	return t, r.mapError(err)
}

func (r *TaskRepo) Get(ctx context.Context, userID, id uuid.UUID) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	t, err := scanTask(row)
	return t, r.mapError(err)
}

func (r *TaskRepo) Update(ctx context.Context, userID, id uuid.UUID, p model.Patch) (model.Task, error) {
	if p.Empty() {
		return r.Get(ctx, userID, id)
	}

	args := []any{id, userID}
	var sets []string
	set := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if p.Title != nil {
		set("title", *p.Title)
	}
	if p.Description != nil {
		set("description", *p.Description)
	}
	if p.Completed != nil {
		set("completed", *p.Completed)
	}
	if p.ClearDueDate {
		sets = append(sets, "due_date = NULL")
	} else if p.DueDate != nil {
		set("due_date", *p.DueDate)
	}
	if p.Priority != nil {
		set("priority", p.Priority.String())
	}
	if p.Category != nil {
		set("category", p.Category.String())
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET `+strings.Join(sets, ", ")+`
		WHERE id = $1 AND user_id = $2
		RETURNING `+taskColumns,
		args...,
	)
	t, err := scanTask(row)
	return t, r.mapError(err)
}

func (r *TaskRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	cmd, err := r.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

func scanTask(row pgx.Row) (model.Task, error) {
	var (
		t        model.Task
		due      *time.Time
		priority string
		category string
	)
	err := row.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed, &due, &priority, &category, &t.CreatedAt,
	)
	if err != nil {
		return t, err
	}
	t.DueDate = due

	if t.Priority, err = model.ParsePriority(priority); err != nil {
		return t, err
	}
	if t.Category, err = model.ParseCategory(category); err != nil {
		return t, err
	}
	return t, nil
}

func (r *TaskRepo) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrorNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", ErrorConflict, pgErr.Message)
		case "23502", "23514": // not_null_violation, check_violation
			return fmt.Errorf("%w: %s", ErrorInvalid, pgErr.Message)
		}
	}
	return err
}
