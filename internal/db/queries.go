package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type User struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
	CreatedAt   time.Time
}

type View struct {
	ID        string
	OwnerID   string
	Name      string
	ZoomX     float64
	ZoomY     float64
	OffsetX   float64
	OffsetY   float64
	Stretch   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

const userColumns = `id, email, password, display_name, created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

type CreateUserParams struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
}

const createUser = `INSERT INTO users (id, email, password, display_name)
VALUES ($1, $2, $3, $4)
RETURNING ` + userColumns

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, createUser, arg.ID, arg.Email, arg.Password, arg.DisplayName))
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

const viewColumns = `id, owner_id, name, zoom_x, zoom_y, offset_x, offset_y, stretch, created_at, updated_at`

func scanView(row pgx.Row) (View, error) {
	var v View
	err := row.Scan(&v.ID, &v.OwnerID, &v.Name, &v.ZoomX, &v.ZoomY, &v.OffsetX, &v.OffsetY,
		&v.Stretch, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

type CreateViewParams struct {
	ID      string
	OwnerID string
	Name    string
	ZoomX   float64
	ZoomY   float64
	OffsetX float64
	OffsetY float64
	Stretch string
}

const createView = `INSERT INTO views (id, owner_id, name, zoom_x, zoom_y, offset_x, offset_y, stretch)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + viewColumns

func (q *Queries) CreateView(ctx context.Context, arg CreateViewParams) (View, error) {
	return scanView(q.db.QueryRow(ctx, createView,
		arg.ID, arg.OwnerID, arg.Name, arg.ZoomX, arg.ZoomY, arg.OffsetX, arg.OffsetY, arg.Stretch))
}

const getView = `SELECT ` + viewColumns + ` FROM views WHERE id = $1`

func (q *Queries) GetView(ctx context.Context, id string) (View, error) {
	return scanView(q.db.QueryRow(ctx, getView, id))
}

const listViewsForUser = `SELECT ` + viewColumns + ` FROM views WHERE owner_id = $1 ORDER BY updated_at DESC`

func (q *Queries) ListViewsForUser(ctx context.Context, ownerID string) ([]View, error) {
	rows, err := q.db.Query(ctx, listViewsForUser, ownerID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (View, error) {
		return scanView(row)
	})
}

const deleteView = `DELETE FROM views WHERE id = $1`

func (q *Queries) DeleteView(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, deleteView, id)
	return err
}
