package postgres

import (
	"context"
	"database/sql"
	"strings"

	"medirecord/internal/domain/users"
)

type UsersRepo struct {
	db *sql.DB
}

func NewUsersRepo(db *sql.DB) *UsersRepo {
	return &UsersRepo{db: db}
}

func (r *UsersRepo) Create(ctx context.Context, u users.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, phone, type, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`,
		u.ID,
		u.Name,
		strings.ToLower(u.Email),
		u.Phone,
		string(u.Type),
		u.CreatedAt,
	)
	return err
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (users.User, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (users.User, error) {
	return r.get(ctx, `WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *UsersRepo) GetByPhone(ctx context.Context, phone string) (users.User, error) {
	return r.get(ctx, `WHERE phone = $1 AND phone <> ''`, phone)
}

func (r *UsersRepo) get(ctx context.Context, where string, arg any) (users.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, type, created_at
		FROM users
	`+where, arg)

	var u users.User
	var typ string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &typ, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return users.User{}, users.ErrNotFound
		}
		return users.User{}, err
	}
	u.Type = users.Type(typ)
	return u, nil
}

var _ users.Repository = (*UsersRepo)(nil)
