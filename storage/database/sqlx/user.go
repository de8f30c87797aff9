package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/elimusoft/elimu/core"
	"github.com/elimusoft/elimu/core/user"
)

const userColumns = `id, first_name, last_name, email, password_hash, is_active, is_email_verified, roles, country, timezone, birthday, created_at, updated_at, last_login`

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

// dbUser is the row shape of the "user" table.
type dbUser struct {
	ID              string         `db:"id"`
	FirstName       null.String    `db:"first_name"`
	LastName        null.String    `db:"last_name"`
	Email           string         `db:"email"`
	PasswordHash    null.Bytes     `db:"password_hash"`
	IsActive        null.Bool      `db:"is_active"`
	IsEmailVerified bool           `db:"is_email_verified"`
	Roles           pq.StringArray `db:"roles"`
	Country         null.String    `db:"country"`
	Timezone        null.String    `db:"timezone"`
	Birthday        null.Time      `db:"birthday"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
	LastLogin       null.Time      `db:"last_login"`
}

func (repo userRepository) row(usr user.User) dbUser {
	return dbUser{
		ID:              usr.ID,
		FirstName:       null.NewString(usr.FirstName, usr.FirstName != ""),
		LastName:        null.NewString(usr.LastName, usr.LastName != ""),
		Email:           usr.Email,
		PasswordHash:    null.BytesFrom(usr.PasswordHash),
		IsActive:        null.BoolFromPtr(usr.IsActive),
		IsEmailVerified: usr.IsEmailVerified,
		Roles:           pq.StringArray(usr.Roles),
		Country:         null.NewString(usr.Country, usr.Country != ""),
		Timezone:        null.NewString(usr.Timezone, usr.Timezone != ""),
		Birthday:        null.TimeFromPtr(usr.Birthday),
		CreatedAt:       usr.CreatedAt.UTC(),
		UpdatedAt:       usr.UpdatedAt.UTC(),
		LastLogin:       null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) unrow(row dbUser) user.User {
	return user.User{
		ID:              row.ID,
		FirstName:       row.FirstName.String,
		LastName:        row.LastName.String,
		Email:           row.Email,
		IsActive:        row.IsActive.Ptr(),
		IsEmailVerified: row.IsEmailVerified,
		Roles:           []string(row.Roles),
		PasswordHash:    row.PasswordHash.Bytes,
		Country:         row.Country.String,
		Timezone:        row.Timezone.String,
		Birthday:        row.Birthday.Ptr(),
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
		LastLogin:       row.LastLogin.Time,
	}
}

func (repo userRepository) unrowSlice(rows []dbUser) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.unrow(row))
	}
	return users
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	query := `SELECT EXISTS(SELECT 1 FROM "user" WHERE email = $1`
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		query += ` AND NOT (id = ANY($2))`
		args = append(args, pq.Array(ids))
	}
	query += `)`

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	row := repo.row(usr)

	query := `INSERT INTO "user" (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := repo.db.ExecContext(ctx, query,
		row.ID, row.FirstName, row.LastName, row.Email, row.PasswordHash, row.IsActive, row.IsEmailVerified,
		row.Roles, row.Country, row.Timezone, row.Birthday, row.CreatedAt, row.UpdatedAt, row.LastLogin,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var row dbUser

	if filter.ID != "" {
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		query := `SELECT ` + userColumns + ` FROM "user" WHERE id = $1`
		if err := repo.db.GetContext(ctx, &row, query, filter.ID); err != nil {
			return user.User{}, repo.trapNoRowsErr(err, "finding user by ID")
		}
		return repo.unrow(row), nil
	}

	query := `SELECT ` + userColumns + ` FROM "user" WHERE email = $1`
	if err := repo.db.GetContext(ctx, &row, query, filter.Email); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by email")
	}
	return repo.unrow(row), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var conds []string
	var args []interface{}

	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		// users with FirstName, LastName or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			conds = append(conds, fmt.Sprintf(
				"(first_name ILIKE %[1]s OR last_name ILIKE %[1]s OR email ILIKE %[1]s)", arg(val)))
		}
		// users holding any of the provided role assignments
		if len(filter.Roles) > 0 {
			conds = append(conds, fmt.Sprintf("roles && %s", arg(pq.Array(filter.Roles))))
		}
		if filter.IsActive != nil {
			conds = append(conds, fmt.Sprintf("is_active = %s", arg(*filter.IsActive)))
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, fmt.Sprintf("created_at >= %s", arg(filter.CreatedFrom.UTC())))
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, fmt.Sprintf("created_at <= %s", arg(filter.CreatedTo.UTC())))
		}
	}

	query := `SELECT ` + userColumns + ` FROM "user"`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		query += " ORDER BY " + strings.Join(orderList, ", ")
	}

	var rows []dbUser
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return repo.unrowSlice(rows), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	// only save set fields
	orig, err := repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
	if err != nil {
		return user.User{}, err
	}
	if usr.FirstName != "" {
		orig.FirstName = usr.FirstName
	}
	if usr.LastName != "" {
		orig.LastName = usr.LastName
	}
	if usr.Roles != nil {
		orig.Roles = usr.Roles
	}
	if usr.PasswordHash != nil {
		orig.PasswordHash = usr.PasswordHash
	}
	if usr.IsActive != nil {
		orig.IsActive = usr.IsActive
	}
	if usr.IsEmailVerified {
		orig.IsEmailVerified = true
	}
	if usr.Country != "" {
		orig.Country = usr.Country
	}
	if usr.Timezone != "" {
		orig.Timezone = usr.Timezone
	}
	if usr.Birthday != nil {
		orig.Birthday = usr.Birthday
	}
	orig.UpdatedAt = usr.UpdatedAt

	row := repo.row(orig)
	query := `UPDATE "user" SET
		first_name = $2, last_name = $3, email = $4, password_hash = $5, is_active = $6,
		is_email_verified = $7, roles = $8, country = $9, timezone = $10, birthday = $11, updated_at = $12
		WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		row.ID, row.FirstName, row.LastName, row.Email, row.PasswordHash, row.IsActive, row.IsEmailVerified,
		row.Roles, row.Country, row.Timezone, row.Birthday, row.UpdatedAt,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return orig, nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr)
	}
	return repo.UpdateUser(ctx, usr)
}

func (repo userRepository) SetLastLogin(ctx context.Context, id string, t time.Time) error {
	query := `UPDATE "user" SET last_login = $2 WHERE id = $1`
	if _, err := repo.db.ExecContext(ctx, query, id, t.UTC()); err != nil {
		return errors.Wrap(err, "setting lastLogin")
	}
	return nil
}
