package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"jobly/api-service/internal/sqlbuilder"
)

// User is the JSON shape of a users row. The password hash never leaves
// the service.
type User struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"isAdmin"`
}

// UserDetail is a user with their job applications.
type UserDetail struct {
	User
	Applications []Application `json:"applications"`
}

// NewUser is the body of POST /users.
type NewUser struct {
	Username  string `json:"username" validate:"required,min=1,max=25"`
	Password  string `json:"password" validate:"required,min=5,max=72"`
	FirstName string `json:"firstName" validate:"required,min=1,max=30"`
	LastName  string `json:"lastName" validate:"required,min=1,max=30"`
	Email     string `json:"email" validate:"required,email,max=60"`
	IsAdmin   bool   `json:"isAdmin"`
}

// UserUpdate is the body of PATCH /users/{username}.
type UserUpdate struct {
	FirstName *string `json:"firstName" validate:"omitempty,min=1,max=30"`
	LastName  *string `json:"lastName" validate:"omitempty,min=1,max=30"`
	Password  *string `json:"password" validate:"omitempty,min=5,max=72"`
	Email     *string `json:"email" validate:"omitempty,email,max=60"`
}

// userColumns is the allow-list of updatable user fields.
var userColumns = sqlbuilder.Columns{
	"firstName": "first_name",
	"lastName":  "last_name",
	"password":  "password",
	"email":     "email",
}

// Patch lists the supplied fields in declaration order. The password is
// still in clear text; UpdateUser hashes it.
func (u UserUpdate) Patch() sqlbuilder.Patch {
	var p sqlbuilder.Patch
	if u.FirstName != nil {
		p.Set("firstName", *u.FirstName)
	}
	if u.LastName != nil {
		p.Set("lastName", *u.LastName)
	}
	if u.Password != nil {
		p.Set("password", *u.Password)
	}
	if u.Email != nil {
		p.Set("email", *u.Email)
	}
	return p
}

const userCols = `username, first_name, last_name, email, is_admin`

func scanUser(row pgx.Row, u *User) error {
	return row.Scan(&u.Username, &u.FirstName, &u.LastName, &u.Email, &u.IsAdmin)
}

// CreateUser hashes the password and inserts the user.
// A duplicate username is a client error.
func (s *Service) CreateUser(ctx context.Context, in NewUser) (*User, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("createUser hash: %w", err)
	}

	var u User
	err = scanUser(s.db.QueryRow(ctx,
		`INSERT INTO users (username, password, first_name, last_name, email, is_admin)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+userCols,
		in.Username, hash, in.FirstName, in.LastName, in.Email, in.IsAdmin,
	), &u)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return nil, badRequest("Duplicate username: %s", in.Username)
		}
		return nil, fmt.Errorf("createUser: %w", err)
	}

	s.publish(ctx, "EVENT_USER_CREATED", map[string]any{"username": u.Username})
	return &u, nil
}

// FindUsers returns all users ordered by username.
func (s *Service) FindUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.Query(ctx, `SELECT `+userCols+` FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("findUsers query: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		var u User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("findUsers scan: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetUser returns a user with their applications ordered by job id.
func (s *Service) GetUser(ctx context.Context, username string) (*UserDetail, error) {
	var u UserDetail
	err := scanUser(s.db.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE username = $1`, username), &u.User)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("No user: %s", username)
	}
	if err != nil {
		return nil, fmt.Errorf("getUser: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+applicationCols+` FROM applications WHERE username = $1 ORDER BY job_id`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("getUser applications query: %w", err)
	}
	defer rows.Close()

	u.Applications = make([]Application, 0)
	for rows.Next() {
		var a Application
		if err := scanApplication(rows, &a); err != nil {
			return nil, fmt.Errorf("getUser applications scan: %w", err)
		}
		u.Applications = append(u.Applications, a)
	}
	return &u, rows.Err()
}

// UpdateUser applies a partial update, hashing a new password first.
func (s *Service) UpdateUser(ctx context.Context, username string, patch sqlbuilder.Patch) (*User, error) {
	if pw, ok := patch.Get("password"); ok {
		hash, err := s.hasher.Hash(fmt.Sprint(pw))
		if err != nil {
			return nil, fmt.Errorf("updateUser hash: %w", err)
		}
		patch = patch.Clone()
		patch.Set("password", hash)
	}

	upd, err := sqlbuilder.PartialUpdate(patch, userColumns)
	if err != nil {
		return nil, patchError(err)
	}

	var u User
	err = scanUser(s.db.QueryRow(ctx,
		`UPDATE users
		 SET `+upd.SetCols+`
		 WHERE username = `+upd.NextPlaceholder()+`
		 RETURNING `+userCols,
		upd.Args(username)...,
	), &u)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("No user: %s", username)
	}
	if err != nil {
		return nil, fmt.Errorf("updateUser: %w", err)
	}

	s.publish(ctx, "EVENT_USER_UPDATED", map[string]any{"username": u.Username, "fields": patch.Fields()})
	return &u, nil
}

// RemoveUser deletes a user and, by cascade, their applications.
func (s *Service) RemoveUser(ctx context.Context, username string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("removeUser: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("No user: %s", username)
	}

	s.publish(ctx, "EVENT_USER_DELETED", map[string]any{"username": username})
	return nil
}
