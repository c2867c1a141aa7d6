// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/tosho/internal/platform/database/schema"
	"github.com/taibuivan/tosho/internal/platform/dberr"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func accountColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s",
		schema.RefAccount.ID, schema.RefAccount.Username, schema.RefAccount.Email,
		schema.RefAccount.PasswordHash, schema.RefAccount.Role, schema.RefAccount.CreatedAt)
}

func (repository *PostgresRepository) scanUser(row interface{ Scan(...any) error }) (*User, error) {
	user := &User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (repository *PostgresRepository) Create(context context.Context, user *User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5)
	`,
		schema.RefAccount.Table,
		schema.RefAccount.ID, schema.RefAccount.Username, schema.RefAccount.Email,
		schema.RefAccount.PasswordHash, schema.RefAccount.Role,
	)

	_, err := repository.pool.Exec(context, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Role)
	if err != nil {
		return dberr.Wrap(err, "create_account")
	}
	return nil
}

func (repository *PostgresRepository) FindByID(context context.Context, id string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		accountColumns(), schema.RefAccount.Table, schema.RefAccount.ID)

	user, err := repository.scanUser(repository.pool.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "find_account_by_id")
	}
	return user, nil
}

func (repository *PostgresRepository) FindByUsername(context context.Context, username string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		accountColumns(), schema.RefAccount.Table, schema.RefAccount.Username)

	user, err := repository.scanUser(repository.pool.QueryRow(context, query, username))
	if err != nil {
		return nil, dberr.Wrap(err, "find_account_by_username")
	}
	return user, nil
}

func (repository *PostgresRepository) FindByEmail(context context.Context, email string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		accountColumns(), schema.RefAccount.Table, schema.RefAccount.Email)

	user, err := repository.scanUser(repository.pool.QueryRow(context, query, email))
	if err != nil {
		return nil, dberr.Wrap(err, "find_account_by_email")
	}
	return user, nil
}
