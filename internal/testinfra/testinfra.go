package testinfra

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var Pool *pgxpool.Pool

func init() {
	Pool = SetupDB()
}

func SetupDB() *pgxpool.Pool {

	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:17.2-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections"),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	if err != nil {
		log.Panicf("start postgres: %v", err)
	}

	pgHostPort, err := pgC.Endpoint(ctx, "")
	if err != nil {
		log.Panicf("postgres endpoint: %v", err)
	}
	pgDSN := fmt.Sprintf("postgres://postgres:password@%s/testdb?sslmode=disable", pgHostPort)

	pool, err := pgxpool.New(ctx, pgDSN)
	if err != nil {
		log.Panicf("pgxpool connect: %v", err)
	}

	ok := false
	for i := 0; i < 20; i++ {
		slog.Info("ping db", "try", i)
		ctxPing, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		err = pool.Ping(ctxPing)
		cancel()
		if err == nil {
			ok = true
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !ok {
		log.Panic("db did not respond after 20 attempts")
	}

	_, err = pool.Exec(ctx, `
		CREATE SCHEMA IF NOT EXISTS formlock;
		CREATE TABLE IF NOT EXISTS formlock.forms (
			id BIGSERIAL PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			description TEXT,
			status VARCHAR(40) NOT NULL,
			theme VARCHAR(80),
			webhook_url TEXT,
			webhook_include_pdf BOOLEAN NOT NULL DEFAULT TRUE,
			created_by UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS formlock.submissions (
			id BIGSERIAL PRIMARY KEY,
			token VARCHAR(32) UNIQUE NOT NULL,
			form_id BIGINT NOT NULL REFERENCES formlock.forms(id),
			prefill_data JSONB,
			additional_data JSONB,
			created_by_user_id UUID,
			expires_at TIMESTAMPTZ NOT NULL,
			webhook_url TEXT,
			webhook_include_pdf BOOLEAN,
			status VARCHAR(40) NOT NULL,
			submission_data JSONB,
			created_at TIMESTAMPTZ NOT NULL,
			started_at TIMESTAMPTZ,
			submitted_at TIMESTAMPTZ,
			locked_at TIMESTAMPTZ
		);
		CREATE TABLE IF NOT EXISTS formlock.form_entrances (
			id BIGSERIAL PRIMARY KEY,
			session_token VARCHAR(32),
			form_id BIGINT NOT NULL REFERENCES formlock.forms(id),
			ip_address VARCHAR(45),
			user_agent TEXT,
			referrer TEXT,
			is_form_locked BOOLEAN NOT NULL DEFAULT FALSE,
			timestamp TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS formlock.webhook_deliveries (
			id BIGSERIAL PRIMARY KEY,
			submission_id BIGINT NOT NULL REFERENCES formlock.submissions(id),
			webhook_url TEXT NOT NULL,
			status VARCHAR(40) NOT NULL,
			http_status_code INT,
			request_payload JSONB,
			request_headers JSONB,
			response_body TEXT,
			response_headers JSONB,
			error_message TEXT,
			retry_count INT NOT NULL DEFAULT 0,
			delivered_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		log.Panicf("create tables: %v", err)
	}

	return pool
}
