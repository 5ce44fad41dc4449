package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joshua0006/testraveremedy/internal/domain"
	_ "github.com/lib/pq"
)

var ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// Record is one checkout attempt: the durable form of the
// IDLE -> SUBMITTING -> {REDIRECT_PENDING, FAILED} state machine.
type Record struct {
	ID               string
	SessionID        string
	IdempotencyKey   string
	Status           domain.CheckoutStatus
	CartSnapshot     []byte
	TotalAmount      int64
	GatewaySessionID *string
	RedirectURL      *string
	FailureReason    *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// OutboxEvent is a pending order event, published to Kafka by the poller.
type OutboxEvent struct {
	ID          int
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type RepoInterface interface {
	GetByIdempotencyKey(ctx context.Context, key string) (*Record, error)
	Create(ctx context.Context, rec *Record) error
	MarkRedirectPending(ctx context.Context, id, gatewaySessionID, redirectURL string, eventPayload []byte) error
	MarkFailed(ctx context.Context, id, reason string) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int) error
	RunMigrations(cred *Credentials) error
	Close() error
}

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) GetByIdempotencyKey(ctx context.Context, key string) (*Record, error) {
	query := `
		SELECT id, session_id, idempotency_key, status, cart_snapshot, total_amount,
		       gateway_session_id, redirect_url, failure_reason, created_at, updated_at
		FROM checkout_sessions
		WHERE idempotency_key = $1
	`

	rec := &Record{}
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&rec.ID,
		&rec.SessionID,
		&rec.IdempotencyKey,
		&rec.Status,
		&rec.CartSnapshot,
		&rec.TotalAmount,
		&rec.GatewaySessionID,
		&rec.RedirectURL,
		&rec.FailureReason,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIdempotencyKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout by idempotency key: %w", err)
	}

	return rec, nil
}

func (r *Repository) Create(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO checkout_sessions (id, session_id, idempotency_key, status, cart_snapshot, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.SessionID,
		rec.IdempotencyKey,
		rec.Status,
		rec.CartSnapshot,
		rec.TotalAmount,
	)
	if err != nil {
		return fmt.Errorf("failed to create checkout session: %w", err)
	}

	return nil
}

// MarkRedirectPending finalizes a successful submission and enqueues the
// order event in the same transaction, so a published event always has a
// matching completed checkout row.
func (r *Repository) MarkRedirectPending(ctx context.Context, id, gatewaySessionID, redirectURL string, eventPayload []byte) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	update := `
		UPDATE checkout_sessions
		SET status = $2, gateway_session_id = $3, redirect_url = $4, updated_at = NOW()
		WHERE id = $1 AND status = $5
	`
	result, err := tx.ExecContext(ctx, update,
		id,
		domain.CheckoutStatusRedirectPending,
		gatewaySessionID,
		redirectURL,
		domain.CheckoutStatusSubmitting,
	)
	if err != nil {
		return fmt.Errorf("failed to update checkout session: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("checkout session %s not in %s state", id, domain.CheckoutStatusSubmitting)
	}

	insert := `
		INSERT INTO outbox_events (aggregate_id, event_type, payload)
		VALUES ($1, $2, $3)
	`
	if _, err := tx.ExecContext(ctx, insert, id, EventTypeCheckoutSessionCreated, eventPayload); err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	return tx.Commit()
}

func (r *Repository) MarkFailed(ctx context.Context, id, reason string) error {
	query := `
		UPDATE checkout_sessions
		SET status = $2, failure_reason = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
	`

	_, err := r.db.ExecContext(ctx, query,
		id,
		domain.CheckoutStatusFailed,
		reason,
		domain.CheckoutStatusSubmitting,
	)
	if err != nil {
		return fmt.Errorf("failed to mark checkout failed: %w", err)
	}

	return nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox_events
		WHERE NOT processed
		ORDER BY id
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		ev := &OutboxEvent{}
		if err := rows.Scan(&ev.ID, &ev.AggregateID, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int) error {
	query := `UPDATE outbox_events SET processed = TRUE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark event as processed: %w", err)
	}
	return nil
}
