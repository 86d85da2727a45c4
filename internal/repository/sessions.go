package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sartoro/checkout-service/domain"
)

const sessionColumns = `id, cart_id, provider_id, provider_session_id, status,
	amount, currency_code, data, created_at, updated_at`

func (s *Store) CreateSession(ctx context.Context, session *domain.PaymentSession) error {
	dataJSON, err := json.Marshal(session.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	query := `INSERT INTO payment_sessions (id, cart_id, provider_id, provider_session_id,
	            status, amount, currency_code, data, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())`

	_, insertErr := s.db.ExecContext(ctx, query,
		session.ID,
		session.CartID,
		session.ProviderID,
		session.ProviderSessionID,
		session.Status,
		session.Amount,
		session.CurrencyCode,
		dataJSON)
	if insertErr != nil {
		return fmt.Errorf("insert payment session: %w", insertErr)
	}
	return nil
}

func (s *Store) GetSessionsByCartID(ctx context.Context, cartID string) ([]*domain.PaymentSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM payment_sessions
	          WHERE cart_id = $1 ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("query sessions by cart id: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.PaymentSession
	for rows.Next() {
		session, scanErr := scanSession(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return sessions, nil
}

func (s *Store) UpdateSessionStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error {
	query := `UPDATE payment_sessions SET status = $2, updated_at = NOW() WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query, sessionID, status)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// AuthorizeSessionByProviderRef flips the session to AUTHORIZED and writes the
// outbox event in the same transaction, so a crash between the two cannot lose
// the commit trigger.
func (s *Store) AuthorizeSessionByProviderRef(ctx context.Context, providerRef string) (*domain.PaymentSession, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin authorize tx: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE payment_sessions SET status = $2, updated_at = NOW()
	          WHERE provider_session_id = $1 AND status NOT IN ($3, $4, $5)
	          RETURNING ` + sessionColumns

	row := tx.QueryRowContext(ctx, query, providerRef,
		domain.SessionStatusAuthorized,
		domain.SessionStatusCaptured,
		domain.SessionStatusCanceled,
		domain.SessionStatusErrored)

	session, err := scanSession(row)
	if errors.Is(err, ErrSessionNotFound) {
		// Already terminal or unknown ref. Check whether it is an already
		// authorized session so duplicate webhook deliveries stay harmless.
		return s.getSessionByProviderRefTx(ctx, tx, providerRef)
	}
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]string{
		"cart_id":    session.CartID,
		"session_id": session.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal outbox payload: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload, created_at)
		 VALUES ($1, $2, $3, NOW())`,
		session.CartID, "payment.authorized", payload)
	if err != nil {
		return nil, fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit authorize tx: %w", err)
	}
	return session, nil
}

func (s *Store) FailSessionByProviderRef(ctx context.Context, providerRef string) error {
	query := `UPDATE payment_sessions SET status = $2, updated_at = NOW()
	          WHERE provider_session_id = $1 AND status NOT IN ($3, $4)`
	res, err := s.db.ExecContext(ctx, query, providerRef,
		domain.SessionStatusErrored,
		domain.SessionStatusCaptured,
		domain.SessionStatusCanceled)
	if err != nil {
		return fmt.Errorf("fail session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("fail session: %w", err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *Store) GetStaleSessions(ctx context.Context, cutoff time.Time, limit int) ([]*domain.PaymentSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM payment_sessions
	          WHERE status IN ($1, $2) AND updated_at < $3
	          ORDER BY updated_at ASC LIMIT $4`

	rows, err := s.db.QueryContext(ctx, query,
		domain.SessionStatusPending,
		domain.SessionStatusRequiresAction,
		cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query stale sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.PaymentSession
	for rows.Next() {
		session, scanErr := scanSession(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return sessions, nil
}

func (s *Store) getSessionByProviderRefTx(ctx context.Context, tx *sql.Tx, providerRef string) (*domain.PaymentSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM payment_sessions WHERE provider_session_id = $1`
	return scanSession(tx.QueryRowContext(ctx, query, providerRef))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.PaymentSession, error) {
	var session domain.PaymentSession
	var dataJSON []byte
	err := row.Scan(
		&session.ID,
		&session.CartID,
		&session.ProviderID,
		&session.ProviderSessionID,
		&session.Status,
		&session.Amount,
		&session.CurrencyCode,
		&dataJSON,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan payment session: %w", err)
	}

	if len(dataJSON) > 0 {
		if err := json.Unmarshal(dataJSON, &session.Data); err != nil {
			return nil, fmt.Errorf("unmarshal session data: %w", err)
		}
	}
	return &session, nil
}
