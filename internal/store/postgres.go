package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/temcen/linucb-fashion/internal/apperr"
	"github.com/temcen/linucb-fashion/pkg/models"
)

// Querier is the minimal pgx surface this package depends on, mirroring
// the teacher's DatabaseQuerier interface so tests can swap in
// pashagolub/pgxmock without a live Postgres instance.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgx.CommandTag, error)
}

// PostgresStore implements Store against a pgxpool.Pool. Required
// secondary keys per spec §6: products.product_id (unique),
// user_sessions.session_id (unique), interactions.session_id,
// session_history.(session_id, shown_at desc), plus
// (category_main, brand, primary_color, price) on products.
type PostgresStore struct {
	pool   *pgxpool.Pool
	q      Querier
	logger *logrus.Logger
}

// New connects to Postgres at uri (the MONGODB_URI config key, kept for
// naming continuity with spec §6) and verifies connectivity, matching
// the teacher's database.initPostgreSQL shape (parse, configure pool,
// ping).
func New(ctx context.Context, uri string, maxConns int32, logger *logrus.Logger) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document store config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create document store pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to ping document store: %w", err)
	}

	logger.Info("document store connection established")
	return &PostgresStore{pool: pool, q: pool, logger: logger}, nil
}

// fromQuerier wraps an arbitrary Querier (a live pool or a pgxmock pool)
// for tests that don't want to dial a real database.
func fromQuerier(q Querier, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{q: q, logger: logger}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
		s.logger.Info("document store connection closed")
	}
}

func (s *PostgresStore) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	row := s.q.QueryRow(ctx, `
		SELECT product_id, brand, category_main, primary_color, occasion, season, style,
		       price, display_name, image_url, feature_vector
		FROM products WHERE product_id = $1`, productID)

	p := &models.Product{}
	err := row.Scan(&p.ProductID, &p.Brand, &p.CategoryMain, &p.PrimaryColor, &p.Occasion,
		&p.Season, &p.Style, &p.Price, &p.DisplayName, &p.ImageURL, &p.FeatureVector)
	if err == pgx.ErrNoRows {
		return nil, apperr.New(apperr.KindProductNotFound, "product not found: "+productID)
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// Sample draws a uniform random sample of size <= limit matching q,
// combining caller filters, avoidance rules and the exclusion set into
// one predicate, per spec §4.4.
func (s *PostgresStore) Sample(ctx context.Context, q models.ProductQuery, limit int) ([]*models.Product, error) {
	sql := `
		SELECT product_id, brand, category_main, primary_color, occasion, season, style,
		       price, display_name, image_url, feature_vector
		FROM products
		WHERE ($1::text = '' OR category_main = $1)
		  AND ($2::float8 IS NULL OR price >= $2)
		  AND ($3::float8 IS NULL OR price <= $3)
		  AND ($4::text = '' OR category_main <> $4)
		  AND ($5::text = '' OR primary_color <> $5)
		  AND ($6::text = '' OR brand <> $6)
		  AND NOT (product_id = ANY($7::text[]))
		ORDER BY random()
		LIMIT $8`

	excluded := make([]string, 0, len(q.ExcludeIDs))
	for id := range q.ExcludeIDs {
		excluded = append(excluded, id)
	}

	rows, err := s.q.Query(ctx, sql,
		q.Category, q.MinPrice, q.MaxPrice,
		q.AvoidCategory, q.AvoidColor, q.AvoidBrand,
		excluded, limit)
	if err != nil {
		return nil, fmt.Errorf("sample products: %w", err)
	}
	defer rows.Close()

	var out []*models.Product
	for rows.Next() {
		p := &models.Product{}
		if err := rows.Scan(&p.ProductID, &p.Brand, &p.CategoryMain, &p.PrimaryColor, &p.Occasion,
			&p.Season, &p.Style, &p.Price, &p.DisplayName, &p.ImageURL, &p.FeatureVector); err != nil {
			return nil, fmt.Errorf("scan sampled product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Create(ctx context.Context, sess *models.Session) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO user_sessions (session_id, user_id, alpha, dimensions, total_interactions, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sess.SessionID, sess.UserID, sess.Alpha, sess.Dimensions, sess.TotalInteractions,
		sess.Status, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	row := s.q.QueryRow(ctx, `
		SELECT session_id, user_id, alpha, dimensions, total_interactions, status, created_at, updated_at
		FROM user_sessions WHERE session_id = $1`, sessionID)

	sess := &models.Session{}
	err := row.Scan(&sess.SessionID, &sess.UserID, &sess.Alpha, &sess.Dimensions,
		&sess.TotalInteractions, &sess.Status, &sess.CreatedAt, &sess.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, apperr.New(apperr.KindSessionNotFound, "session not found: "+sessionID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// Touch increments total_interactions and sets updated_at, the only
// mutation the Feedback Processor performs on a session record.
func (s *PostgresStore) Touch(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE user_sessions SET total_interactions = total_interactions + 1, updated_at = $2
		WHERE session_id = $1`, sessionID, at)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindSessionNotFound, "session not found: "+sessionID.String())
	}
	return nil
}

func (s *PostgresStore) RecordShown(ctx context.Context, sessionID uuid.UUID, productID string, shownAt time.Time, maxEntries int) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO session_history (session_id, product_id, shown_at, user_action)
		VALUES ($1, $2, $3, NULL)`, sessionID, productID, shownAt)
	if err != nil {
		return fmt.Errorf("record shown: %w", err)
	}

	_, err = s.q.Exec(ctx, `
		DELETE FROM session_history
		WHERE ctid IN (
		      SELECT ctid FROM session_history
		      WHERE session_id = $1
		      ORDER BY shown_at DESC
		      OFFSET $2
		  )`, sessionID, maxEntries)
	if err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetAction(ctx context.Context, sessionID uuid.UUID, productID, action string, at time.Time) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE session_history SET user_action = $3, action_timestamp = $4
		WHERE session_id = $1 AND product_id = $2 AND shown_at = (
		    SELECT MAX(shown_at) FROM session_history WHERE session_id = $1 AND product_id = $2
		)`, sessionID, productID, action, at)
	if err != nil {
		return fmt.Errorf("set action: %w", err)
	}
	if tag.RowsAffected() == 0 {
		s.logger.WithFields(logrus.Fields{
			"session_id": sessionID,
			"product_id": productID,
		}).Warn("set_action had no matching history entry")
	}
	return nil
}

func (s *PostgresStore) GetHistory(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.SessionHistoryEntry, error) {
	rows, err := s.q.Query(ctx, `
		SELECT session_id, product_id, shown_at, user_action, action_timestamp
		FROM session_history WHERE session_id = $1
		ORDER BY shown_at DESC LIMIT $2`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	defer rows.Close()

	var out []*models.SessionHistoryEntry
	for rows.Next() {
		e := &models.SessionHistoryEntry{}
		if err := rows.Scan(&e.SessionID, &e.ProductID, &e.ShownAt, &e.UserAction, &e.ActionTimestamp); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Append(ctx context.Context, i *models.Interaction) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO interactions (session_id, product_id, action, reward, feature_vector, score_before, score_after, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		i.SessionID, i.ProductID, i.Action, i.Reward, i.FeatureVector, i.ScoreBefore, i.ScoreAfter, i.Timestamp)
	if err != nil {
		return fmt.Errorf("append interaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, sessionID uuid.UUID) ([]*models.Interaction, error) {
	rows, err := s.q.Query(ctx, `
		SELECT session_id, product_id, action, reward, feature_vector, score_before, score_after, timestamp
		FROM interactions WHERE session_id = $1 ORDER BY timestamp ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	var out []*models.Interaction
	for rows.Next() {
		i := &models.Interaction{}
		if err := rows.Scan(&i.SessionID, &i.ProductID, &i.Action, &i.Reward, &i.FeatureVector,
			&i.ScoreBefore, &i.ScoreAfter, &i.Timestamp); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}
