package remote

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/lib/pq"
)

const (
	postgresWatchChannel = "chatsync_watch"
	postgresPingInterval = 90 * time.Second
)

// PostgresStore upserts tree rows and announces the path with NOTIFY.
// Watchers re-read the row because NOTIFY payloads are limited to 8000 bytes.
type PostgresStore struct {
	db      *sql.DB
	connStr string
}

func NewPostgresStore(db *sql.DB, connStr string) *PostgresStore {
	return &PostgresStore{db: db, connStr: connStr}
}

func (s *PostgresStore) Set(ctx context.Context, path string, value []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chatsync_collections (path, value, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (path) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, path, string(value)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, postgresWatchChannel, path); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) Get(ctx context.Context, path string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value::text FROM chatsync_collections WHERE path = $1`, path).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (s *PostgresStore) Watch(ctx context.Context, path string, onValue func([]byte)) error {
	listener := pq.NewListener(s.connStr, minBackoff, maxBackoff, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Printf("PostgreSQL listener error on %s: %v", path, err)
		}
	})
	if err := listener.Listen(postgresWatchChannel); err != nil {
		listener.Close()
		return err
	}
	log.Printf("✅ PostgreSQL listener started (path: %s)", path)

	go func() {
		defer listener.Close()
		reread := func() { s.deliver(ctx, path, onValue) }
		reread()
		followNotifications(ctx, path, listener.Notify, postgresPingInterval, func() { go listener.Ping() }, reread)
	}()
	return nil
}

// notifyMatches reports whether n concerns path. A nil notification follows a
// reconnect, when notifications may have been missed, and always matches.
func notifyMatches(n *pq.Notification, path string) bool {
	return n == nil || n.Extra == path
}

// followNotifications calls reread for every notification about path until ctx
// is done or notify closes. ping runs after idle passes without notifications.
func followNotifications(ctx context.Context, path string, notify <-chan *pq.Notification, idle time.Duration, ping func(), reread func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notify:
			if !ok {
				return
			}
			if notifyMatches(n, path) {
				reread()
			}
		case <-time.After(idle):
			ping()
		}
	}
}

func (s *PostgresStore) deliver(ctx context.Context, path string, onValue func([]byte)) {
	readCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	v, err := s.Get(readCtx, path)
	if err != nil {
		log.Printf("PostgreSQL read after notify failed for %s: %v", path, err)
		return
	}
	onValue(v)
}

// Close is a no-op; the pool is owned by the database package.
func (s *PostgresStore) Close() error {
	return nil
}
