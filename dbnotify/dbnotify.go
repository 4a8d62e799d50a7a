/*
Package dbnotify provides a backchannel from the database to the caches in
front of it.  Each faabd keeps its own preference cache; when another
instance writes a row, Postgres tells everyone over LISTEN/NOTIFY and the
stale entry is dropped.
*/
package dbnotify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/ts4z/faablab/varz"
)

const (
	sleepOnErrorTime = 5 * time.Second
)

var (
	notificationsReceived = varz.NewInt("dbNotificationsReceived")
	notificationsDropped  = varz.NewInt("dbNotificationsDropped")
)

// NotificationEvent is the payload the schema's triggers send.
type NotificationEvent struct {
	Table   string    `json:"table"`
	Op      string    `json:"op"`
	Visitor uuid.UUID `json:"visitor"`
	Version int64     `json:"version"`
}

// Consumer handles the events for one table.
type Consumer interface {
	TableName() string
	Consume(ctx context.Context, event *NotificationEvent)
}

// Invalidator is a cache that can forget one visitor.
type Invalidator interface {
	InvalidateCache(visitor uuid.UUID)
}

// CacheInvalidator is a Consumer that drops changed rows from a cache.  The
// next read goes to the database.
type CacheInvalidator struct {
	tableName string
	cache     Invalidator
}

var _ Consumer = &CacheInvalidator{}

func NewCacheInvalidator(tableName string, cache Invalidator) *CacheInvalidator {
	return &CacheInvalidator{tableName: tableName, cache: cache}
}

func (ci *CacheInvalidator) TableName() string {
	return ci.tableName
}

func (ci *CacheInvalidator) Consume(_ context.Context, event *NotificationEvent) {
	ci.cache.InvalidateCache(event.Visitor)
}

type DBNotifyListener struct {
	db                  *sql.DB
	clock               clockwork.Clock
	tableNameToConsumer map[string]Consumer
}

func NewDBNotifyListener(db *sql.DB, clock clockwork.Clock, consumers ...Consumer) (*DBNotifyListener, error) {
	m := make(map[string]Consumer)
	for _, c := range consumers {
		tableName := c.TableName()
		if _, exists := m[tableName]; exists {
			return nil, fmt.Errorf("duplicate consumer for table %s", tableName)
		}
		m[tableName] = c
	}

	return &DBNotifyListener{db: db, clock: clock, tableNameToConsumer: m}, nil
}

// Channel is where a table's trigger sends its notifications.
func Channel(table string) string {
	return table + "_changes"
}

// Run listens until ctx is done, reconnecting after errors.
func (cl *DBNotifyListener) Run(ctx context.Context) error {
	for {
		err := cl.Listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		log.WithError(err).Warn("lost db notifications, reconnecting")
		select {
		case <-ctx.Done():
			return nil
		case <-cl.clock.After(sleepOnErrorTime):
		}
	}
}

// Listen holds one connection and dispatches notifications until ctx is
// done or the connection fails.
func (cl *DBNotifyListener) Listen(ctx context.Context) error {
	conn, err := cl.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	var pgxConn *stdlib.Conn
	err = conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("driver connection is %T, not pgx", driverConn)
		}
		pgxConn = c
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to get pgx connection: %w", err)
	}

	for table := range cl.tableNameToConsumer {
		channel := Channel(table)
		if _, err := pgxConn.Conn().Exec(ctx, "LISTEN "+channel); err != nil {
			return fmt.Errorf("failed to listen on channel %s: %w", channel, err)
		}
		log.WithField("channel", channel).Info("listening for db notifications")
	}

	for {
		var notification *pgconn.Notification
		if nf, err := pgxConn.Conn().WaitForNotification(ctx); err == nil {
			notification = nf
		} else {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("error waiting for notification: %w", err)
		}
		notificationsReceived.Add(1)
		cl.Dispatch(ctx, []byte(notification.Payload))
	}
}

// Dispatch decodes one payload and hands it to the table's consumer.
func (cl *DBNotifyListener) Dispatch(ctx context.Context, payload []byte) {
	event := &NotificationEvent{}
	if err := json.Unmarshal(payload, event); err != nil {
		notificationsDropped.Add(1)
		log.WithError(err).WithField("payload", string(payload)).Warn("can't unmarshal notification payload")
		return
	}

	consumer, ok := cl.tableNameToConsumer[event.Table]
	if !ok {
		notificationsDropped.Add(1)
		log.WithField("table", event.Table).Info("no consumer for table")
		return
	}
	log.WithFields(log.Fields{"table": event.Table, "op": event.Op, "visitor": event.Visitor, "version": event.Version}).
		Debug("db notification")
	consumer.Consume(ctx, event)
}
