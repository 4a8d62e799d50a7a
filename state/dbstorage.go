package state

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	log "github.com/sirupsen/logrus"

	"github.com/ts4z/faablab/dbutil"
	"github.com/ts4z/faablab/he"
	"github.com/ts4z/faablab/model"
)

//go:embed schema.sql
var schema string

// DBStorage keeps visitor preferences in Postgres, one JSON blob per visitor
// with an optimistic lock column.
type DBStorage struct {
	db *sql.DB
}

var _ PreferenceStorage = &DBStorage{}

func NewDBStorage(db *sql.DB) *DBStorage {
	return &DBStorage{db: db}
}

func (s *DBStorage) Close() {
	s.db.Close()
}

// splitStatements splits SQL on semicolons, leaving $$-quoted function
// bodies whole.
func splitStatements(sql string) []string {
	var out []string
	var sb strings.Builder
	quoted := false
	for i := 0; i < len(sql); i++ {
		switch {
		case strings.HasPrefix(sql[i:], "$$"):
			quoted = !quoted
			sb.WriteString("$$")
			i++
			continue
		case sql[i] == ';' && !quoted:
			if stmt := strings.TrimSpace(sb.String()); stmt != "" {
				out = append(out, stmt)
			}
			sb.Reset()
			continue
		}
		sb.WriteByte(sql[i])
	}
	if stmt := strings.TrimSpace(sb.String()); stmt != "" {
		out = append(out, stmt)
	}
	return out
}

// EnsureSchema creates the tables if they aren't there.
func (s *DBStorage) EnsureSchema(ctx context.Context) error {
	return dbutil.InTx(ctx, s.db, func(tx *dbutil.Tx) error {
		for _, stmt := range splitStatements(schema) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("schema: %w", err)
			}
		}
		return nil
	})
}

func (s *DBStorage) FetchPreferences(ctx context.Context, visitor uuid.UUID) (*model.Preferences, error) {
	var lock int64
	var bytes []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT optimistic_lock, model_data FROM preferences WHERE visitor_id=$1`,
		visitor.String()).Scan(&lock, &bytes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, he.New(http.StatusNotFound, fmt.Errorf("no preferences for visitor %v", visitor))
	}
	if err != nil {
		return nil, err
	}

	p := &model.Preferences{}
	if err := json.Unmarshal(bytes, p); err != nil {
		return nil, fmt.Errorf("preferences for %v: %w", visitor, err)
	}
	// This comes from the database row, not the JSON.
	p.OptimisticLock = lock
	return p, nil
}

// SavePreferences inserts when p.OptimisticLock is zero and updates
// otherwise.  Either way a concurrent writer makes it fail with 409.  On
// success p.OptimisticLock holds the new version.
func (s *DBStorage) SavePreferences(ctx context.Context, visitor uuid.UUID, p *model.Preferences) error {
	bytes, err := json.Marshal(p)
	if err != nil {
		return err
	}

	var res sql.Result
	if p.OptimisticLock == 0 {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO preferences (visitor_id, optimistic_lock, model_data) VALUES ($1, 1, $2)
			 ON CONFLICT (visitor_id) DO NOTHING`,
			visitor.String(), bytes)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE preferences SET optimistic_lock=$1+1, model_data=$2, updated_at=now()
			 WHERE visitor_id=$3 AND optimistic_lock=$1`,
			p.OptimisticLock, bytes, visitor.String())
	}
	if err != nil {
		log.WithError(err).WithField("visitor", visitor).Error("preferences write failed")
		return err
	}
	if ok, err := dbutil.ExpectOneRow(res); err != nil {
		return err
	} else if !ok {
		return he.HTTPCodedErrorf(http.StatusConflict, "optimistic lock failure for visitor %v", visitor)
	}

	p.OptimisticLock++
	log.WithFields(log.Fields{"visitor": visitor, "version": p.OptimisticLock}).Debug("preferences saved")
	return nil
}

func (s *DBStorage) DeletePreferences(ctx context.Context, visitor uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM preferences WHERE visitor_id=$1`, visitor.String())
	return err
}

// PurgeStalePreferences drops visitors not seen since before.
func (s *DBStorage) PurgeStalePreferences(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM preferences WHERE updated_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
