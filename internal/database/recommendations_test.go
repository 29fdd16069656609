package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
)

// execRecorder is a database/sql connector that records ExecContext calls
type execRecorder struct {
	mu           sync.Mutex
	queries      []string
	args         [][]driver.NamedValue
	rowsAffected int64
}

func (r *execRecorder) Connect(context.Context) (driver.Conn, error) { return recorderConn{r}, nil }
func (r *execRecorder) Driver() driver.Driver { return recorderDriver{r} }

type recorderDriver struct{ r *execRecorder }

func (d recorderDriver) Open(string) (driver.Conn, error) { return recorderConn(d), nil }

type recorderConn struct{ r *execRecorder }

func (c recorderConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}
func (c recorderConn) Close() error { return nil }
func (c recorderConn) Begin() (driver.Tx, error) { return nil, errors.New("transactions not supported") }

func (c recorderConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	c.r.queries = append(c.r.queries, query)
	c.r.args = append(c.r.args, args)
	return driver.RowsAffected(c.r.rowsAffected), nil
}

func TestRecommendationRepository_AnnotateError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		rowsAffected int64
		wantErr      error
	}{
		{"annotates existing row", 1, nil},
		{"missing row", 0, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := &execRecorder{rowsAffected: tt.rowsAffected}
			db := &DB{DB: sql.OpenDB(rec)}
			t.Cleanup(func() { _ = db.Close() })

			id := uuid.New()
			err := NewRecommendationRepository(db).AnnotateError(context.Background(), id, "generation failed")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("AnnotateError() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("AnnotateError() error = %v", err)
			}

			rec.mu.Lock()
			defer rec.mu.Unlock()
			if len(rec.queries) != 1 {
				t.Fatalf("exec calls = %d, want 1", len(rec.queries))
			}
			if strings.Contains(rec.queries[0], "is_cached") {
				t.Errorf("annotation must not touch the stored is_cached flag:\n%s", rec.queries[0])
			}
			if !strings.Contains(rec.queries[0], "error_message") {
				t.Errorf("annotation must set error_message:\n%s", rec.queries[0])
			}
			args := rec.args[0]
			if len(args) != 3 || args[0].Value != id.String() || args[1].Value != "generation failed" {
				t.Errorf("args = %+v, want id and message first", args)
			}
		})
	}
}
