package syncer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/repairdesk/internal/common"
	"github.com/dmitrijs2005/repairdesk/internal/dbx"
	"github.com/dmitrijs2005/repairdesk/internal/logging"
	"github.com/dmitrijs2005/repairdesk/internal/netx"
	"github.com/dmitrijs2005/repairdesk/internal/remote"
)

const (
	DefaultBatchSize     = 50
	DefaultRemoteTimeout = 15 * time.Second
)

type PushConfig struct {
	BatchSize     int
	RemoteTimeout time.Duration
}

// TableReport counts what one table contributed to a push cycle.
type TableReport struct {
	Table  string
	Pushed int
	// Marked is how many pushed rows were flagged synced locally. Rows edited
	// while their batch was in flight stay dirty and are pushed again.
	Marked int
}

type Report struct {
	Offline bool
	Tables  []TableReport
}

func (r Report) Pushed() int {
	n := 0
	for _, t := range r.Tables {
		n += t.Pushed
	}
	return n
}

type Pusher struct {
	local  *sql.DB
	remote remote.Store
	online netx.Checker
	log    logging.Logger
	cfg    PushConfig

	running atomic.Bool
}

func NewPusher(local *sql.DB, store remote.Store, online netx.Checker, log logging.Logger, cfg PushConfig) *Pusher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = DefaultRemoteTimeout
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Pusher{local: local, remote: store, online: online, log: log, cfg: cfg}
}

// Push runs one push cycle. An offline device gets an empty report and no
// error. A cycle that is already running makes the call fail with
// common.ErrPushInProgress. A failed remote batch ends the cycle, leaving that
// table and every later table for the next cycle.
func (p *Pusher) Push(ctx context.Context) (Report, error) {
	if !p.running.CompareAndSwap(false, true) {
		return Report{}, common.ErrPushInProgress
	}
	defer p.running.Store(false)

	if !p.online.Online(ctx) {
		p.log.Debug(ctx, "push skipped: offline")
		return Report{Offline: true}, nil
	}

	var rep Report
	var localErr error
	for _, t := range PushOrder {
		tr, err := p.pushTable(ctx, t)
		if tr.Pushed > 0 {
			rep.Tables = append(rep.Tables, tr)
		}
		switch {
		case errors.Is(err, common.ErrLocalWrite):
			p.log.Warn(ctx, "push: rows stay dirty", "table", t.Name, "error", err)
			localErr = err
		case err != nil:
			p.log.Error(ctx, "push aborted", "table", t.Name, "error", err)
			return rep, err
		}
	}

	if rep.Pushed() > 0 {
		p.log.Info(ctx, "push complete", "rows", rep.Pushed())
	}
	return rep, localErr
}

// pushTable drains the table's dirty rows batch by batch.
func (p *Pusher) pushTable(ctx context.Context, t Table) (TableReport, error) {
	tr := TableReport{Table: t.Name}
	for {
		rows, err := p.selectDirty(ctx, t)
		if err != nil {
			return tr, err
		}
		if len(rows) == 0 {
			return tr, nil
		}

		if err := p.send(ctx, t, rows); err != nil {
			return tr, err
		}
		tr.Pushed += len(rows)

		marked, err := p.markSynced(ctx, t, rows)
		tr.Marked += marked
		if err != nil {
			return tr, err
		}
		p.log.Debug(ctx, "push batch committed", "table", t.Name, "rows", len(rows), "marked", marked)

		// A short batch was the last one. A batch that could not be fully
		// marked would be selected again, so leave it to the next cycle.
		if len(rows) < p.cfg.BatchSize || marked < len(rows) {
			return tr, nil
		}
	}
}

func (p *Pusher) selectDirty(ctx context.Context, t Table) ([][]any, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE is_synced = 0 ORDER BY rowid LIMIT ?",
		strings.Join(t.Push, ", "), t.Name)
	rs, err := p.local.QueryContext(ctx, q, p.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("select dirty %s: %w", t.Name, err)
	}
	defer rs.Close()

	var out [][]any
	for rs.Next() {
		vals := make([]any, len(t.Push))
		ptrs := make([]any, len(vals))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan dirty %s: %w", t.Name, err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out = append(out, vals)
	}
	return out, rs.Err()
}

// send upserts one batch in a single remote transaction. The transaction is
// not cancelled with ctx once issued; it completes or hits the remote timeout.
func (p *Pusher) send(ctx context.Context, t Table, rows [][]any) error {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.RemoteTimeout)
	defer cancel()

	upsert := p.remote.Dialect().Upsert(t.Name, t.Push)
	stmts := make([]remote.Statement, 0, len(rows))
	for _, r := range rows {
		stmts = append(stmts, remote.Statement{SQL: upsert, Args: r})
	}
	if err := p.remote.Batch(rctx, stmts); err != nil {
		if errors.Is(err, common.ErrRemoteTransaction) {
			return fmt.Errorf("push %s: %w", t.Name, err)
		}
		return fmt.Errorf("push %s: %w: %w", t.Name, common.ErrRemoteTransaction, err)
	}
	return nil
}

// markSynced flags the pushed rows as synced in one local transaction. A row
// is only flagged if it still holds exactly the values that were pushed.
func (p *Pusher) markSynced(ctx context.Context, t Table, rows [][]any) (int, error) {
	conds := make([]string, 0, len(t.Push))
	for _, c := range t.Push[1:] {
		conds = append(conds, c+" IS ?")
	}
	q := fmt.Sprintf("UPDATE %s SET is_synced = 1 WHERE id = ? AND is_synced = 0", t.Name)
	if len(conds) > 0 {
		q += " AND " + strings.Join(conds, " AND ")
	}

	marked := 0
	err := dbx.WithTx(context.WithoutCancel(ctx), p.local, nil, func(ctx context.Context, tx dbx.DBTX) error {
		marked = 0
		for _, r := range rows {
			res, err := tx.ExecContext(ctx, q, r...)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			marked += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("mark %s synced: %w: %w", t.Name, common.ErrLocalWrite, err)
	}
	return marked, nil
}
