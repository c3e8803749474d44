package syncer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/repairdesk/internal/common"
	"github.com/dmitrijs2005/repairdesk/internal/dbx"
	"github.com/dmitrijs2005/repairdesk/internal/logging"
	"github.com/dmitrijs2005/repairdesk/internal/netx"
	"github.com/dmitrijs2005/repairdesk/internal/remote"
)

type PullReport struct {
	Offline bool
	Rows    map[string]int
}

type Puller struct {
	local  *sql.DB
	remote remote.Store
	online netx.Checker
	log    logging.Logger
}

func NewPuller(local *sql.DB, store remote.Store, online netx.Checker, log logging.Logger) *Puller {
	if log == nil {
		log = logging.Nop()
	}
	return &Puller{local: local, remote: store, online: online, log: log}
}

type fetched struct {
	table Table
	rows  *remote.Rows
}

// Pull refreshes the local copy of orgID's data. Remote rows overwrite local
// rows with the same id, including rows with unpushed local edits. Offline
// devices get an empty report and no error.
func (p *Puller) Pull(ctx context.Context, orgID string) (PullReport, error) {
	if orgID == "" {
		return PullReport{}, common.ErrOrganizationNotConfigured
	}
	if !p.online.Online(ctx) {
		p.log.Debug(ctx, "pull skipped: offline")
		return PullReport{Offline: true}, nil
	}

	data, err := p.fetch(ctx, orgID)
	if err != nil {
		return PullReport{}, err
	}

	var rep PullReport
	err = dbx.WithTx(ctx, p.local, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rep, err = p.apply(ctx, tx, data)
		return err
	})
	if err != nil {
		return PullReport{}, err
	}
	p.log.Info(ctx, "pull complete", "rows", rep.Rows)
	return rep, nil
}

// PullInto fetches orgID's rows and writes them through tx, so the caller
// can commit them together with its own writes. Connectivity is the
// caller's concern.
func (p *Puller) PullInto(ctx context.Context, tx dbx.DBTX, orgID string) (PullReport, error) {
	if orgID == "" {
		return PullReport{}, common.ErrOrganizationNotConfigured
	}
	data, err := p.fetch(ctx, orgID)
	if err != nil {
		return PullReport{}, err
	}
	return p.apply(ctx, tx, data)
}

func (p *Puller) fetch(ctx context.Context, orgID string) ([]fetched, error) {
	out := make([]fetched, 0, len(PullOrder))
	for _, t := range PullOrder {
		st := remote.Statement{
			SQL:  fmt.Sprintf("SELECT * FROM %s WHERE organization_id = ?", t.Name),
			Args: []any{orgID},
		}
		if t.Name == Organizations.Name {
			st.SQL = fmt.Sprintf("SELECT * FROM %s WHERE id = ?", t.Name)
		}
		rows, err := p.remote.Query(ctx, st)
		if err != nil {
			return nil, fmt.Errorf("pull %s: %w", t.Name, err)
		}
		out = append(out, fetched{table: t, rows: rows})
	}
	return out, nil
}

func (p *Puller) apply(ctx context.Context, tx dbx.DBTX, data []fetched) (PullReport, error) {
	rep := PullReport{Rows: make(map[string]int, len(data))}
	for _, f := range data {
		for i := 0; i < f.rows.Len(); i++ {
			if err := upsertLocal(ctx, tx, f.table, f.rows.Map(i)); err != nil {
				return PullReport{}, fmt.Errorf("pull %s: %w: %w", f.table.Name, common.ErrLocalWrite, err)
			}
		}
		rep.Rows[f.table.Name] = f.rows.Len()
	}
	return rep, nil
}

// upsertLocal writes one remote row by id with is_synced = 1. Only the
// table's sync columns are taken from the row; extra remote columns are
// ignored and missing ones keep their local value.
func upsertLocal(ctx context.Context, tx dbx.DBTX, t Table, row map[string]any) error {
	id, ok := row["id"]
	if !ok || id == nil {
		return fmt.Errorf("remote row without id")
	}

	cols := make([]string, 0, len(t.Push)+1)
	args := make([]any, 0, len(t.Push))
	set := make([]string, 0, len(t.Push))
	for _, c := range t.Push {
		v, ok := row[c]
		if !ok {
			continue
		}
		cols = append(cols, c)
		args = append(args, v)
		if c != "id" {
			set = append(set, c+" = excluded."+c)
		}
	}
	cols = append(cols, "is_synced")
	set = append(set, "is_synced = 1")

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s, 1) ON CONFLICT(id) DO UPDATE SET %s",
		t.Name, strings.Join(cols, ", "), dbx.Placeholders(len(args)), strings.Join(set, ", "))
	_, err := tx.ExecContext(ctx, q, args...)
	return err
}
