package db

import (
	"context"
	"database/sql"
)

const createEntry = `
insert into entry (at, kind, subscriber, tracker, filter, clinic, physician, institution, slot_start, detail)
values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateEntryParams struct {
	At          int64
	Kind        string
	Subscriber  string
	Tracker     string
	Filter      string
	Clinic      string
	Physician   string
	Institution string
	SlotStart   sql.NullInt64
	Detail      string
}

func (q *Queries) CreateEntry(ctx context.Context, arg CreateEntryParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createEntry,
		arg.At,
		arg.Kind,
		arg.Subscriber,
		arg.Tracker,
		arg.Filter,
		arg.Clinic,
		arg.Physician,
		arg.Institution,
		arg.SlotStart,
		arg.Detail,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const listEntries = `
select id, at, kind, subscriber, tracker, filter, clinic, physician, institution, slot_start, detail
from entry
order by at desc, id desc
limit ?
`

func (q *Queries) ListEntries(ctx context.Context, limit int64) ([]Entry, error) {
	rows, err := q.db.QueryContext(ctx, listEntries, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Entry
	for rows.Next() {
		var i Entry
		if err := rows.Scan(
			&i.ID,
			&i.At,
			&i.Kind,
			&i.Subscriber,
			&i.Tracker,
			&i.Filter,
			&i.Clinic,
			&i.Physician,
			&i.Institution,
			&i.SlotStart,
			&i.Detail,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteEntriesBefore = `
delete from entry where at < ?
`

func (q *Queries) DeleteEntriesBefore(ctx context.Context, before int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteEntriesBefore, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
