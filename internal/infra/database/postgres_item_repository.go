// internal/infra/database/postgres_item_repository.go
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"compliance_notifier/internal/domain/dueitem"

	"github.com/lib/pq" // For pq.Array and driver registration
)

// PostgresItemRepository persists due items in the 'due_items' table,
// with client audience contacts hydrated from 'org_contacts'.
type PostgresItemRepository struct {
	db *sql.DB
}

func NewPostgresItemRepository(db *sql.DB) *PostgresItemRepository {
	return &PostgresItemRepository{db: db}
}

const itemColumns = `id, organization_id, kind, title, location_name, due_date, status,
               vendor_name, vendor_email, vendor_phone, COALESCE(sent_markers, '{}'::jsonb)`

// FetchBatch returns one page of items matching the filter, ordered by
// (due_date, id) ascending so the most pressing items are processed
// first when a run hits its wall-clock budget. Pages advance by keyset
// cursor rather than offset: processing removes items from some filters
// (markers, status transitions), and an offset over a shrinking result
// set would skip whatever shifted into already-visited positions.
func (r *PostgresItemRepository) FetchBatch(ctx context.Context, f dueitem.Filter, after *dueitem.PageCursor, limit int) ([]*dueitem.Item, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Kind != "" {
		conds = append(conds, "kind = "+arg(string(f.Kind)))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		conds = append(conds, "status = ANY("+arg(pq.Array(statuses))+"::varchar[])")
	}
	if f.DueOnOrAfter != nil {
		conds = append(conds, "due_date >= "+arg(*f.DueOnOrAfter))
	}
	if f.DueOn != nil {
		conds = append(conds, "due_date = "+arg(*f.DueOn))
	}
	if f.DueOnOrBefore != nil {
		conds = append(conds, "due_date <= "+arg(*f.DueOnOrBefore))
	}
	if f.WithoutMarker != "" {
		conds = append(conds, "sent_markers->>"+arg(f.WithoutMarker)+" IS NULL")
	}
	if after != nil {
		conds = append(conds, "(due_date, id) > ("+arg(after.DueDate)+", "+arg(after.ID)+")")
	}

	query := "SELECT " + itemColumns + " FROM due_items"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY due_date ASC, id ASC LIMIT " + arg(limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying due items: %w", err)
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachClientContacts(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// MarkFired sets the dedup marker for the given window label via a
// single conditional update: the write only happens while the marker is
// still null, so concurrent or retried runs produce at most one marker
// per window per item.
func (r *PostgresItemRepository) MarkFired(ctx context.Context, itemID, label string, at time.Time) (bool, error) {
	query := `UPDATE due_items
               SET sent_markers = jsonb_set(COALESCE(sent_markers, '{}'::jsonb), ARRAY[$2], to_jsonb($3::timestamptz), true),
                   updated_at = NOW()
               WHERE id = $1 AND sent_markers->>$2 IS NULL`
	res, err := r.db.ExecContext(ctx, query, itemID, label, at)
	if err != nil {
		return false, fmt.Errorf("error marking window %s fired for item %s: %w", label, itemID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading mark result for item %s: %w", itemID, err)
	}
	return n == 1, nil
}

// UpdateStatus transitions the item's status, guarded by its current
// status so an externally-resolved item is never dragged back into the
// escalation chain.
func (r *PostgresItemRepository) UpdateStatus(ctx context.Context, itemID string, from []dueitem.Status, to dueitem.Status) error {
	currents := make([]string, len(from))
	for i, s := range from {
		currents[i] = string(s)
	}
	query := `UPDATE due_items SET status = $2, updated_at = NOW()
               WHERE id = $1 AND status = ANY($3::varchar[])`
	if _, err := r.db.ExecContext(ctx, query, itemID, string(to), pq.Array(currents)); err != nil {
		return fmt.Errorf("error updating status of item %s to %s: %w", itemID, to, err)
	}
	return nil
}

func scanItems(rows *sql.Rows) ([]*dueitem.Item, error) {
	items := make([]*dueitem.Item, 0)
	for rows.Next() {
		var (
			it          dueitem.Item
			vendorName  sql.NullString
			vendorEmail sql.NullString
			vendorPhone sql.NullString
			markers     []byte
		)
		if err := rows.Scan(
			&it.ID, &it.OrganizationID, &it.Kind, &it.Title, &it.LocationName,
			&it.DueDate, &it.Status, &vendorName, &vendorEmail, &vendorPhone, &markers,
		); err != nil {
			return nil, fmt.Errorf("error scanning due item row: %w", err)
		}
		if vendorEmail.Valid || vendorPhone.Valid {
			it.VendorContact = &dueitem.Contact{
				Name:  vendorName.String,
				Email: vendorEmail.String,
				Phone: vendorPhone.String,
			}
		}
		it.SentMarkers = map[string]time.Time{}
		if len(markers) > 0 {
			if err := json.Unmarshal(markers, &it.SentMarkers); err != nil {
				return nil, fmt.Errorf("error decoding sent markers for item %s: %w", it.ID, err)
			}
		}
		items = append(items, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due item rows: %w", err)
	}
	return items, nil
}

// attachClientContacts hydrates the client org member lists for a page
// of items with one query across all organizations in the page.
func (r *PostgresItemRepository) attachClientContacts(ctx context.Context, items []*dueitem.Item) error {
	if len(items) == 0 {
		return nil
	}
	orgSet := make(map[string]struct{}, len(items))
	orgIDs := make([]string, 0, len(items))
	for _, it := range items {
		if _, seen := orgSet[it.OrganizationID]; !seen {
			orgSet[it.OrganizationID] = struct{}{}
			orgIDs = append(orgIDs, it.OrganizationID)
		}
	}

	query := `SELECT organization_id, full_name, email, COALESCE(phone, '')
               FROM org_contacts
               WHERE organization_id = ANY($1::varchar[])
                 AND role IN ('owner', 'admin', 'manager')
               ORDER BY organization_id, email`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(orgIDs))
	if err != nil {
		return fmt.Errorf("error querying org contacts: %w", err)
	}
	defer rows.Close()

	byOrg := make(map[string][]dueitem.Contact)
	for rows.Next() {
		var orgID string
		var c dueitem.Contact
		if err := rows.Scan(&orgID, &c.Name, &c.Email, &c.Phone); err != nil {
			return fmt.Errorf("error scanning org contact row: %w", err)
		}
		byOrg[orgID] = append(byOrg[orgID], c)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating org contact rows: %w", err)
	}

	for _, it := range items {
		it.ClientContacts = byOrg[it.OrganizationID]
	}
	return nil
}
