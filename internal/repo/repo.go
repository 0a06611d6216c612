package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const clientColumns = `id,name,manager_id,label,cs_classification,classification_reason,status,last_contact_at,archived,archived_at,monthly_value,created_at,updated_at`

func scanClient(scan func(dest ...any) error) (domain.Client, error) {
	var c domain.Client
	var label, reason, lastContact, archivedAt sql.NullString
	var archived int
	err := scan(&c.ID, &c.Name, &c.ManagerID, &label, &c.Classification, &reason, &c.Status,
		&lastContact, &archived, &archivedAt, &c.MonthlyValue, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	if label.Valid {
		c.Label = domain.Label(label.String)
	}
	if reason.Valid {
		c.ClassificationReason = &reason.String
	}
	if lastContact.Valid {
		c.LastContactAt = &lastContact.String
	}
	c.Archived = archived != 0
	if archivedAt.Valid {
		c.ArchivedAt = &archivedAt.String
	}
	return c, nil
}

func (r Repo) InsertClient(ctx context.Context, tx *sql.Tx, c domain.Client) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO clients(`+clientColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.Name, c.ManagerID, nullable(string(c.Label)), c.Classification, nullableStringPtr(c.ClassificationReason),
		c.Status, nullableStringPtr(c.LastContactAt), boolInt(c.Archived), nullableStringPtr(c.ArchivedAt),
		c.MonthlyValue, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r Repo) GetClient(ctx context.Context, id string) (domain.Client, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id=?`, id)
	return scanClient(row.Scan)
}

type ClientFilters struct {
	ManagerID       string
	Status          string
	IncludeArchived bool
}

func (r Repo) ListClients(ctx context.Context, f ClientFilters) ([]domain.Client, error) {
	var clauses []string
	var args []any
	if f.ManagerID != "" {
		clauses = append(clauses, "manager_id=?")
		args = append(args, f.ManagerID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if !f.IncludeArchived {
		clauses = append(clauses, "archived=0")
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients `+where+` ORDER BY created_at ASC, id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Client
	for rows.Next() {
		c, err := scanClient(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// SetClientLabel writes the label together with its derived
// classification and reason in one UPDATE so the stored
// classification can never drift from the label.
func (r Repo) SetClientLabel(ctx context.Context, tx *sql.Tx, id string, label domain.Label, classification string, reason *string, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE clients SET label=?, cs_classification=?, classification_reason=?, updated_at=? WHERE id=?`,
		nullable(string(label)), classification, nullableStringPtr(reason), updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetClientLabelOnly changes the label without touching the stored
// classification (the empty-label no-op case).
func (r Repo) SetClientLabelOnly(ctx context.Context, tx *sql.Tx, id string, label domain.Label, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE clients SET label=?, updated_at=? WHERE id=?`,
		nullable(string(label)), updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetClientStatus(ctx context.Context, tx *sql.Tx, id, status, classification string, archivedAt *string, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE clients SET status=?, cs_classification=?, archived_at=COALESCE(?,archived_at), updated_at=? WHERE id=?`,
		status, classification, nullableStringPtr(archivedAt), updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetLastContact(ctx context.Context, tx *sql.Tx, id, contactAt, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE clients SET last_contact_at=?, updated_at=? WHERE id=?`, contactAt, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ArchiveClient soft-deletes; clients are never hard-deleted while
// referenced.
func (r Repo) ArchiveClient(ctx context.Context, tx *sql.Tx, id, archivedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE clients SET archived=1, archived_at=?, updated_at=? WHERE id=? AND archived=0`, archivedAt, archivedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertClientProduct is keyed on (client_id, product_slug).
func (r Repo) UpsertClientProduct(ctx context.Context, tx *sql.Tx, p domain.ClientProduct) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO client_products(client_id,product_slug,value,updated_at) VALUES (?,?,?,?)
ON CONFLICT(client_id,product_slug) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		p.ClientID, p.ProductSlug, p.Value, p.UpdatedAt)
	return err
}

func (r Repo) ListClientProducts(ctx context.Context, clientID string) ([]domain.ClientProduct, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT client_id,product_slug,value,updated_at FROM client_products WHERE client_id=? ORDER BY product_slug`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ClientProduct
	for rows.Next() {
		var p domain.ClientProduct
		if err := rows.Scan(&p.ClientID, &p.ProductSlug, &p.Value, &p.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) InsertManager(ctx context.Context, m domain.Manager) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO managers(id,name,email,department,created_at) VALUES (?,?,?,?,?)`,
		m.ID, m.Name, m.Email, m.Department, m.CreatedAt)
	return err
}

func (r Repo) GetManager(ctx context.Context, id string) (domain.Manager, error) {
	var m domain.Manager
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,email,department,created_at FROM managers WHERE id=?`, id).
		Scan(&m.ID, &m.Name, &m.Email, &m.Department, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	return m, err
}

func (r Repo) ListManagers(ctx context.Context) ([]domain.Manager, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,email,department,created_at FROM managers ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Manager
	for rows.Next() {
		var m domain.Manager
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Department, &m.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
