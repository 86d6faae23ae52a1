package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// Postgres is the managed-database backend. The schema comes from the
// migrations package; the store assumes it is already applied.
type Postgres struct {
	db      *sql.DB
	nowFunc func() time.Time
}

func NewPostgres(db *sql.DB) (*Postgres, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	return &Postgres{db: db, nowFunc: time.Now}, nil
}

const accountColumns = `id, email, nombre, password, rol, activo, reset_token, reset_token_expires, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (Account, error) {
	var a Account
	var resetToken sql.NullString
	var resetExpires sql.NullTime
	if err := row.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.Role, &a.Active, &resetToken, &resetExpires, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return Account{}, err
	}
	a.ResetToken = resetToken.String
	if resetExpires.Valid {
		t := resetExpires.Time
		a.ResetTokenExpires = &t
	}
	return a, nil
}

func (s *Postgres) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Account{}, ErrNotFound
	}
	q := `SELECT ` + accountColumns + ` FROM usuarios WHERE email = $1`
	a, err := scanAccount(s.db.QueryRowContext(ctx, q, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("query usuario: %w", err)
	}
	return a, nil
}

func (s *Postgres) ListAccounts(ctx context.Context) ([]Account, error) {
	q := `SELECT ` + accountColumns + ` FROM usuarios ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query usuarios: %w", err)
	}
	defer rows.Close()

	out := make([]Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan usuario: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usuarios: %w", err)
	}
	return out, nil
}

func (s *Postgres) CreateAccount(ctx context.Context, a Account) (Account, error) {
	if a.ID == "" || a.Email == "" || a.PasswordHash == "" {
		return Account{}, fmt.Errorf("id, email, and password hash are required")
	}
	now := s.nowFunc().UTC()
	const q = `
INSERT INTO usuarios (id, email, nombre, password, rol, activo, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`
	if _, err := s.db.ExecContext(ctx, q, a.ID, a.Email, a.Name, a.PasswordHash, a.Role, a.Active, now); err != nil {
		if isUniqueViolation(err) {
			return Account{}, ErrConflict
		}
		return Account{}, fmt.Errorf("insert usuario: %w", err)
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	return a, nil
}

func (s *Postgres) SetResetToken(ctx context.Context, email, token string, expiresAt time.Time) error {
	const q = `
UPDATE usuarios
SET reset_token = $2,
	reset_token_expires = $3,
	updated_at = $4
WHERE email = $1`
	res, err := s.db.ExecContext(ctx, q, email, token, expiresAt.UTC(), s.nowFunc().UTC())
	if err != nil {
		return fmt.Errorf("update reset token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read reset token affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) ConsumeResetToken(ctx context.Context, token string, now time.Time, newHash string) (Account, error) {
	if token == "" {
		return Account{}, ErrNotFound
	}
	q := `
UPDATE usuarios
SET password = $1,
	reset_token = NULL,
	reset_token_expires = NULL,
	updated_at = $3
WHERE reset_token = $2 AND reset_token_expires > $3
RETURNING ` + accountColumns
	a, err := scanAccount(s.db.QueryRowContext(ctx, q, newHash, token, now.UTC()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("consume reset token: %w", err)
	}
	return a, nil
}

const assetColumns = `a.serie, a.marca, a.modelo, a.estado, a.rut_responsable, a.ubicacion, a.tipo_dispositivo,
	a.observaciones, a.fecha_compra, a.valor, a.numero_factura, a.created_at, a.updated_at, c.nombre, c.correo`

func scanAsset(row interface{ Scan(...any) error }) (Asset, error) {
	var a Asset
	var updatedAt sql.NullTime
	var colName, colEmail sql.NullString
	if err := row.Scan(&a.Serial, &a.Brand, &a.Model, &a.Status, &a.ResponsibleRUT, &a.Location, &a.DeviceType,
		&a.Notes, &a.PurchaseDate, &a.Value, &a.InvoiceNumber, &a.CreatedAt, &updatedAt, &colName, &colEmail); err != nil {
		return Asset{}, err
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		a.UpdatedAt = &t
	}
	if colName.Valid {
		a.Collaborator = &CollaboratorRef{Name: colName.String, Email: colEmail.String}
	}
	return a, nil
}

func (s *Postgres) ListAssets(ctx context.Context) ([]Asset, error) {
	q := `
SELECT ` + assetColumns + `
FROM activos a
LEFT JOIN colaboradores c ON c.rut = a.rut_responsable
ORDER BY a.created_at DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query activos: %w", err)
	}
	defer rows.Close()

	out := make([]Asset, 0)
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activo: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activos: %w", err)
	}
	return out, nil
}

func (s *Postgres) GetAsset(ctx context.Context, serial string) (Asset, error) {
	q := `
SELECT ` + assetColumns + `
FROM activos a
LEFT JOIN colaboradores c ON c.rut = a.rut_responsable
WHERE a.serie = $1`
	a, err := scanAsset(s.db.QueryRowContext(ctx, q, serial))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Asset{}, ErrNotFound
		}
		return Asset{}, fmt.Errorf("query activo: %w", err)
	}
	return a, nil
}

func (s *Postgres) CreateAsset(ctx context.Context, a Asset) (Asset, error) {
	now := s.nowFunc().UTC()
	const q = `
INSERT INTO activos
  (serie, marca, modelo, estado, rut_responsable, ubicacion, tipo_dispositivo, observaciones, fecha_compra, valor, numero_factura, created_at)
VALUES
  ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err := s.db.ExecContext(ctx, q, a.Serial, a.Brand, a.Model, a.Status, a.ResponsibleRUT, a.Location, a.DeviceType,
		a.Notes, a.PurchaseDate, a.Value, a.InvoiceNumber, now); err != nil {
		if isUniqueViolation(err) {
			return Asset{}, ErrConflict
		}
		return Asset{}, fmt.Errorf("insert activo: %w", err)
	}
	a.Collaborator = nil
	a.CreatedAt = now
	a.UpdatedAt = nil
	return a, nil
}

func (s *Postgres) UpdateAsset(ctx context.Context, serial string, p AssetPatch) (Asset, error) {
	const q = `
UPDATE activos
SET marca = COALESCE($2, marca),
	modelo = COALESCE($3, modelo),
	estado = COALESCE($4, estado),
	rut_responsable = COALESCE($5, rut_responsable),
	ubicacion = COALESCE($6, ubicacion),
	tipo_dispositivo = COALESCE($7, tipo_dispositivo),
	observaciones = COALESCE($8, observaciones),
	fecha_compra = COALESCE($9, fecha_compra),
	valor = COALESCE($10, valor),
	numero_factura = COALESCE($11, numero_factura),
	updated_at = $12
WHERE serie = $1`
	res, err := s.db.ExecContext(ctx, q, serial, p.Brand, p.Model, p.Status, p.ResponsibleRUT, p.Location, p.DeviceType,
		p.Notes, p.PurchaseDate, p.Value, p.InvoiceNumber, s.nowFunc().UTC())
	if err != nil {
		return Asset{}, fmt.Errorf("update activo: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Asset{}, fmt.Errorf("read update affected rows: %w", err)
	}
	if affected == 0 {
		return Asset{}, ErrNotFound
	}
	return s.GetAsset(ctx, serial)
}

func (s *Postgres) DeleteAsset(ctx context.Context, serial string) error {
	const q = `DELETE FROM activos WHERE serie = $1`
	if _, err := s.db.ExecContext(ctx, q, serial); err != nil {
		return fmt.Errorf("delete activo: %w", err)
	}
	return nil
}

const collaboratorColumns = `rut, nombre, correo, area, cargo, telefono, created_at, updated_at`

func scanCollaborator(row interface{ Scan(...any) error }) (Collaborator, error) {
	var c Collaborator
	var updatedAt sql.NullTime
	if err := row.Scan(&c.RUT, &c.Name, &c.Email, &c.Area, &c.Position, &c.Phone, &c.CreatedAt, &updatedAt); err != nil {
		return Collaborator{}, err
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		c.UpdatedAt = &t
	}
	return c, nil
}

func (s *Postgres) ListCollaborators(ctx context.Context) ([]Collaborator, error) {
	q := `SELECT ` + collaboratorColumns + ` FROM colaboradores ORDER BY nombre ASC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query colaboradores: %w", err)
	}
	defer rows.Close()

	out := make([]Collaborator, 0)
	for rows.Next() {
		c, err := scanCollaborator(rows)
		if err != nil {
			return nil, fmt.Errorf("scan colaborador: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate colaboradores: %w", err)
	}
	return out, nil
}

func (s *Postgres) GetCollaborator(ctx context.Context, rut string) (Collaborator, error) {
	q := `SELECT ` + collaboratorColumns + ` FROM colaboradores WHERE rut = $1`
	c, err := scanCollaborator(s.db.QueryRowContext(ctx, q, rut))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Collaborator{}, ErrNotFound
		}
		return Collaborator{}, fmt.Errorf("query colaborador: %w", err)
	}
	return c, nil
}

func (s *Postgres) CreateCollaborator(ctx context.Context, c Collaborator) (Collaborator, error) {
	now := s.nowFunc().UTC()
	const q = `
INSERT INTO colaboradores (rut, nombre, correo, area, cargo, telefono, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := s.db.ExecContext(ctx, q, c.RUT, c.Name, c.Email, c.Area, c.Position, c.Phone, now); err != nil {
		if isUniqueViolation(err) {
			return Collaborator{}, ErrConflict
		}
		return Collaborator{}, fmt.Errorf("insert colaborador: %w", err)
	}
	c.CreatedAt = now
	c.UpdatedAt = nil
	return c, nil
}

func (s *Postgres) UpdateCollaborator(ctx context.Context, rut string, p CollaboratorPatch) (Collaborator, error) {
	q := `
UPDATE colaboradores
SET nombre = COALESCE($2, nombre),
	correo = COALESCE($3, correo),
	area = COALESCE($4, area),
	cargo = COALESCE($5, cargo),
	telefono = COALESCE($6, telefono),
	updated_at = $7
WHERE rut = $1
RETURNING ` + collaboratorColumns
	c, err := scanCollaborator(s.db.QueryRowContext(ctx, q, rut, p.Name, p.Email, p.Area, p.Position, p.Phone, s.nowFunc().UTC()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Collaborator{}, ErrNotFound
		}
		return Collaborator{}, fmt.Errorf("update colaborador: %w", err)
	}
	return c, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
