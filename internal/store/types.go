package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// Account is a login identity. PasswordHash and the reset fields never
// leave the server.
type Account struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	Name              string     `json:"nombre"`
	PasswordHash      string     `json:"password_hash,omitempty"`
	Role              string     `json:"rol"`
	Active            bool       `json:"activo"`
	ResetToken        string     `json:"reset_token,omitempty"`
	ResetTokenExpires *time.Time `json:"reset_token_expires,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// CollaboratorRef is the collaborator summary joined onto listed assets.
type CollaboratorRef struct {
	Name  string `json:"nombre"`
	Email string `json:"correo"`
}

type Asset struct {
	Serial         string           `json:"serie"`
	Brand          string           `json:"marca"`
	Model          string           `json:"modelo"`
	Status         string           `json:"estado"`
	ResponsibleRUT string           `json:"rut_responsable"`
	Location       string           `json:"ubicacion"`
	DeviceType     string           `json:"tipo_dispositivo"`
	Notes          string           `json:"observaciones,omitempty"`
	PurchaseDate   string           `json:"fecha_compra,omitempty"`
	Value          string           `json:"valor,omitempty"`
	InvoiceNumber  string           `json:"numero_factura,omitempty"`
	Collaborator   *CollaboratorRef `json:"colaborador,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      *time.Time       `json:"updated_at,omitempty"`
}

// AssetPatch holds the fields of a partial update; nil means unchanged.
type AssetPatch struct {
	Brand          *string
	Model          *string
	Status         *string
	ResponsibleRUT *string
	Location       *string
	DeviceType     *string
	Notes          *string
	PurchaseDate   *string
	Value          *string
	InvoiceNumber  *string
}

func (p AssetPatch) apply(a *Asset) {
	setIf(&a.Brand, p.Brand)
	setIf(&a.Model, p.Model)
	setIf(&a.Status, p.Status)
	setIf(&a.ResponsibleRUT, p.ResponsibleRUT)
	setIf(&a.Location, p.Location)
	setIf(&a.DeviceType, p.DeviceType)
	setIf(&a.Notes, p.Notes)
	setIf(&a.PurchaseDate, p.PurchaseDate)
	setIf(&a.Value, p.Value)
	setIf(&a.InvoiceNumber, p.InvoiceNumber)
}

type Collaborator struct {
	RUT       string     `json:"rut"`
	Name      string     `json:"nombre"`
	Email     string     `json:"correo"`
	Area      string     `json:"area"`
	Position  string     `json:"cargo,omitempty"`
	Phone     string     `json:"telefono,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type CollaboratorPatch struct {
	Name     *string
	Email    *string
	Area     *string
	Position *string
	Phone    *string
}

func (p CollaboratorPatch) apply(c *Collaborator) {
	setIf(&c.Name, p.Name)
	setIf(&c.Email, p.Email)
	setIf(&c.Area, p.Area)
	setIf(&c.Position, p.Position)
	setIf(&c.Phone, p.Phone)
}

func setIf(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

type AccountStore interface {
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	CreateAccount(ctx context.Context, a Account) (Account, error)
	// SetResetToken replaces any previous reset token on the account.
	SetResetToken(ctx context.Context, email, token string, expiresAt time.Time) error
	// ConsumeResetToken swaps the password hash and clears the reset token
	// in one conditional write that matches token and expiry > now.
	// It returns ErrNotFound when no account matched.
	ConsumeResetToken(ctx context.Context, token string, now time.Time, newHash string) (Account, error)
}

type AssetStore interface {
	ListAssets(ctx context.Context) ([]Asset, error)
	GetAsset(ctx context.Context, serial string) (Asset, error)
	CreateAsset(ctx context.Context, a Asset) (Asset, error)
	UpdateAsset(ctx context.Context, serial string, p AssetPatch) (Asset, error)
	DeleteAsset(ctx context.Context, serial string) error
}

type CollaboratorStore interface {
	ListCollaborators(ctx context.Context) ([]Collaborator, error)
	GetCollaborator(ctx context.Context, rut string) (Collaborator, error)
	CreateCollaborator(ctx context.Context, c Collaborator) (Collaborator, error)
	UpdateCollaborator(ctx context.Context, rut string, p CollaboratorPatch) (Collaborator, error)
}

// Store is the full record store, implemented by Memory and Postgres.
type Store interface {
	AccountStore
	AssetStore
	CollaboratorStore
}
