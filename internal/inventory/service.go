// Package inventory manages assets and the collaborators responsible for
// them. Records are plain store rows; the service adds request validation
// and the uniqueness checks that precede each insert.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"inventarioti/inventory-api/internal/store"
	"inventarioti/inventory-api/internal/validation"
)

type Service struct {
	assets        store.AssetStore
	collaborators store.CollaboratorStore
	validator     *validation.Validator
	logger        *slog.Logger
}

func NewService(assets store.AssetStore, collaborators store.CollaboratorStore, v *validation.Validator, logger *slog.Logger) (*Service, error) {
	if assets == nil || collaborators == nil {
		return nil, fmt.Errorf("asset and collaborator stores are required")
	}
	if v == nil {
		return nil, fmt.Errorf("validator is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{assets: assets, collaborators: collaborators, validator: v, logger: logger}, nil
}

func (s *Service) ListAssets(ctx context.Context) ([]store.Asset, error) {
	out, err := s.assets.ListAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return out, nil
}

// CreateAsset stores a new asset under its upper-cased serial. An existing
// serial fails with store.ErrConflict and leaves the store untouched.
func (s *Service) CreateAsset(ctx context.Context, in AssetInput) (store.Asset, error) {
	in.Serial = normalizeSerial(in.Serial)
	if err := s.validator.Struct(in); err != nil {
		return store.Asset{}, err
	}

	if _, err := s.assets.GetAsset(ctx, in.Serial); err == nil {
		return store.Asset{}, store.ErrConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return store.Asset{}, fmt.Errorf("lookup asset: %w", err)
	}

	created, err := s.assets.CreateAsset(ctx, in.record())
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return store.Asset{}, err
		}
		return store.Asset{}, fmt.Errorf("create asset: %w", err)
	}
	s.logger.InfoContext(ctx, "asset created", "serie", created.Serial)
	return created, nil
}

func (s *Service) UpdateAsset(ctx context.Context, serial string, in AssetPatchInput) (store.Asset, error) {
	if err := s.validator.Struct(in); err != nil {
		return store.Asset{}, err
	}
	updated, err := s.assets.UpdateAsset(ctx, normalizeSerial(serial), in.patch())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Asset{}, err
		}
		return store.Asset{}, fmt.Errorf("update asset: %w", err)
	}
	return updated, nil
}

// DeleteAsset succeeds whether or not the serial exists.
func (s *Service) DeleteAsset(ctx context.Context, serial string) error {
	if err := s.assets.DeleteAsset(ctx, normalizeSerial(serial)); err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	s.logger.InfoContext(ctx, "asset deleted", "serie", normalizeSerial(serial))
	return nil
}

func (s *Service) ListCollaborators(ctx context.Context) ([]store.Collaborator, error) {
	out, err := s.collaborators.ListCollaborators(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collaborators: %w", err)
	}
	return out, nil
}

func (s *Service) CreateCollaborator(ctx context.Context, in CollaboratorInput) (store.Collaborator, error) {
	in.RUT = strings.TrimSpace(in.RUT)
	if err := s.validator.Struct(in); err != nil {
		return store.Collaborator{}, err
	}

	if _, err := s.collaborators.GetCollaborator(ctx, in.RUT); err == nil {
		return store.Collaborator{}, store.ErrConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return store.Collaborator{}, fmt.Errorf("lookup collaborator: %w", err)
	}

	created, err := s.collaborators.CreateCollaborator(ctx, in.record())
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return store.Collaborator{}, err
		}
		return store.Collaborator{}, fmt.Errorf("create collaborator: %w", err)
	}
	s.logger.InfoContext(ctx, "collaborator created", "rut", created.RUT)
	return created, nil
}

func (s *Service) UpdateCollaborator(ctx context.Context, rut string, in CollaboratorPatchInput) (store.Collaborator, error) {
	if err := s.validator.Struct(in); err != nil {
		return store.Collaborator{}, err
	}
	updated, err := s.collaborators.UpdateCollaborator(ctx, strings.TrimSpace(rut), in.patch())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Collaborator{}, err
		}
		return store.Collaborator{}, fmt.Errorf("update collaborator: %w", err)
	}
	return updated, nil
}

func normalizeSerial(serial string) string {
	return strings.ToUpper(strings.TrimSpace(serial))
}
