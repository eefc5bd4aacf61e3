package module

import (
	"context"

	"emperror.dev/errors"
	"github.com/apex/log"
	"github.com/goccy/go-json"

	"github.com/priyxstudio/examination/internal/models"
	"github.com/priyxstudio/examination/store"
)

// ResultUpdate is the payload used to set or overwrite the results of a module.
type ResultUpdate struct {
	ModuleCode string            `json:"moduleCode"`
	UserID     string            `json:"userId"`
	Results    []json.RawMessage `json:"results"`
}

// CreateModule stores a new module under its code. It fails with ErrConflict if
// a module with the same code already exists.
func (s *Service) CreateModule(ctx context.Context, m *models.Module) (string, error) {
	if m == nil || m.ModuleCode == "" {
		return "", errValidation("module code must be non-empty")
	}
	m.Normalize()

	data, err := json.Marshal(m)
	if err != nil {
		return "", errors.Wrap(err, "module: failed to encode module")
	}
	if _, err := s.store.CompareAndSwap(ctx, ModulesCollection, m.ModuleCode, 0, data); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return "", errConflict("module already exists")
		}
		return "", errors.WrapIf(err, "module: failed to create module")
	}

	s.log.WithField("module", m.ModuleCode).Info("module created")
	return "module created successfully", nil
}

// GetModuleByID returns the module stored under id.
func (s *Service) GetModuleByID(ctx context.Context, id string) (*models.Module, error) {
	return s.load(ctx, id, "invalid module code")
}

// GetModuleList returns the codes of every module.
func (s *Service) GetModuleList(ctx context.Context) ([]string, error) {
	return s.scan(ctx, func(*models.Module) bool { return true })
}

// IsModuleExists reports whether a module is stored under id.
func (s *Service) IsModuleExists(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, errValidation("module id must be non-empty")
	}
	if _, err := s.store.Get(ctx, ModulesCollection, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, errors.WrapIf(err, "module: failed to fetch module")
	}
	return true, nil
}

// UpdateResults replaces the results of a module and marks them as released.
// Only admins of the module may do this.
func (s *Service) UpdateResults(ctx context.Context, r ResultUpdate) (string, error) {
	if r.ModuleCode == "" {
		return "", errValidation("module code must be non-empty")
	}
	err := s.modify(ctx, r.ModuleCode, "no such module", func(m *models.Module) error {
		if !m.IsAdmin(r.UserID) {
			return errPermission("permission denied")
		}
		m.ResultAvailable = true
		m.LastEditedBy = r.UserID
		m.Results = r.Results
		if m.Results == nil {
			m.Results = []json.RawMessage{}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.log.WithFields(log.Fields{
		"module":  r.ModuleCode,
		"user":    r.UserID,
		"results": len(r.Results),
	}).Info("module results updated")
	return "results updated successfully", nil
}

// RegisterToModule enrolls a student in a module.
func (s *Service) RegisterToModule(ctx context.Context, userID, moduleID string) (bool, error) {
	if userID == "" || moduleID == "" {
		return false, errValidation("user id and module id must be non-empty")
	}
	err := s.modify(ctx, moduleID, "no such module", func(m *models.Module) error {
		if m.IsRegistered(userID) {
			return errConflict("already registered")
		}
		m.RegisteredStudents = append(m.RegisteredStudents, userID)
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetRegisteredModules returns the codes of the modules the user is enrolled in.
func (s *Service) GetRegisteredModules(ctx context.Context, userID string) ([]string, error) {
	return s.scan(ctx, func(m *models.Module) bool { return m.IsRegistered(userID) })
}

// GetAdminModules returns the codes of the modules the user administers.
func (s *Service) GetAdminModules(ctx context.Context, userID string) ([]string, error) {
	return s.scan(ctx, func(m *models.Module) bool { return m.IsAdmin(userID) })
}
