// Package module implements the operations on academic modules: creating
// them, managing their rosters, storing and releasing results, file upload
// bookkeeping and re-correction requests.
package module

import (
	"context"

	"emperror.dev/errors"
	"github.com/apex/log"
	"github.com/goccy/go-json"

	"github.com/priyxstudio/examination/internal/models"
	"github.com/priyxstudio/examination/messages"
	"github.com/priyxstudio/examination/store"
)

const (
	ModulesCollection = "Modules"
	FilesCollection   = "Files"
)

// DefaultWorkers is the number of concurrent deliveries used when posting a
// module message.
const DefaultWorkers = 8

type Service struct {
	store   store.Store
	sender  messages.Sender
	log     log.Interface
	workers int
}

type Option func(*Service)

// WithLogger sets the logger used for failures that are not returned to the
// caller.
func WithLogger(l log.Interface) Option {
	return func(s *Service) {
		s.log = l
	}
}

// WithWorkers bounds the number of concurrent deliveries for module messages.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewService returns a module service reading and writing through st and
// notifying users through sender.
func NewService(st store.Store, sender messages.Sender, opts ...Option) *Service {
	s := &Service{
		store:   st,
		sender:  sender,
		log:     log.WithField("component", "module"),
		workers: DefaultWorkers,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// load fetches and decodes a module, mapping a missing document to a
// not found error with the given message.
func (s *Service) load(ctx context.Context, moduleID, missing string) (*models.Module, error) {
	if moduleID == "" {
		return nil, errNotFound(missing)
	}
	doc, err := s.store.Get(ctx, ModulesCollection, moduleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errNotFound(missing)
		}
		return nil, errors.WrapIf(err, "module: failed to fetch module")
	}
	var m models.Module
	if err := doc.Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// modify runs fn against the current state of an existing module and writes
// the result back with compare-and-swap. fn may be called more than once if
// another request changes the module concurrently.
func (s *Service) modify(ctx context.Context, moduleID, missing string, fn func(m *models.Module) error) error {
	err := store.Modify(ctx, s.store, ModulesCollection, moduleID, func(data []byte) ([]byte, error) {
		if data == nil {
			return nil, errNotFound(missing)
		}
		var m models.Module
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, errors.Wrap(err, "module: corrupt module document")
		}
		if err := fn(&m); err != nil {
			return nil, err
		}
		return json.Marshal(&m)
	})
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			return err
		}
		return errors.WrapIf(err, "module: failed to update module")
	}
	return nil
}

// scan returns the codes of every module matching fn, in key order.
func (s *Service) scan(ctx context.Context, fn func(m *models.Module) bool) ([]string, error) {
	docs, err := s.store.GetAll(ctx, ModulesCollection)
	if err != nil {
		return nil, errors.WrapIf(err, "module: failed to list modules")
	}
	codes := make([]string, 0, len(docs))
	for _, d := range docs {
		var m models.Module
		if err := d.Decode(&m); err != nil {
			return nil, err
		}
		if fn(&m) {
			codes = append(codes, m.ModuleCode)
		}
	}
	return codes, nil
}
