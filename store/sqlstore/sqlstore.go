// Package sqlstore implements store.Store on top of a GORM connection. Every
// document is a row in the documents table keyed by (collection, doc_key).
package sqlstore

import (
	"context"
	"time"

	"emperror.dev/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/priyxstudio/examination/internal/models"
	"github.com/priyxstudio/examination/store"
)

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// New returns a store backed by db. The documents table must already exist,
// see database.Open.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, collection, key string) (*store.Document, error) {
	var row models.Document
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_key = ?", collection, key).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrapf(err, "sqlstore: failed to fetch %s/%s", collection, key)
	}
	return toDocument(&row), nil
}

func (s *Store) Set(ctx context.Context, collection, key string, data []byte) error {
	row := models.Document{
		Collection: collection,
		Key:        key,
		Data:       string(data),
		Version:    1,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "collection"}, {Name: "doc_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"data":       string(data),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		}),
	}).Create(&row).Error
	if err != nil {
		return errors.Wrapf(err, "sqlstore: failed to write %s/%s", collection, key)
	}
	return nil
}

// Update merges fields into the stored document. The merge happens in
// process, so it is committed through CompareAndSwap to avoid losing a
// concurrent write.
func (s *Store) Update(ctx context.Context, collection, key string, fields map[string]interface{}) error {
	return store.Modify(ctx, s, collection, key, func(data []byte) ([]byte, error) {
		if data == nil {
			return nil, store.ErrNotFound
		}
		return store.Merge(data, fields)
	})
}

func (s *Store) GetAll(ctx context.Context, collection string) ([]*store.Document, error) {
	var rows []models.Document
	if err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("doc_key ASC").
		Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "sqlstore: failed to list %s", collection)
	}
	out := make([]*store.Document, 0, len(rows))
	for i := range rows {
		out = append(out, toDocument(&rows[i]))
	}
	return out, nil
}

func (s *Store) CompareAndSwap(ctx context.Context, collection, key string, version int64, data []byte) (int64, error) {
	db := s.db.WithContext(ctx)
	if version == 0 {
		row := models.Document{
			Collection: collection,
			Key:        key,
			Data:       string(data),
			Version:    1,
		}
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return 0, errors.Wrapf(res.Error, "sqlstore: failed to create %s/%s", collection, key)
		}
		if res.RowsAffected == 0 {
			return 0, store.ErrVersionConflict
		}
		return 1, nil
	}

	res := db.Model(&models.Document{}).
		Where("collection = ? AND doc_key = ? AND version = ?", collection, key, version).
		Updates(map[string]interface{}{
			"data":    string(data),
			"version": version + 1,
		})
	if res.Error != nil {
		return 0, errors.Wrapf(res.Error, "sqlstore: failed to update %s/%s", collection, key)
	}
	if res.RowsAffected == 0 {
		return 0, store.ErrVersionConflict
	}
	return version + 1, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.WithStack(err)
	}
	return sqlDB.Close()
}

func toDocument(row *models.Document) *store.Document {
	return &store.Document{
		Collection: row.Collection,
		Key:        row.Key,
		Data:       []byte(row.Data),
		Version:    row.Version,
	}
}
