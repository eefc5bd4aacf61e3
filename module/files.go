package module

import (
	"context"

	"emperror.dev/errors"
	"github.com/goccy/go-json"

	"github.com/priyxstudio/examination/internal/models"
	"github.com/priyxstudio/examination/store"
)

// RecordUpload appends fileName to the file list of a module, creating the
// record on the first upload. The same name may be recorded more than once.
func (s *Service) RecordUpload(ctx context.Context, moduleID, fileName string) (string, error) {
	if moduleID == "" || fileName == "" {
		return "", errValidation("module id and file name must be non-empty")
	}
	err := store.Modify(ctx, s.store, FilesCollection, moduleID, func(data []byte) ([]byte, error) {
		var rec models.FileRecord
		if data != nil {
			if err := json.Unmarshal(data, &rec); err != nil {
				return nil, errors.Wrap(err, "module: corrupt file record")
			}
		}
		rec.FileList = append(rec.FileList, fileName)
		return json.Marshal(&rec)
	})
	if err != nil {
		return "", errors.WrapIf(err, "module: failed to record upload")
	}
	return "database updated successfully", nil
}

// DeleteFileRecord removes the first occurrence of fileName from the file
// list of a module. A name that is not in the list is ignored.
func (s *Service) DeleteFileRecord(ctx context.Context, moduleID, fileName string) (string, error) {
	if moduleID == "" || fileName == "" {
		return "", errValidation("module id and file name must be non-empty")
	}
	err := store.Modify(ctx, s.store, FilesCollection, moduleID, func(data []byte) ([]byte, error) {
		if data == nil {
			return nil, errNotFound("no files recorded for this module")
		}
		var rec models.FileRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, errors.Wrap(err, "module: corrupt file record")
		}
		if !rec.Remove(fileName) {
			return nil, store.ErrSkipWrite
		}
		if rec.FileList == nil {
			rec.FileList = []string{}
		}
		return json.Marshal(&rec)
	})
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			return "", err
		}
		return "", errors.WrapIf(err, "module: failed to delete file record")
	}
	return "file removed successfully", nil
}

// GetFileList returns the names recorded for a module in upload order. A
// module without uploads has an empty list.
func (s *Service) GetFileList(ctx context.Context, moduleID string) ([]string, error) {
	if moduleID == "" {
		return nil, errValidation("module id must be non-empty")
	}
	doc, err := s.store.Get(ctx, FilesCollection, moduleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return []string{}, nil
		}
		return nil, errors.WrapIf(err, "module: failed to fetch file record")
	}
	var rec models.FileRecord
	if err := doc.Decode(&rec); err != nil {
		return nil, err
	}
	if rec.FileList == nil {
		return []string{}, nil
	}
	return rec.FileList, nil
}
