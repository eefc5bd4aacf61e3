package sqlstore_test

import (
	"path/filepath"
	"testing"

	"github.com/priyxstudio/examination/internal/database"
	"github.com/priyxstudio/examination/store/sqlstore"
	"github.com/priyxstudio/examination/store/storetest"
)

func TestStore(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "documents.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	s := sqlstore.New(db)
	defer s.Close()

	storetest.Run(t, s)
}
