package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedFiles(t *testing.T) {
	entries, err := fs.ReadDir(FS, ".")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	want := []string{"001_patient.sql", "002_anc_visit.sql", "003_alert.sql", "004_activity_log.sql", "005_daily_checklist.sql"}
	if len(entries) != len(want) {
		t.Fatalf("expected %d migrations, got %d", len(want), len(entries))
	}
	for i, e := range entries {
		if e.Name() != want[i] {
			t.Errorf("entry %d: expected %s, got %s", i, want[i], e.Name())
		}
		data, err := fs.ReadFile(FS, e.Name())
		if err != nil {
			t.Fatalf("read %s: %v", e.Name(), err)
		}
		if !strings.Contains(string(data), "CREATE TABLE") {
			t.Errorf("%s does not create a table", e.Name())
		}
	}
}
