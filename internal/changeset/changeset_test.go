package changeset

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestBuilder_CreateIndex_CollisionSuffix(t *testing.T) {
	b := NewBuilder("antikythera", []Dialect{PostgreSQL, Oracle})
	c1 := b.CreateIndex("order", []string{"status"}, false)
	c2 := b.CreateIndex("order", []string{"status"}, false)
	if c1.ID == c2.ID {
		t.Fatalf("expected distinct IDs on collision, got %q twice", c1.ID)
	}
	if !strings.HasSuffix(c2.ID, "_1") {
		t.Errorf("expected second ID to carry _1 suffix, got %q", c2.ID)
	}
}

func TestBuilder_CreateIndex_RendersBothDialects(t *testing.T) {
	b := NewBuilder("antikythera", []Dialect{PostgreSQL, Oracle})
	c := b.CreateIndex("order", []string{"customer_id", "status"}, false)
	if !strings.Contains(c.XML, "CONCURRENTLY") {
		t.Error("expected PostgreSQL CONCURRENTLY in output")
	}
	if !strings.Contains(c.XML, "ONLINE") {
		t.Error("expected Oracle ONLINE in output")
	}
	if !strings.Contains(c.XML, "idx_order_customer_id_status") {
		t.Errorf("expected sanitized index name, got %s", c.XML)
	}
}

// The precondition must count only indexes with exactly the candidate's
// ordered column list; an unrelated index on the same table (e.g. its PK)
// must not trip it and mark the changeset ran.
func TestIndexExistsPrecondition_ReferencesColumnList(t *testing.T) {
	for _, d := range []Dialect{PostgreSQL, Oracle, MySQL, H2} {
		sql := indexExistsPrecondition(d, "order", []string{"customer_id", "status"})
		if !strings.Contains(sql, "customer_id,status") {
			t.Errorf("%s: precondition does not match the ordered column list:\n%s", d, sql)
		}
		if !strings.Contains(sql, "order") {
			t.Errorf("%s: precondition does not reference the table:\n%s", d, sql)
		}
	}
}

func TestCreateIndex_PreconditionCarriesColumns(t *testing.T) {
	b := NewBuilder("antikythera", []Dialect{PostgreSQL, Oracle, MySQL, H2})
	c := b.CreateIndex("order", []string{"customer_id", "status"}, false)
	if got := strings.Count(c.XML, "customer_id,status"); got != 4 {
		t.Errorf("expected all 4 dialect preconditions to name the column list, found %d:\n%s", got, c.XML)
	}
}

func TestComposite_FiltersEmpty(t *testing.T) {
	b := NewBuilder("antikythera", nil)
	c := b.CreateIndex("t", []string{"a"}, false)
	out := Composite(Changeset{}, c, Changeset{XML: "   "})
	if strings.Count(out, "<changeSet") != 1 {
		t.Errorf("expected exactly one changeSet in composite, got:\n%s", out)
	}
}

// Applying the master-file update twice with the same filename leaves
// exactly one include line.
func TestWriter_RegisterInclude_Idempotent(t *testing.T) {
	dir := t.TempDir()
	masterPath := dir + "/master.xml"
	if err := os.WriteFile(masterPath, []byte("<databaseChangeLog>\n</databaseChangeLog>\n"), 0o644); err != nil {
		t.Fatalf("seed master: %v", err)
	}

	w := NewWriter(masterPath)
	if err := w.registerInclude("antikythera-indexes-20260101000000-1.xml"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := w.registerInclude("antikythera-indexes-20260101000000-1.xml"); err != nil {
		t.Fatalf("second register: %v", err)
	}

	data, err := os.ReadFile(masterPath)
	if err != nil {
		t.Fatalf("read master: %v", err)
	}
	count := strings.Count(string(data), `file="antikythera-indexes-20260101000000-1.xml"`)
	if count != 1 {
		t.Fatalf("expected exactly one include line, got %d in:\n%s", count, data)
	}
}

func TestWriter_Write_CreatesSiblingFile(t *testing.T) {
	dir := t.TempDir()
	masterPath := dir + "/master.xml"
	if err := os.WriteFile(masterPath, []byte("<databaseChangeLog>\n</databaseChangeLog>\n"), 0o644); err != nil {
		t.Fatalf("seed master: %v", err)
	}

	b := NewBuilder("antikythera", nil)
	c := b.CreateIndex("order", []string{"status"}, false)

	w := NewWriter(masterPath)
	fileName, err := w.Write(Composite(c), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 42)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if fileName == "" {
		t.Fatal("expected non-empty filename")
	}
	if _, err := os.Stat(dir + "/" + fileName); err != nil {
		t.Errorf("expected sibling file to exist: %v", err)
	}
}
