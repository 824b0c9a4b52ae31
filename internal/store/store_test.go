package store

import (
	"context"
	"testing"
)

// openTestLedger opens an in-memory SQLiteLedger for use in tests.
func openTestLedger(t *testing.T) *SQLiteLedger {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory ledger: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func Test_Ledger_RecordAndList(t *testing.T) {
	t.Parallel()
	s := openTestLedger(t)
	ctx := context.Background()

	if err := s.Record(ctx, "periodic-table.pdf", "Custom", 12); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.Record(ctx, "timeline.txt", "Wiki", 3); err != nil {
		t.Fatalf("record: %v", err)
	}

	records, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("want 2 records, got %d", len(records))
	}
	// Newest first.
	if records[0].Filename != "timeline.txt" {
		t.Errorf("records[0]: want timeline.txt, got %s", records[0].Filename)
	}
	if records[1].Filename != "periodic-table.pdf" || records[1].Chunks != 12 {
		t.Errorf("records[1]: want periodic-table.pdf/12, got %s/%d",
			records[1].Filename, records[1].Chunks)
	}
	if records[1].IngestedAt.IsZero() {
		t.Errorf("ingested_at should be set")
	}
}

func Test_Ledger_ListFiltersByCollection(t *testing.T) {
	t.Parallel()
	s := openTestLedger(t)
	ctx := context.Background()

	if err := s.Record(ctx, "a.txt", "Wiki", 1); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.Record(ctx, "b.txt", "ArXiv", 2); err != nil {
		t.Fatalf("record: %v", err)
	}

	records, err := s.List(ctx, "ArXiv")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("want 1 record, got %d", len(records))
	}
	if records[0].Filename != "b.txt" {
		t.Errorf("want b.txt, got %s", records[0].Filename)
	}
}

func Test_Ledger_ListEmpty(t *testing.T) {
	t.Parallel()
	s := openTestLedger(t)

	records, err := s.List(context.Background(), "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("want no records, got %d", len(records))
	}
}
