package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"payorledger/internal/blob/core"
)

func TestPutGetListDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	meta := map[string]string{"ledger": "main"}
	info, err := s.Put(ctx, "backups/a.json", strings.NewReader("{}"), core.PutOptions{ContentType: "application/json", Metadata: meta})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	meta["ledger"] = "changed"
	if info.Size != 2 || info.Checksum == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.Put(ctx, "backups/a.json", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	got, rc, err := s.Get(ctx, "backups/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "{}" || got.Metadata["ledger"] != "main" {
		t.Fatalf("stored object aliased caller data: %q %v", b, got.Metadata)
	}
	if _, err := s.Put(ctx, "other/b", strings.NewReader("b"), core.PutOptions{}); err != nil {
		t.Fatal(err)
	}
	list, _ := s.List(ctx, "backups/")
	if len(list) != 1 || list[0].Key != "backups/a.json" {
		t.Fatalf("unexpected list %+v", list)
	}
	if ok, _ := s.Delete(ctx, "backups/a.json"); !ok {
		t.Fatalf("expected delete to report existing key")
	}
	if ok, _ := s.Delete(ctx, "backups/a.json"); ok {
		t.Fatalf("second delete should report missing key")
	}
	if _, err := s.Head(ctx, "backups/a.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := s.Get(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
