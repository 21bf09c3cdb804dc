package storage

import (
	"testing"
	"time"

	"github.com/Adda-Baaj/dakiya/internal/domain"
)

func TestBoltStoreRecordsNewestFirst(t *testing.T) {
	dir := t.TempDir()
	storeRaw, err := openBolt(dir+"/history.db", Options{TTL: time.Hour, CleanupInterval: time.Hour})
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	base := time.Now().UTC()
	for i, u := range []string{"https://a.example", "https://b.example", "https://c.example"} {
		err := store.Record(domain.Exchange{
			Method:    "GET",
			URL:       u,
			StartedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	recent, err := store.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 exchanges, got %d", len(recent))
	}
	if recent[0].URL != "https://c.example" || recent[1].URL != "https://b.example" {
		t.Fatalf("unexpected order: %s, %s", recent[0].URL, recent[1].URL)
	}
	if recent[0].ID == "" {
		t.Fatalf("expected generated id")
	}

	all, err := store.Recent(0)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected all 3 exchanges, got %d err=%v", len(all), err)
	}
}

func TestBoltStoreExpiresExchanges(t *testing.T) {
	dir := t.TempDir()
	storeRaw, err := openBolt(dir+"/history.db", Options{TTL: time.Second, CleanupInterval: time.Second})
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	if err := store.Record(domain.Exchange{Method: "GET", URL: "https://old.example"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	// Fast-forward cleanup cadence and trigger expiry.
	store.lastCleanup.Store(time.Now().Add(-2 * time.Second).Unix())
	time.Sleep(1100 * time.Millisecond)

	recent, err := store.Recent(0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 0 {
		t.Fatalf("expected expired exchange to be hidden, got %d", len(recent))
	}

	if err := store.Record(domain.Exchange{Method: "GET", URL: "https://new.example"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	recent, err = store.Recent(0)
	if err != nil || len(recent) != 1 || recent[0].URL != "https://new.example" {
		t.Fatalf("expected only the new exchange, got %+v err=%v", recent, err)
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.Record(domain.Exchange{URL: "x"}); err != nil {
		t.Fatalf("noop store Record: %v", err)
	}
	if _, err := NewStore("bbolt", "", Options{}); err == nil {
		t.Fatalf("expected error for bbolt without path")
	}
	if _, err := NewStore("redis", "x", Options{}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}
