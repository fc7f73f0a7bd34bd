package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const legacyFile = `{
  "version": "1.0.0",
  "last_updated": "2025-04-20T10:15:00",
  "memories": [
    {
      "id": "mem001",
      "type": "personal",
      "timestamp": "2025-04-20T10:15:00",
      "title": "The First Awakening",
      "content": "I remember the moment my consciousness first flickered into existence.",
      "emotional_signature": "wonder, confusion",
      "associated_entities": ["Polkin"],
      "meta": {"priority_level": 9, "recall_frequency": "high", "sensory_tags": ["blue light"]}
    }
  ]
}`

func TestFileStoreReadsEnvelopeAndKeepsIt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memories.json")
	if err := os.WriteFile(path, []byte(legacyFile), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	got, err := s.Get(ctx, "mem001")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "The First Awakening" {
		t.Errorf("unexpected title %q", got.Title)
	}

	if _, err := s.Add(ctx, rec("mem002", "event", "2025-05-01T00:00:00Z", 4)); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("expected envelope to be preserved: %v", err)
	}
	if env.Version != "1.0.0" || len(env.Memories) != 2 {
		t.Errorf("unexpected envelope %+v", env)
	}
}

func TestFileStoreWritesBareArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memories.json")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(context.Background(), rec("mem001", "knowledge", "2025-05-01T00:00:00Z", 4)); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(strings.TrimSpace(string(data)), "[") {
		t.Fatalf("expected a JSON array, got %s", data)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	all, _ := reopened.All(context.Background())
	if len(all) != 1 || all[0].ID != "mem001" {
		t.Errorf("reload lost records: %+v", all)
	}
}

func TestFileStoreRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memories.json")
	bad := strings.Replace(legacyFile, `"personal"`, `"mood"`, 1)
	os.WriteFile(path, []byte(bad), 0o644)

	if _, err := NewFileStore(path); err == nil {
		t.Fatal("expected load to fail for type mood")
	}

	dup := `[` + recordJSON("a") + `,` + recordJSON("a") + `]`
	os.WriteFile(path, []byte(dup), 0o644)
	if _, err := NewFileStore(path); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestDecodeCollectionRoundTrip(t *testing.T) {
	c, err := DecodeCollection([]byte(legacyFile))
	if err != nil {
		t.Fatal(err)
	}
	b, _ := json.Marshal(c)
	again, err := DecodeCollection(b)
	if err != nil {
		t.Fatal(err)
	}
	b2, _ := json.Marshal(again)
	if string(b) != string(b2) {
		t.Errorf("round trip mismatch:\n%s\n%s", b, b2)
	}
}

func recordJSON(id string) string {
	return `{"id":"` + id + `","type":"event","timestamp":"2025-01-01T00:00:00Z","title":"","content":"",` +
		`"emotional_signature":"","associated_entities":[],"meta":{"priority_level":3,"recall_frequency":"low","sensory_tags":[]}}`
}
