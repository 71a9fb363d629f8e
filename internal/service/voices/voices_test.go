package voices_test

import (
	"testing"

	"github.com/voxdesk/client/internal/service/voices"
	"github.com/voxdesk/client/internal/store"
)

func TestAssignAndLookup(t *testing.T) {
	a := voices.Load(store.NewMemoryStore())

	a.Assign("proc-1", "en_male_glen")
	got, ok := a.Lookup("proc-1")
	if !ok || got != "en_male_glen" {
		t.Fatalf("lookup: got %q ok=%v", got, ok)
	}

	if _, ok := a.Lookup("proc-2"); ok {
		t.Fatal("expected miss for unassigned session")
	}
}

func TestAssignmentsPersist(t *testing.T) {
	st := store.NewMemoryStore()

	a := voices.Load(st)
	a.Assign("proc-1", "en_female_skye")
	a.Assign("proc-2", "en_male_corey")
	a.Remove("proc-2")

	reloaded := voices.Load(st)
	if _, ok := reloaded.Lookup("proc-2"); ok {
		t.Fatal("removed assignment survived reload")
	}
	got, ok := reloaded.Lookup("proc-1")
	if !ok || got != "en_female_skye" {
		t.Fatalf("lookup after reload: got %q ok=%v", got, ok)
	}
}

func TestLoadDiscardsCorruptedValue(t *testing.T) {
	st := store.NewMemoryStore()
	if err := st.Set(store.VoiceAssignmentsKey, "{nope"); err != nil {
		t.Fatalf("Set err: %v", err)
	}

	a := voices.Load(st)
	if all := a.All(); len(all) != 0 {
		t.Fatalf("expected empty map after corruption, got %v", all)
	}
}
