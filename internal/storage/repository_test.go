package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	domerrors "github.com/garyellow/travel-linebot-go/internal/errors"
)

func TestTouchUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)

	if err := db.TouchUser(ctx, "U1", "Alice"); err != nil {
		t.Fatalf("TouchUser() failed: %v", err)
	}
	first, _ := db.GetUser(ctx, "U1")
	if first == nil || first.DisplayName != "Alice" {
		t.Fatalf("GetUser() = %+v", first)
	}

	time.Sleep(5 * time.Millisecond)
	// Empty display name keeps the stored one.
	if err := db.TouchUser(ctx, "U1", ""); err != nil {
		t.Fatalf("TouchUser() failed: %v", err)
	}
	second, _ := db.GetUser(ctx, "U1")
	if second.DisplayName != "Alice" {
		t.Errorf("DisplayName = %q, want Alice", second.DisplayName)
	}
	if !second.LastSeen.After(first.LastSeen) {
		t.Errorf("LastSeen not advanced: %v -> %v", first.LastSeen, second.LastSeen)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Error("CreatedAt must not change on touch")
	}

	if err := db.TouchUser(ctx, "U1", "Alice B."); err != nil {
		t.Fatal(err)
	}
	third, _ := db.GetUser(ctx, "U1")
	if third.DisplayName != "Alice B." {
		t.Errorf("DisplayName = %q, want overwrite", third.DisplayName)
	}
}

func TestTouchUser_EmptyID(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	err := db.TouchUser(context.Background(), "", "x")
	if !errors.Is(err, domerrors.ErrInvalidInput) {
		t.Errorf("TouchUser(\"\") error = %v, want ErrInvalidInput", err)
	}
	var ve *domerrors.ValidationError
	if !errors.As(err, &ve) || ve.Field != "user_id" {
		t.Errorf("TouchUser(\"\") error = %v, want ValidationError on user_id", err)
	}
}

func TestStorageFailureIsTagged(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}
	_, err := db.LoadState(context.Background(), "U1")
	if !errors.Is(err, domerrors.ErrStorage) {
		t.Errorf("LoadState() on closed db error = %v, want ErrStorage", err)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	u, err := db.GetUser(context.Background(), "nobody")
	if err != nil || u != nil {
		t.Errorf("GetUser() = %+v, %v; want nil, nil", u, err)
	}
}

func TestLoadState_Default(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	state, err := db.LoadState(context.Background(), "U1")
	if err != nil {
		t.Fatalf("LoadState() failed: %v", err)
	}
	if state.Mode != ModeNone || state.PendingLocation != nil || state.UserID != "U1" {
		t.Errorf("LoadState() = %+v", state)
	}
}

func TestSaveState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)
	loc := &Location{Lat: 18.7883, Lng: 98.9853}

	tests := []struct {
		name     string
		in       ConversationState
		wantMode Mode
		wantLoc  *Location
	}{
		{"awaiting place", ConversationState{UserID: "U1", Mode: ModeAwaitingPlaceName}, ModeAwaitingPlaceName, nil},
		{"category keeps location", ConversationState{UserID: "U1", Mode: ModeAwaitingCategory, PendingLocation: loc}, ModeAwaitingCategory, loc},
		{"location dropped outside category", ConversationState{UserID: "U1", Mode: ModeAwaitingLocation, PendingLocation: loc}, ModeAwaitingLocation, nil},
		{"back to none", ConversationState{UserID: "U1", Mode: ModeNone, PendingLocation: loc}, ModeNone, nil},
	}
	for _, tt := range tests {
		if err := db.SaveState(ctx, tt.in); err != nil {
			t.Fatalf("%s: SaveState() failed: %v", tt.name, err)
		}
		got, err := db.LoadState(ctx, "U1")
		if err != nil {
			t.Fatalf("%s: LoadState() failed: %v", tt.name, err)
		}
		if got.Mode != tt.wantMode {
			t.Errorf("%s: Mode = %s, want %s", tt.name, got.Mode, tt.wantMode)
		}
		switch {
		case tt.wantLoc == nil && got.PendingLocation != nil:
			t.Errorf("%s: PendingLocation = %+v, want nil", tt.name, got.PendingLocation)
		case tt.wantLoc != nil && (got.PendingLocation == nil || *got.PendingLocation != *tt.wantLoc):
			t.Errorf("%s: PendingLocation = %+v, want %+v", tt.name, got.PendingLocation, tt.wantLoc)
		}
	}
}

func TestSaveState_InvalidModeStoredAsNone(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)

	if err := db.SaveState(ctx, ConversationState{UserID: "U1", Mode: "BOGUS"}); err != nil {
		t.Fatalf("SaveState() failed: %v", err)
	}
	got, _ := db.LoadState(ctx, "U1")
	if got.Mode != ModeNone {
		t.Errorf("Mode = %s, want NONE", got.Mode)
	}
	if err := db.SaveState(ctx, ConversationState{Mode: ModeNone}); !errors.Is(err, domerrors.ErrInvalidInput) {
		t.Errorf("SaveState without user = %v", err)
	}
}

func TestSaveState_ConcurrentLastWriteWins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Go(func() {
			mode := ModeAwaitingPlaceName
			if i%2 == 0 {
				mode = ModeAwaitingLocation
			}
			if err := db.SaveState(ctx, ConversationState{UserID: "U1", Mode: mode}); err != nil {
				t.Errorf("SaveState() failed: %v", err)
			}
		})
	}
	wg.Wait()

	got, err := db.LoadState(ctx, "U1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Mode != ModeAwaitingPlaceName && got.Mode != ModeAwaitingLocation {
		t.Errorf("Mode = %s, want one of the written modes", got.Mode)
	}
}

func TestHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)
	old := time.Now().Add(-48 * time.Hour)

	entries := []HistoryEntry{
		{UserID: "U1", EventKind: "text", Payload: json.RawMessage(`{"text":"hello"}`), CreatedAt: old},
		{UserID: "U1", EventKind: "location", Payload: json.RawMessage(`{"lat":1,"lng":2}`)},
		{UserID: "U1", EventKind: "menu"},
		{UserID: "U2", EventKind: "text", Payload: json.RawMessage(`{"text":"hi"}`)},
	}
	for _, e := range entries {
		if err := db.AppendHistory(ctx, e); err != nil {
			t.Fatalf("AppendHistory() failed: %v", err)
		}
	}

	got, err := db.RecentHistory(ctx, "U1", 10)
	if err != nil {
		t.Fatalf("RecentHistory() failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("RecentHistory() len = %d, want 3", len(got))
	}
	if got[2].EventKind != "text" || string(got[2].Payload) != `{"text":"hello"}` {
		t.Errorf("oldest entry = %+v", got[2])
	}
	if string(got[0].Payload) != "{}" {
		t.Errorf("empty payload stored as %s, want {}", got[0].Payload)
	}

	deleted, err := db.DeleteHistoryBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteHistoryBefore() failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
}

func TestAppendHistory_InvalidPayload(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	err := db.AppendHistory(context.Background(), HistoryEntry{UserID: "U1", EventKind: "text", Payload: json.RawMessage("{oops")})
	if !errors.Is(err, domerrors.ErrInvalidInput) {
		t.Errorf("AppendHistory() error = %v, want ErrInvalidInput", err)
	}
}

func TestSearchLogs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)

	_ = db.RecordSearch(ctx, "U1", "Wat Arun")
	_ = db.RecordSearch(ctx, "U1", "Nearby: cafe @13.7563,100.5018")
	_ = db.RecordSearch(ctx, "U2", "Doi Suthep")

	logs, err := db.RecentSearches(ctx, "U1", 1)
	if err != nil {
		t.Fatalf("RecentSearches() failed: %v", err)
	}
	if len(logs) != 1 || logs[0].Query != "Nearby: cafe @13.7563,100.5018" {
		t.Errorf("RecentSearches() = %+v", logs)
	}
}
