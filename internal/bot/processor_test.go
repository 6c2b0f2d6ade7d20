package bot

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"

	"github.com/garyellow/travel-linebot-go/internal/config"
	"github.com/garyellow/travel-linebot-go/internal/lineutil"
	"github.com/garyellow/travel-linebot-go/internal/logger"
	"github.com/garyellow/travel-linebot-go/internal/places"
	"github.com/garyellow/travel-linebot-go/internal/storage"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	mu          sync.Mutex
	text        []places.Place
	nearby      []places.Place
	textCalls   []string
	nearbyCalls []string
}

func (f *fakeSearcher) TextSearch(_ context.Context, query string) []places.Place {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textCalls = append(f.textCalls, query)
	return f.text
}

func (f *fakeSearcher) NearbySearch(_ context.Context, _, _ float64, keyword string) []places.Place {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nearbyCalls = append(f.nearbyCalls, keyword)
	return f.nearby
}

type panickingSearcher struct{}

func (panickingSearcher) TextSearch(context.Context, string) []places.Place {
	panic("provider bug")
}

func (panickingSearcher) NearbySearch(context.Context, float64, float64, string) []places.Place {
	panic("provider bug")
}

type fakeAnswerer struct {
	prompts []string
}

func (f *fakeAnswerer) Generate(_ context.Context, prompt string) string {
	f.prompts = append(f.prompts, prompt)
	return "**Answer** for " + prompt
}

type fakeTransitions struct {
	mu    sync.Mutex
	calls [][3]string
}

func (f *fakeTransitions) RecordTransition(from, to, event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, [3]string{from, to, event})
}

// failingStates wraps a StateStore and fails on demand.
type failingStates struct {
	storage.StateStore
	failLoad, failSave bool
}

func (f *failingStates) LoadState(ctx context.Context, userID string) (storage.ConversationState, error) {
	if f.failLoad {
		return storage.ConversationState{}, errors.New("load failed")
	}
	return f.StateStore.LoadState(ctx, userID)
}

func (f *failingStates) SaveState(ctx context.Context, s storage.ConversationState) error {
	if f.failSave {
		return errors.New("save failed")
	}
	return f.StateStore.SaveState(ctx, s)
}

type harness struct {
	p           *Processor
	db          *storage.DB
	states      *failingStates
	search      *fakeSearcher
	answers     *fakeAnswerer
	transitions *fakeTransitions
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := storage.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	h := &harness{
		db:          db,
		states:      &failingStates{StateStore: db},
		search:      &fakeSearcher{},
		answers:     &fakeAnswerer{},
		transitions: &fakeTransitions{},
	}
	h.p = NewProcessor(ProcessorConfig{
		Users:     db,
		States:    h.states,
		History:   db,
		Searches:  db,
		Search:    h.search,
		Answers:   h.answers,
		Logger:    logger.NewWithWriter("error", io.Discard),
		Metrics:   h.transitions,
		BotConfig: config.DefaultBotConfig(),
		// reverse order permutation, deterministic
		Perm: func(n int) []int {
			out := make([]int, n)
			for i := range out {
				out[i] = n - 1 - i
			}
			return out
		},
	})
	return h
}

func (h *harness) state(t *testing.T, userID string) storage.ConversationState {
	t.Helper()
	s, err := h.db.LoadState(context.Background(), userID)
	require.NoError(t, err)
	return s
}

func (h *harness) setState(t *testing.T, s storage.ConversationState) {
	t.Helper()
	require.NoError(t, h.db.SaveState(context.Background(), s))
}

func onlyText(t *testing.T, r Reply) string {
	t.Helper()
	require.Len(t, r.Messages, 1)
	msg, ok := r.Messages[0].(*messaging_api.TextMessage)
	require.True(t, ok, "expected text message, got %T", r.Messages[0])
	return msg.Text
}

func onlyFlex(t *testing.T, r Reply) *messaging_api.FlexMessage {
	t.Helper()
	require.Len(t, r.Messages, 1)
	msg, ok := r.Messages[0].(*messaging_api.FlexMessage)
	require.True(t, ok, "expected flex message, got %T", r.Messages[0])
	return msg
}

func TestProcessor_PlaceNameFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.search.text = []places.Place{{Name: "Wat Arun", PlaceID: "p1"}, {Name: "Wat Pho"}}

	r := h.p.Handle(ctx, NewMenuEvent("u1", lineutil.ActionSearchPlace))
	assert.Equal(t, msgAskPlaceName, onlyText(t, r))
	assert.Equal(t, storage.ModeAwaitingPlaceName, h.state(t, "u1").Mode)

	r = h.p.Handle(ctx, NewTextEvent("u1", "  Wat   Arun "))
	assert.Equal(t, "Result: Wat Arun", onlyFlex(t, r).AltText)
	assert.Equal(t, storage.ModeNone, r.Mode)
	assert.Equal(t, storage.ModeNone, h.state(t, "u1").Mode)
	assert.Equal(t, []string{"Wat Arun"}, h.search.textCalls)

	logs, err := h.db.RecentSearches(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "Wat Arun", logs[0].Query)
}

func TestProcessor_QueryIsNormalized(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setState(t, storage.ConversationState{UserID: "u1", Mode: storage.ModeAwaitingPlaceName})

	h.p.Handle(ctx, NewTextEvent("u1", "\tＷａｔ　Ａｒｕｎ\n"))
	assert.Equal(t, []string{"Wat Arun"}, h.search.textCalls)
}

func TestProcessor_PanicBecomesApology(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.p.search = panickingSearcher{}
	h.setState(t, storage.ConversationState{UserID: "u1", Mode: storage.ModeAwaitingPlaceName})

	var r Reply
	require.NotPanics(t, func() { r = h.p.Handle(ctx, NewTextEvent("u1", "Wat Arun")) })
	assert.Equal(t, msgTemporaryProblem, onlyText(t, r))
	assert.Equal(t, storage.ModeAwaitingPlaceName, r.Mode)
	assert.Equal(t, storage.ModeAwaitingPlaceName, h.state(t, "u1").Mode)
	assert.Empty(t, h.transitions.calls)
	assert.Zero(t, h.p.locks.size())

	h.setState(t, storage.ConversationState{
		UserID: "u1", Mode: storage.ModeAwaitingCategory,
		PendingLocation: &storage.Location{Lat: 13.75, Lng: 100.5},
	})
	require.NotPanics(t, func() { r = h.p.Handle(ctx, NewTextEvent("u1", "restaurant")) })
	assert.Equal(t, msgTemporaryProblem, onlyText(t, r))
	st := h.state(t, "u1")
	assert.Equal(t, storage.ModeAwaitingCategory, st.Mode)
	require.NotNil(t, st.PendingLocation)

	// The user is not stuck behind the lock.
	r = h.p.Handle(ctx, NewMenuEvent("u1", lineutil.ActionHelp))
	require.Len(t, r.Messages, 1)
}

func TestProcessor_PlaceNotFoundKeepsState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setState(t, storage.ConversationState{UserID: "u1", Mode: storage.ModeAwaitingPlaceName})

	r := h.p.Handle(ctx, NewTextEvent("u1", "nowhere"))
	assert.Equal(t, msgPlaceNotFound, onlyText(t, r))
	assert.Equal(t, storage.ModeAwaitingPlaceName, h.state(t, "u1").Mode)

	logs, err := h.db.RecentSearches(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestProcessor_NearbyFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, n := range []string{"p0", "p1", "p2", "p3", "p4", "p5", "p6"} {
		h.search.nearby = append(h.search.nearby, places.Place{Name: n})
	}

	r := h.p.Handle(ctx, NewMenuEvent("u1", lineutil.ActionNearbyPlaces))
	assert.Equal(t, msgAskLocation, onlyText(t, r))

	r = h.p.Handle(ctx, NewTextEvent("u1", "restaurant"))
	assert.Equal(t, msgNeedLocation, onlyText(t, r))
	assert.Equal(t, storage.ModeAwaitingLocation, h.state(t, "u1").Mode)
	assert.Empty(t, h.search.nearbyCalls)

	r = h.p.Handle(ctx, NewLocationEvent("u1", 13.7563, 100.5018))
	assert.Equal(t, msgAskCategory, onlyText(t, r))
	st := h.state(t, "u1")
	assert.Equal(t, storage.ModeAwaitingCategory, st.Mode)
	require.NotNil(t, st.PendingLocation)

	// a second location overwrites the first
	h.p.Handle(ctx, NewLocationEvent("u1", 18.7883, 98.9853))
	st = h.state(t, "u1")
	assert.Equal(t, 18.7883, st.PendingLocation.Lat)

	r = h.p.Handle(ctx, NewTextEvent("u1", "temple"))
	msg := onlyFlex(t, r)
	assert.Equal(t, "Nearby Places", msg.AltText)
	carousel := msg.Contents.(*messaging_api.FlexCarousel)
	require.Len(t, carousel.Contents, 5)
	// reverse permutation picks p6..p2, kept in provider order
	first := carousel.Contents[0].Body.Contents[0].(*messaging_api.FlexText)
	last := carousel.Contents[4].Body.Contents[0].(*messaging_api.FlexText)
	assert.Equal(t, "p2", first.Text)
	assert.Equal(t, "p6", last.Text)

	st = h.state(t, "u1")
	assert.Equal(t, storage.ModeNone, st.Mode)
	assert.Nil(t, st.PendingLocation)

	logs, err := h.db.RecentSearches(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "Nearby: temple @18.7883,98.9853", logs[0].Query)
}

func TestProcessor_NoneNearbyKeepsLocation(t *testing.T) {
	h := newHarness(t)
	loc := storage.Location{Lat: 1, Lng: 2}
	h.setState(t, storage.ConversationState{UserID: "u1", Mode: storage.ModeAwaitingCategory, PendingLocation: &loc})

	r := h.p.Handle(context.Background(), NewTextEvent("u1", "zoo"))
	assert.Equal(t, msgNoneNearby, onlyText(t, r))
	st := h.state(t, "u1")
	assert.Equal(t, storage.ModeAwaitingCategory, st.Mode)
	require.NotNil(t, st.PendingLocation)
	assert.Equal(t, loc, *st.PendingLocation)
}

func TestProcessor_FreeTextAnswer(t *testing.T) {
	h := newHarness(t)
	r := h.p.Handle(context.Background(), NewTextEvent("u1", "best time to visit Phuket?"))

	msg := onlyFlex(t, r)
	assert.Equal(t, "Gemini Reply", msg.AltText)
	body := msg.Contents.(*messaging_api.FlexBubble).Body
	assert.Equal(t, "Answer for best time to visit Phuket?", body.Contents[3].(*messaging_api.FlexText).Text)
	assert.Equal(t, []string{"best time to visit Phuket?"}, h.answers.prompts)
	assert.Equal(t, storage.ModeNone, r.Mode)
}

func TestProcessor_LocationWithoutFlow(t *testing.T) {
	h := newHarness(t)
	r := h.p.Handle(context.Background(), NewLocationEvent("u1", 1, 1))
	assert.Equal(t, msgUseMenuFirst, onlyText(t, r))
	assert.Equal(t, storage.ModeNone, h.state(t, "u1").Mode)
}

func TestProcessor_HelpInAnyState(t *testing.T) {
	for _, mode := range []storage.Mode{storage.ModeNone, storage.ModeAwaitingPlaceName, storage.ModeAwaitingLocation} {
		t.Run(string(mode), func(t *testing.T) {
			h := newHarness(t)
			h.setState(t, storage.ConversationState{UserID: "u1", Mode: mode})

			r := h.p.Handle(context.Background(), NewMenuEvent("u1", lineutil.ActionHelp))
			require.Len(t, r.Messages, 1)
			msg := r.Messages[0].(*messaging_api.TextMessage)
			assert.Equal(t, lineutil.HelpText, msg.Text)
			assert.NotNil(t, msg.QuickReply)
			assert.Equal(t, mode, h.state(t, "u1").Mode)
		})
	}
}

func TestProcessor_MenuDuringFlowIsUnmatched(t *testing.T) {
	h := newHarness(t)
	h.setState(t, storage.ConversationState{UserID: "u1", Mode: storage.ModeAwaitingPlaceName})

	r := h.p.Handle(context.Background(), NewMenuEvent("u1", lineutil.ActionNearbyPlaces))
	assert.Equal(t, msgFinishPlaceName, onlyText(t, r))
	assert.Equal(t, storage.ModeAwaitingPlaceName, h.state(t, "u1").Mode)
}

func TestProcessor_MalformedEvents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.Equal(t, msgNotUnderstood, onlyText(t, h.p.Handle(ctx, NewTextEvent("u1", "   "))))
	assert.Equal(t, msgNotUnderstood, onlyText(t, h.p.Handle(ctx, NewMenuEvent("u1", "dance"))))

	h.setState(t, storage.ConversationState{UserID: "u1", Mode: storage.ModeAwaitingLocation})
	assert.Equal(t, msgFinishNearbyPending, onlyText(t, h.p.Handle(ctx, NewLocationEvent("u1", 999, 0))))
	assert.Equal(t, storage.ModeAwaitingLocation, h.state(t, "u1").Mode)
	assert.Empty(t, h.answers.prompts)
}

func TestProcessor_StateFailures(t *testing.T) {
	t.Run("load", func(t *testing.T) {
		h := newHarness(t)
		h.states.failLoad = true
		r := h.p.Handle(context.Background(), NewMenuEvent("u1", lineutil.ActionSearchPlace))
		assert.Equal(t, msgTemporaryProblem, onlyText(t, r))
		assert.Empty(t, h.transitions.calls)
	})
	t.Run("save", func(t *testing.T) {
		h := newHarness(t)
		h.states.failSave = true
		r := h.p.Handle(context.Background(), NewMenuEvent("u1", lineutil.ActionSearchPlace))
		assert.Equal(t, msgTemporaryProblem, onlyText(t, r))
		assert.Equal(t, storage.ModeNone, r.Mode)
		assert.Equal(t, storage.ModeNone, h.state(t, "u1").Mode)
		assert.Empty(t, h.transitions.calls)
	})
}

func TestProcessor_SideEffects(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ev := NewTextEvent("u1", "hello")
	ev.DisplayName = "Somchai"

	h.p.Handle(ctx, ev)

	user, err := h.db.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Somchai", user.DisplayName)

	entries, err := h.db.RecentHistory(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "text", entries[0].EventKind)
	assert.JSONEq(t, `{"text":"hello"}`, string(entries[0].Payload))

	require.Len(t, h.transitions.calls, 1)
	assert.Equal(t, [3]string{"NONE", "NONE", "text"}, h.transitions.calls[0])
}

func TestProcessor_ConcurrentSameUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.search.text = []places.Place{{Name: "X"}}

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.p.Handle(ctx, NewMenuEvent("u1", lineutil.ActionSearchPlace))
		}()
	}
	wg.Wait()

	assert.Equal(t, storage.ModeAwaitingPlaceName, h.state(t, "u1").Mode)
	assert.Zero(t, h.p.locks.size())
}

func TestPickSubset(t *testing.T) {
	t.Parallel()
	ps := []places.Place{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	assert.Equal(t, ps, pickSubset(ps, 5, nil))

	identity := func(n int) []int {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	got := pickSubset(ps, 2, identity)
	assert.Equal(t, []places.Place{{Name: "a"}, {Name: "b"}}, got)
}

func TestPickSubset_RandomPerm(t *testing.T) {
	t.Parallel()
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	ps := make([]places.Place, len(names))
	for i, n := range names {
		ps[i] = places.Place{Name: n}
	}

	for range 200 {
		got := pickSubset(ps, lineutil.MaxCarouselPlaces, rand.Perm)
		require.Len(t, got, lineutil.MaxCarouselPlaces)

		last := -1
		for _, p := range got {
			idx := slices.Index(names, p.Name)
			require.GreaterOrEqual(t, idx, 0, "%q is not from the input", p.Name)
			require.Greater(t, idx, last, "subset %v is out of input order or repeats", got)
			last = idx
		}
	}
}

func TestProcessor_Follow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	r := h.p.Follow(ctx, "u9", "Nok")
	require.Len(t, r.Messages, 1)
	assert.Equal(t, lineutil.HelpText, r.Messages[0].(*messaging_api.TextMessage).Text)

	user, err := h.db.GetUser(ctx, "u9")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Nok", user.DisplayName)

	entries, err := h.db.RecentHistory(ctx, "u9", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "follow", entries[0].EventKind)
}

func TestProcessor_UnsupportedEvent(t *testing.T) {
	h := newHarness(t)
	h.setState(t, storage.ConversationState{UserID: "u1", Mode: storage.ModeAwaitingPlaceName})

	r := h.p.Handle(context.Background(), NewUnsupportedEvent("u1", "sticker"))
	assert.Equal(t, msgFinishPlaceName, onlyText(t, r))
	assert.Equal(t, storage.ModeAwaitingPlaceName, h.state(t, "u1").Mode)
}
