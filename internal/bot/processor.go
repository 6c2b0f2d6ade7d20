package bot

import (
	"context"
	"math/rand/v2"
	"runtime/debug"
	"slices"
	"strconv"
	"time"

	"github.com/garyellow/travel-linebot-go/internal/config"
	"github.com/garyellow/travel-linebot-go/internal/ctxutil"
	domerrors "github.com/garyellow/travel-linebot-go/internal/errors"
	"github.com/garyellow/travel-linebot-go/internal/lineutil"
	"github.com/garyellow/travel-linebot-go/internal/logger"
	"github.com/garyellow/travel-linebot-go/internal/places"
	"github.com/garyellow/travel-linebot-go/internal/sentry"
	"github.com/garyellow/travel-linebot-go/internal/storage"
	"github.com/garyellow/travel-linebot-go/internal/stringutil"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Searcher finds places. Both calls return an empty slice on failure.
type Searcher interface {
	TextSearch(ctx context.Context, query string) []places.Place
	NearbySearch(ctx context.Context, lat, lng float64, keyword string) []places.Place
}

// Answerer produces free-text answers. Generate never fails.
type Answerer interface {
	Generate(ctx context.Context, prompt string) string
}

// Recorder receives transition metrics. *metrics.Metrics satisfies it.
type Recorder interface {
	RecordTransition(from, to, event string)
}

// Reply is the outcome of one event: the messages to send and the mode the
// user is left in.
type Reply struct {
	Messages []messaging_api.MessageInterface
	Mode     storage.Mode
}

// Processor runs the per-user conversation state machine.
type Processor struct {
	users    storage.UserRepository
	states   storage.StateStore
	history  storage.HistoryRepository
	searches storage.SearchLogRepository
	search   Searcher
	answers  Answerer
	logger   *logger.Logger
	metrics  Recorder
	locks    *keyedMutex
	perm     func(n int) []int

	maxNearby       int
	answerMaxLength int
}

// ProcessorConfig holds configuration for creating a new Processor.
type ProcessorConfig struct {
	Users     storage.UserRepository
	States    storage.StateStore
	History   storage.HistoryRepository
	Searches  storage.SearchLogRepository
	Search    Searcher
	Answers   Answerer
	Logger    *logger.Logger
	Metrics   Recorder // optional
	BotConfig config.BotConfig

	// Perm returns a random permutation of [0,n). Defaults to rand.Perm.
	Perm func(n int) []int
}

// NewProcessor creates a new event processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	perm := cfg.Perm
	if perm == nil {
		perm = rand.Perm
	}
	log := cfg.Logger
	if log == nil {
		log = logger.New("info")
	}
	maxNearby := cfg.BotConfig.MaxNearbyResults
	if maxNearby <= 0 {
		maxNearby = lineutil.MaxCarouselPlaces
	}
	return &Processor{
		users:           cfg.Users,
		states:          cfg.States,
		history:         cfg.History,
		searches:        cfg.Searches,
		search:          cfg.Search,
		answers:         cfg.Answers,
		logger:          log.WithModule("bot"),
		metrics:         cfg.Metrics,
		locks:           newKeyedMutex(),
		perm:            perm,
		maxNearby:       min(maxNearby, lineutil.MaxCarouselPlaces),
		answerMaxLength: cfg.BotConfig.AnswerMaxLength,
	}
}

// Handle processes one event and always returns exactly one reply. Events
// of the same user are serialized.
func (p *Processor) Handle(ctx context.Context, ev Event) (reply Reply) {
	ctx = ctxutil.WithUserID(ctx, ev.UserID)
	unlock := p.locks.Lock(ev.UserID)
	defer unlock()

	mode := storage.ModeNone
	defer p.recoverReply(ctx, &reply, &mode)

	start := time.Now()
	log := p.logger.WithField("event", string(ev.Kind))

	if err := p.users.TouchUser(ctx, ev.UserID, ev.DisplayName); err != nil {
		log.WithError(err).WarnContext(ctx, "Failed to touch user")
	}
	p.appendHistory(ctx, ev)

	state, err := p.states.LoadState(ctx, ev.UserID)
	if err != nil {
		err = domerrors.NewWrapper("conversation", "load_state").Wrap(err, msgTemporaryProblem)
		log.WithError(err).ErrorContext(ctx, "Failed to load conversation state")
		return Reply{Messages: text(domerrors.GetUserMessage(err)), Mode: storage.ModeNone}
	}
	state.UserID = ev.UserID
	state = state.Normalize()
	mode = state.Mode

	next, msgs := p.transition(ctx, state, ev)
	next.UserID = ev.UserID
	next = next.Normalize()

	if changed(state, next) {
		if err := p.states.SaveState(ctx, next); err != nil {
			err = domerrors.NewWrapper("conversation", "save_state").Wrap(err, msgTemporaryProblem)
			log.WithError(err).ErrorContext(ctx, "Failed to save conversation state")
			return Reply{Messages: text(domerrors.GetUserMessage(err)), Mode: state.Mode}
		}
	}

	if p.metrics != nil {
		p.metrics.RecordTransition(string(state.Mode), string(next.Mode), string(ev.Kind))
	}
	log.WithField("from", state.Mode).
		WithField("to", next.Mode).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		DebugContext(ctx, "Event handled")

	return Reply{Messages: msgs, Mode: next.Mode}
}

// Follow records a new or returning follower and greets them with the help
// text. The conversation state is not touched.
func (p *Processor) Follow(ctx context.Context, userID, displayName string) (reply Reply) {
	ctx = ctxutil.WithUserID(ctx, userID)
	unlock := p.locks.Lock(userID)
	defer unlock()

	mode := storage.ModeNone
	defer p.recoverReply(ctx, &reply, &mode)

	if err := p.users.TouchUser(ctx, userID, displayName); err != nil {
		p.logger.WithError(err).WarnContext(ctx, "Failed to touch user")
	}
	p.appendHistory(ctx, Event{Kind: KindFollow, UserID: userID})
	p.logger.InfoContext(ctx, "New user followed the bot")

	return Reply{Messages: []messaging_api.MessageInterface{lineutil.Help()}, Mode: storage.ModeNone}
}

// recoverReply turns a panic into the apology reply. Nothing is saved for
// the event.
func (p *Processor) recoverReply(ctx context.Context, reply *Reply, mode *storage.Mode) {
	r := recover()
	if r == nil {
		return
	}
	p.logger.WithField("panic", r).
		WithField("stack", string(debug.Stack())).
		ErrorContext(ctx, "Event handling panicked")
	sentry.RecoverWithContext(ctx, r)
	*reply = Reply{Messages: text(msgTemporaryProblem), Mode: *mode}
}

func (p *Processor) transition(ctx context.Context, state storage.ConversationState, ev Event) (storage.ConversationState, []messaging_api.MessageInterface) {
	switch ev.Kind {
	case KindMenu:
		return p.onMenu(state, ev.Action)
	case KindText:
		query := stringutil.NormalizeQuery(ev.Text)
		if query == "" {
			return state, p.reminder(state)
		}
		return p.onText(ctx, state, query)
	case KindLocation:
		if !validLocation(ev.Location) {
			return state, p.reminder(state)
		}
		return p.onLocation(state, ev.Location)
	}
	return state, p.reminder(state)
}

func (p *Processor) onMenu(state storage.ConversationState, action string) (storage.ConversationState, []messaging_api.MessageInterface) {
	switch action {
	case lineutil.ActionHelp:
		return state, []messaging_api.MessageInterface{lineutil.Help()}
	case lineutil.ActionSearchPlace:
		if state.Mode == storage.ModeNone {
			return withMode(state, storage.ModeAwaitingPlaceName), text(msgAskPlaceName)
		}
	case lineutil.ActionNearbyPlaces:
		if state.Mode == storage.ModeNone {
			return withMode(state, storage.ModeAwaitingLocation), text(msgAskLocation)
		}
	}
	return state, p.reminder(state)
}

func (p *Processor) onText(ctx context.Context, state storage.ConversationState, query string) (storage.ConversationState, []messaging_api.MessageInterface) {
	switch state.Mode {
	case storage.ModeNone:
		answer := p.answers.Generate(ctx, query)
		return state, []messaging_api.MessageInterface{lineutil.AnswerCard(query, answer, p.answerMaxLength)}

	case storage.ModeAwaitingPlaceName:
		results := p.search.TextSearch(ctx, query)
		if len(results) == 0 {
			return state, text(msgPlaceNotFound)
		}
		p.recordSearch(ctx, state.UserID, query)
		return withMode(state, storage.ModeNone), []messaging_api.MessageInterface{lineutil.PlaceCard(results[0])}

	case storage.ModeAwaitingLocation:
		return state, text(msgNeedLocation)

	case storage.ModeAwaitingCategory:
		loc := state.PendingLocation
		if loc == nil {
			return withMode(state, storage.ModeAwaitingLocation), text(msgNeedLocation)
		}
		results := p.search.NearbySearch(ctx, loc.Lat, loc.Lng, query)
		if len(results) == 0 {
			return state, text(msgNoneNearby)
		}
		p.recordSearch(ctx, state.UserID, nearbyLogLine(query, *loc))
		picked := pickSubset(results, p.maxNearby, p.perm)
		return withMode(state, storage.ModeNone), []messaging_api.MessageInterface{lineutil.Carousel(picked)}
	}
	return state, p.reminder(state)
}

func (p *Processor) onLocation(state storage.ConversationState, loc storage.Location) (storage.ConversationState, []messaging_api.MessageInterface) {
	switch state.Mode {
	case storage.ModeNone:
		return state, text(msgUseMenuFirst)
	case storage.ModeAwaitingLocation, storage.ModeAwaitingCategory:
		next := withMode(state, storage.ModeAwaitingCategory)
		next.PendingLocation = &loc
		return next, text(msgAskCategory)
	}
	return state, p.reminder(state)
}

// reminder answers unmatched events with the step the user is in.
func (p *Processor) reminder(state storage.ConversationState) []messaging_api.MessageInterface {
	switch state.Mode {
	case storage.ModeAwaitingPlaceName:
		return text(msgFinishPlaceName)
	case storage.ModeAwaitingLocation:
		return text(msgFinishNearbyPending)
	case storage.ModeAwaitingCategory:
		return text(msgFinishCategory)
	}
	return text(msgNotUnderstood)
}

func (p *Processor) appendHistory(ctx context.Context, ev Event) {
	err := p.history.AppendHistory(ctx, storage.HistoryEntry{
		UserID:    ev.UserID,
		EventKind: string(ev.Kind),
		Payload:   ev.historyPayload(),
	})
	if err != nil {
		p.logger.WithError(err).WarnContext(ctx, "Failed to append history")
	}
}

func (p *Processor) recordSearch(ctx context.Context, userID, query string) {
	if err := p.searches.RecordSearch(ctx, userID, query); err != nil {
		p.logger.WithError(err).WarnContext(ctx, "Failed to record search")
	}
}

// nearbyLogLine formats "Nearby: <category> @lat,lng".
func nearbyLogLine(category string, loc storage.Location) string {
	return "Nearby: " + category + " @" +
		strconv.FormatFloat(loc.Lat, 'f', -1, 64) + "," +
		strconv.FormatFloat(loc.Lng, 'f', -1, 64)
}

// pickSubset returns up to n random entries of ps, kept in their original
// order. With len(ps) <= n every entry is returned.
func pickSubset(ps []places.Place, n int, perm func(int) []int) []places.Place {
	if len(ps) <= n {
		return ps
	}
	idx := perm(len(ps))[:n]
	slices.Sort(idx)
	out := make([]places.Place, 0, n)
	for _, i := range idx {
		out = append(out, ps[i])
	}
	return out
}

func withMode(state storage.ConversationState, mode storage.Mode) storage.ConversationState {
	state.Mode = mode
	if mode != storage.ModeAwaitingCategory {
		state.PendingLocation = nil
	}
	return state
}

func changed(a, b storage.ConversationState) bool {
	if a.Mode != b.Mode {
		return true
	}
	switch {
	case a.PendingLocation == nil && b.PendingLocation == nil:
		return false
	case a.PendingLocation == nil || b.PendingLocation == nil:
		return true
	}
	return *a.PendingLocation != *b.PendingLocation
}

func text(s string) []messaging_api.MessageInterface {
	return []messaging_api.MessageInterface{lineutil.Text(s)}
}
