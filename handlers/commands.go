package handlers

import (
	"context"
	"sync"
	"time"

	"agenda-bot/auth"
	"agenda-bot/availability"
	"agenda-bot/bookings"
	"agenda-bot/calendly"
	"agenda-bot/poller"
	"agenda-bot/session"
	"agenda-bot/types"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type Handler struct {
	Bot      *tgbotapi.BotAPI
	API      *calendly.Client
	Auth     auth.Provider
	Sessions *session.Store
	Bookings *bookings.Manager
	Resolver *availability.Resolver
	Log      *zap.SugaredLogger

	pollInterval time.Duration

	mu      sync.Mutex
	pollers map[int64]*poller.Poller
	// Per-chat UI bookkeeping. Callback data is limited to 64 bytes, so
	// keyboards reference event types and bookings by index into these
	// caches instead of by URI.
	slotsMsgID      map[int64]int
	lastSlots       map[int64][]types.TimeSlot
	eventTypesCache map[int64][]types.EventType
	eventsCache     map[int64][]types.ScheduledEvent
	selectedEvent   map[int64]string
}

func New(bot *tgbotapi.BotAPI, api *calendly.Client, authProvider auth.Provider, sessions *session.Store,
	bookingsMgr *bookings.Manager, resolver *availability.Resolver, pollInterval time.Duration, log *zap.SugaredLogger) *Handler {
	return &Handler{
		Bot:             bot,
		API:             api,
		Auth:            authProvider,
		Sessions:        sessions,
		Bookings:        bookingsMgr,
		Resolver:        resolver,
		Log:             log,
		pollInterval:    pollInterval,
		pollers:         make(map[int64]*poller.Poller),
		slotsMsgID:      make(map[int64]int),
		lastSlots:       make(map[int64][]types.TimeSlot),
		eventTypesCache: make(map[int64][]types.EventType),
		eventsCache:     make(map[int64][]types.ScheduledEvent),
		selectedEvent:   make(map[int64]string),
	}
}

func (h *Handler) HandleStart(msg *tgbotapi.Message) {
	// Going back to the menu leaves the booking screen: the session is
	// reset and the availability poller torn down.
	h.leaveBookingScreen(msg.Chat.ID)

	text := "👋 Olá! Eu sou o assistente de agendamentos.\n\n" +
		"Comandos disponíveis:\n" +
		"/agendar — marcar um novo horário\n" +
		"/agendamentos — ver e cancelar seus agendamentos\n" +
		"/start — voltar ao menu"
	h.Bot.Send(tgbotapi.NewMessage(msg.Chat.ID, text))
}

func (h *Handler) HandleUnknown(msg *tgbotapi.Message) {
	h.Bot.Send(tgbotapi.NewMessage(msg.Chat.ID, "Comando desconhecido. Tente /start"))
}

// signIn resolves the authenticated account; the booking core only ever sees
// the opaque user URI it returns.
func (h *Handler) signIn(ctx context.Context, chatID int64) (*auth.Session, bool) {
	sess, err := h.Auth.SignIn(ctx)
	if err != nil {
		h.Log.Warnw("sign in failed", "chat_id", chatID, "err", err)
		h.Bot.Send(tgbotapi.NewMessage(chatID, "⚠️ Erro ao carregar dados. Tente novamente."))
		return nil, false
	}
	return sess, true
}

// leaveBookingScreen clears the chat's selection state and stops its poller.
func (h *Handler) leaveBookingScreen(chatID int64) {
	h.stopPolling(chatID)
	h.Sessions.Reset(chatID)

	h.mu.Lock()
	delete(h.slotsMsgID, chatID)
	delete(h.lastSlots, chatID)
	delete(h.eventTypesCache, chatID)
	h.mu.Unlock()
}

func (h *Handler) startPolling(chatID int64, userURI string) {
	h.mu.Lock()
	if _, ok := h.pollers[chatID]; ok {
		h.mu.Unlock()
		return
	}

	sess := h.Sessions.Get(chatID)
	p := poller.New(h.pollInterval,
		func(ctx context.Context) ([]types.TimeSlot, error) {
			// The events fetch must finish before slots are recomputed
			// so a stale event list never leaks into the slot view.
			events, err := h.Bookings.Refresh(ctx, chatID, userURI)
			if err != nil {
				return nil, err
			}
			sel := sess.Selection()
			return h.Resolver.Resolve(ctx, sel.Day, sel.EventTypeURI, events)
		},
		func(slots []types.TimeSlot) {
			h.renderSlots(chatID, slots)
		},
		h.Log,
	)
	h.pollers[chatID] = p
	h.mu.Unlock()

	p.Start()
	h.Log.Infow("polling started", "chat_id", chatID, "interval", h.pollInterval)
}

func (h *Handler) stopPolling(chatID int64) {
	h.mu.Lock()
	p, ok := h.pollers[chatID]
	if ok {
		delete(h.pollers, chatID)
	}
	h.mu.Unlock()

	if ok {
		p.Stop()
		h.Log.Infow("polling stopped", "chat_id", chatID)
	}
}

func (h *Handler) pollerFor(chatID int64) *poller.Poller {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pollers[chatID]
}
