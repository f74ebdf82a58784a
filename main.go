package main

import (
	"context"
	"log"
	"strings"
	"time"

	"agenda-bot/auth"
	"agenda-bot/availability"
	"agenda-bot/bookings"
	"agenda-bot/calendly"
	"agenda-bot/config"
	"agenda-bot/handlers"
	"agenda-bot/session"
	"agenda-bot/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(cfg *config.Config) *zap.SugaredLogger {
	var zc zap.Config
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	logger, err := zc.Build()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return logger.Sugar()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	// All times shown to the user are local; slot labels are formatted in
	// this zone as well.
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warnw("failed to load timezone, using UTC", "timezone", cfg.Timezone, "err", err)
	} else {
		time.Local = loc
		logger.Infow("timezone set", "timezone", cfg.Timezone, "now", time.Now().Format("2006-01-02 15:04:05 MST"))
	}

	if cfg.TelegramToken == "" {
		logger.Fatal("❌ TELEGRAM_BOT_TOKEN not set")
	}
	if cfg.CalendlyToken == "" {
		logger.Fatal("❌ CALENDLY_API_TOKEN not set")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		logger.Fatalw("failed to connect to Telegram", "err", err)
	}
	logger.Infow("🤖 authorized", "account", bot.Self.UserName)

	store := storage.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := store.Ping(context.Background()); err != nil {
		logger.Fatalw("redis connection failed", "err", err)
	}

	api := calendly.New(cfg.CalendlyBaseURL, cfg.CalendlyToken, logger)
	authProvider := auth.NewTokenProvider(api, store, logger)
	sessions := session.NewStore()
	bookingsMgr := bookings.New(api, store, logger)
	resolver := availability.New(api, logger)

	handler := handlers.New(bot, api, authProvider, sessions, bookingsMgr, resolver, cfg.PollInterval(), logger)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	logger.Info("✅ bot is running")

	for update := range updates {
		if update.Message != nil {
			handleMessage(handler, update.Message)
		} else if update.CallbackQuery != nil {
			handleCallback(handler, update.CallbackQuery)
		}
	}
}

func handleMessage(h *handlers.Handler, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		h.HandleStart(msg)

	case "agendar":
		h.HandleAgendar(msg)

	case "agendamentos":
		h.HandleAgendamentos(msg)

	default:
		h.HandleUnknown(msg)
	}
}

func handleCallback(h *handlers.Handler, cq *tgbotapi.CallbackQuery) {
	if cq == nil || cq.Message == nil {
		return
	}

	data := cq.Data

	switch {
	// Booking flow: day, event type, slot.
	case strings.HasPrefix(data, "day:"):
		h.HandleDaySelect(cq, strings.TrimPrefix(data, "day:"))

	case strings.HasPrefix(data, "evtype:"):
		h.HandleEventTypeSelect(cq, strings.TrimPrefix(data, "evtype:"))

	case strings.HasPrefix(data, "slot:"):
		h.HandleSlotToggle(cq, strings.TrimPrefix(data, "slot:"))

	case data == "slots_refresh":
		h.HandleSlotsRefresh(cq)

	case data == "book":
		h.HandleBook(cq)

	case data == "book_confirm":
		h.HandleBookConfirm(cq)

	case data == "book_abort":
		h.HandleBookAbort(cq)

	// Bookings list and cancellation.
	case strings.HasPrefix(data, "evsel:"):
		h.HandleEventSelect(cq, strings.TrimPrefix(data, "evsel:"))

	case data == "ev_cancel":
		h.HandleCancelRequest(cq)

	case data == "ev_cancel_confirm":
		h.HandleCancelConfirm(cq)

	case data == "ev_cancel_abort":
		h.HandleCancelAbort(cq)

	case data == "noop":
		h.Bot.Request(tgbotapi.NewCallback(cq.ID, ""))

	default:
		h.Bot.Request(tgbotapi.NewCallback(cq.ID, "Comando desconhecido"))
	}
}
