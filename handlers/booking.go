package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"agenda-bot/availability"
	"agenda-bot/calendly"
	"agenda-bot/types"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const bookingDaysAhead = 14

var ptWeekdays = map[time.Weekday]string{
	time.Sunday:    "Dom",
	time.Monday:    "Seg",
	time.Tuesday:   "Ter",
	time.Wednesday: "Qua",
	time.Thursday:  "Qui",
	time.Friday:    "Sex",
	time.Saturday:  "Sáb",
}

// HandleAgendar starts the booking flow: sign in, load event types and offer
// the upcoming days.
func (h *Handler) HandleAgendar(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	ctx := context.Background()

	authSess, ok := h.signIn(ctx, chatID)
	if !ok {
		return
	}

	// A fresh booking flow starts from a clean selection.
	h.leaveBookingScreen(chatID)

	eventTypes, err := h.API.GetEventTypes(ctx, authSess.UserURI)
	if err != nil {
		h.Log.Warnw("failed to load event types", "chat_id", chatID, "err", err)
		h.Bot.Send(tgbotapi.NewMessage(chatID, "⚠️ Erro ao carregar dados. Tente novamente."))
		return
	}
	if len(eventTypes) == 0 {
		h.Bot.Send(tgbotapi.NewMessage(chatID, "⚠️ Nenhum tipo de evento disponível para agendamento."))
		return
	}

	h.mu.Lock()
	h.eventTypesCache[chatID] = eventTypes
	h.mu.Unlock()

	// Preselect the first event type; a later step lets the user change it
	// when there is more than one.
	h.Sessions.Get(chatID).SelectEventType(eventTypes[0].URI)

	reply := tgbotapi.NewMessage(chatID, "📅 Passo 1/3: Escolha o dia")
	reply.ReplyMarkup = buildDaysKeyboard()
	h.Bot.Send(reply)
}

func buildDaysKeyboard() tgbotapi.InlineKeyboardMarkup {
	now := time.Now()

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i := 0; i < bookingDaysAhead; i++ {
		day := now.AddDate(0, 0, i)
		label := fmt.Sprintf("%s %s", ptWeekdays[day.Weekday()], day.Format("02/01"))
		btn := tgbotapi.NewInlineKeyboardButtonData(label, "day:"+day.Format("2006-01-02"))
		row = append(row, btn)
		if len(row) == 2 {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (h *Handler) HandleDaySelect(cq *tgbotapi.CallbackQuery, dateStr string) {
	chatID := cq.Message.Chat.ID

	day, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
	if err != nil {
		h.Bot.Request(tgbotapi.NewCallback(cq.ID, "⚠️ Data inválida"))
		return
	}

	h.Sessions.Get(chatID).SelectDay(day)
	h.Bot.Request(tgbotapi.NewCallback(cq.ID, "✅ Dia selecionado"))

	h.mu.Lock()
	eventTypes := h.eventTypesCache[chatID]
	h.mu.Unlock()

	if len(eventTypes) > 1 {
		h.sendEventTypeSelection(chatID, eventTypes)
		return
	}
	h.showSlots(chatID)
}

func (h *Handler) sendEventTypeSelection(chatID int64, eventTypes []types.EventType) {
	selected := h.Sessions.Get(chatID).Selection().EventTypeURI

	var rows [][]tgbotapi.InlineKeyboardButton
	for idx, et := range eventTypes {
		name := et.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		if et.URI == selected {
			name = "✅ " + name
		}
		btn := tgbotapi.NewInlineKeyboardButtonData(name, "evtype:"+strconv.Itoa(idx))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(btn))
	}

	msg := tgbotapi.NewMessage(chatID, "📋 Passo 2/3: Escolha o tipo de evento")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	h.Bot.Send(msg)
}

func (h *Handler) HandleEventTypeSelect(cq *tgbotapi.CallbackQuery, idxStr string) {
	chatID := cq.Message.Chat.ID

	idx, err := strconv.Atoi(idxStr)
	h.mu.Lock()
	eventTypes := h.eventTypesCache[chatID]
	h.mu.Unlock()
	if err != nil || idx < 0 || idx >= len(eventTypes) {
		h.Bot.Request(tgbotapi.NewCallback(cq.ID, "⚠️ Opção inválida"))
		return
	}

	h.Sessions.Get(chatID).SelectEventType(eventTypes[idx].URI)
	h.Bot.Request(tgbotapi.NewCallback(cq.ID, "✅ "+eventTypes[idx].Name))
	h.showSlots(chatID)
}

// showSlots runs the first combined refresh for the current selection, sends
// the slot keyboard and starts the availability poller.
func (h *Handler) showSlots(chatID int64) {
	ctx := context.Background()

	authSess, ok := h.signIn(ctx, chatID)
	if !ok {
		return
	}

	loading, _ := h.Bot.Send(tgbotapi.NewMessage(chatID, "🔄 Buscando horários disponíveis..."))

	events, err := h.Bookings.Refresh(ctx, chatID, authSess.UserURI)
	if err != nil {
		h.Log.Warnw("failed to refresh bookings", "chat_id", chatID, "err", err)
		h.Bot.Send(tgbotapi.NewDeleteMessage(chatID, loading.MessageID))
		h.Bot.Send(tgbotapi.NewMessage(chatID, "⚠️ Erro ao buscar horários disponíveis. Tente novamente."))
		return
	}

	sel := h.Sessions.Get(chatID).Selection()
	slots, err := h.Resolver.Resolve(ctx, sel.Day, sel.EventTypeURI, events)
	h.Bot.Send(tgbotapi.NewDeleteMessage(chatID, loading.MessageID))
	if err != nil {
		if errors.Is(err, availability.ErrSelectionIncomplete) {
			h.Bot.Send(tgbotapi.NewMessage(chatID, "⚠️ Selecione uma data e um tipo de evento."))
			return
		}
		h.Log.Warnw("failed to resolve availability", "chat_id", chatID, "err", err)
		h.Bot.Send(tgbotapi.NewMessage(chatID, "⚠️ Erro ao buscar horários disponíveis. Tente novamente."))
		return
	}

	text := fmt.Sprintf("🕑 Passo 3/3: Escolha o horário\n\n📅 Dia: %s", types.FormatDate(sel.Day))
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = buildSlotsKeyboard(slots, sel.SlotLabel)
	sent, sendErr := h.Bot.Send(msg)
	if sendErr != nil {
		h.Log.Warnw("failed to send slots message", "chat_id", chatID, "err", sendErr)
		return
	}

	h.mu.Lock()
	h.slotsMsgID[chatID] = sent.MessageID
	h.lastSlots[chatID] = slots
	h.mu.Unlock()

	h.startPolling(chatID, authSess.UserURI)
}

// renderSlots replaces the rendered slot list in one edit. A selected label
// that is no longer present simply renders unselected; the session still
// remembers it until the user toggles.
func (h *Handler) renderSlots(chatID int64, slots []types.TimeSlot) {
	sel := h.Sessions.Get(chatID).Selection()

	h.mu.Lock()
	msgID, hasMsg := h.slotsMsgID[chatID]
	if hasMsg && slotsEqual(h.lastSlots[chatID], slots) {
		h.mu.Unlock()
		return
	}
	h.lastSlots[chatID] = slots
	h.mu.Unlock()

	if !hasMsg {
		return
	}

	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, msgID, buildSlotsKeyboard(slots, sel.SlotLabel))
	h.Bot.Send(edit)
}

func slotsEqual(a, b []types.TimeSlot) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Label != b[i].Label {
			return false
		}
	}
	return true
}

func buildSlotsKeyboard(slots []types.TimeSlot, selectedLabel string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	if len(slots) == 0 {
		none := tgbotapi.NewInlineKeyboardButtonData("Nenhum horário disponível para esta data", "noop")
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(none))
	}

	var row []tgbotapi.InlineKeyboardButton
	for _, slot := range slots {
		label := slot.Label
		if slot.Label == selectedLabel {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, "slot:"+slot.Label))
		if len(row) == 3 {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
	}

	refresh := tgbotapi.NewInlineKeyboardButtonData("🔄 Atualizar", "slots_refresh")
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(refresh))

	book := tgbotapi.NewInlineKeyboardButtonData("📌 Agendar", "book")
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(book))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (h *Handler) HandleSlotToggle(cq *tgbotapi.CallbackQuery, label string) {
	chatID := cq.Message.Chat.ID

	h.Sessions.Get(chatID).ToggleSlot(label)
	h.Bot.Request(tgbotapi.NewCallback(cq.ID, "Atualizado"))

	h.mu.Lock()
	slots := h.lastSlots[chatID]
	msgID, hasMsg := h.slotsMsgID[chatID]
	h.mu.Unlock()
	if !hasMsg {
		return
	}

	sel := h.Sessions.Get(chatID).Selection()
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, msgID, buildSlotsKeyboard(slots, sel.SlotLabel))
	h.Bot.Send(edit)
}

// HandleSlotsRefresh is the pull-to-refresh of the slot list. It reuses the
// poller's combined refresh, so an overlap with a timer tick is safe.
func (h *Handler) HandleSlotsRefresh(cq *tgbotapi.CallbackQuery) {
	chatID := cq.Message.Chat.ID

	p := h.pollerFor(chatID)
	if p == nil {
		h.Bot.Request(tgbotapi.NewCallback(cq.ID, "⚠️ Sessão expirada. Use /agendar"))
		return
	}

	h.Bot.Request(tgbotapi.NewCallback(cq.ID, "🔄 Atualizando..."))
	p.RefreshNow(context.Background())
}

func (h *Handler) HandleBook(cq *tgbotapi.CallbackQuery) {
	chatID := cq.Message.Chat.ID

	if _, err := h.Sessions.Get(chatID).Book(); err != nil {
		h.Bot.Request(tgbotapi.NewCallbackWithAlert(cq.ID, "⚠️ Selecione uma data e um horário."))
		return
	}
	h.Bot.Request(tgbotapi.NewCallback(cq.ID, ""))

	confirm := tgbotapi.NewInlineKeyboardButtonData("✅ Confirmar", "book_confirm")
	back := tgbotapi.NewInlineKeyboardButtonData("↩️ Voltar", "book_abort")

	msg := tgbotapi.NewMessage(chatID, "Você será redirecionado para a página do parceiro para concluir o agendamento.")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(confirm, back))
	h.Bot.Send(msg)
}

func (h *Handler) HandleBookConfirm(cq *tgbotapi.CallbackQuery) {
	chatID := cq.Message.Chat.ID
	ctx := context.Background()

	sel, err := h.Sessions.Get(chatID).Book()
	if err != nil {
		h.Bot.Request(tgbotapi.NewCallbackWithAlert(cq.ID, "⚠️ Selecione uma data e um horário."))
		return
	}

	bookingURL, err := h.API.CreateSchedulingLink(ctx, sel.EventTypeURI)
	if err != nil {
		h.Bot.Request(tgbotapi.NewCallback(cq.ID, "Erro"))
		if errors.Is(err, calendly.ErrMalformedResponse) {
			h.Log.Warnw("scheduling link response malformed", "chat_id", chatID, "err", err)
			h.Bot.Send(tgbotapi.NewMessage(chatID, "⚠️ Erro: link de agendamento não encontrado. Tente novamente."))
			return
		}
		h.Log.Warnw("failed to create scheduling link", "chat_id", chatID, "err", err)
		h.Bot.Send(tgbotapi.NewMessage(chatID, "⚠️ Erro ao agendar evento. Tente novamente."))
		return
	}

	h.Bot.Request(tgbotapi.NewCallback(cq.ID, "✅"))
	h.Bot.Send(tgbotapi.NewDeleteMessage(chatID, cq.Message.MessageID))

	text := fmt.Sprintf("✅ Tudo pronto!\n\n📅 %s às %s\n\nConclua o agendamento na página do parceiro:",
		types.FormatDate(sel.Day), sel.SlotLabel)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("🔗 Abrir página de agendamento", bookingURL)),
	)
	h.Bot.Send(msg)

	// Booking hand-off ends the session; the next poll tick must not fire.
	h.leaveBookingScreen(chatID)
}

func (h *Handler) HandleBookAbort(cq *tgbotapi.CallbackQuery) {
	h.Bot.Request(tgbotapi.NewCallback(cq.ID, ""))
	h.Bot.Send(tgbotapi.NewDeleteMessage(cq.Message.Chat.ID, cq.Message.MessageID))
}
