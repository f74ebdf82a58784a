package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"agenda-bot/bookings"
	"agenda-bot/types"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// HandleAgendamentos lists the user's bookings with a cancel action.
func (h *Handler) HandleAgendamentos(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	ctx := context.Background()

	// Opening the bookings screen leaves the booking flow.
	h.leaveBookingScreen(chatID)

	authSess, ok := h.signIn(ctx, chatID)
	if !ok {
		return
	}

	loading, _ := h.Bot.Send(tgbotapi.NewMessage(chatID, "🔄 Carregando agendamentos..."))

	events, err := h.Bookings.Refresh(ctx, chatID, authSess.UserURI)
	h.Bot.Send(tgbotapi.NewDeleteMessage(chatID, loading.MessageID))
	if err != nil {
		h.Log.Warnw("failed to load scheduled events", "chat_id", chatID, "err", err)
		h.Bot.Send(tgbotapi.NewMessage(chatID, "⚠️ Erro ao buscar eventos. Tente novamente."))
		return
	}

	h.mu.Lock()
	h.eventsCache[chatID] = events
	delete(h.selectedEvent, chatID)
	h.mu.Unlock()

	if len(events) == 0 {
		h.Bot.Send(tgbotapi.NewMessage(chatID, "Nenhum evento agendado."))
		return
	}

	reply := tgbotapi.NewMessage(chatID, fmt.Sprintf("📬 Seus agendamentos (%d):\n\nToque em um para selecionar.", len(events)))
	reply.ReplyMarkup = buildEventsKeyboard(events, "")
	h.Bot.Send(reply)
}

func buildEventsKeyboard(events []types.ScheduledEvent, selectedURI string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for idx, ev := range events {
		label := fmt.Sprintf("%s — %s %s", ev.Name, types.FormatDate(ev.StartTime), types.FormatTime(ev.StartTime))
		if len(label) > 50 {
			label = label[:47] + "..."
		}
		if ev.URI == selectedURI {
			label = "✅ " + label
		}
		btn := tgbotapi.NewInlineKeyboardButtonData(label, "evsel:"+strconv.Itoa(idx))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(btn))
	}

	cancel := tgbotapi.NewInlineKeyboardButtonData("🚫 Cancelar agendamento", "ev_cancel")
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(cancel))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// HandleEventSelect toggles which booking is selected for cancellation.
func (h *Handler) HandleEventSelect(cq *tgbotapi.CallbackQuery, idxStr string) {
	chatID := cq.Message.Chat.ID

	idx, err := strconv.Atoi(idxStr)
	h.mu.Lock()
	events := h.eventsCache[chatID]
	if err != nil || idx < 0 || idx >= len(events) {
		h.mu.Unlock()
		h.Bot.Request(tgbotapi.NewCallback(cq.ID, "⚠️ Opção inválida"))
		return
	}
	uri := events[idx].URI
	if h.selectedEvent[chatID] == uri {
		delete(h.selectedEvent, chatID)
		uri = ""
	} else {
		h.selectedEvent[chatID] = uri
	}
	h.mu.Unlock()

	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, cq.Message.MessageID, buildEventsKeyboard(events, uri))
	h.Bot.Send(edit)
	h.Bot.Request(tgbotapi.NewCallback(cq.ID, "Atualizado"))
}

func (h *Handler) HandleCancelRequest(cq *tgbotapi.CallbackQuery) {
	chatID := cq.Message.Chat.ID

	h.mu.Lock()
	selected := h.selectedEvent[chatID]
	h.mu.Unlock()

	if selected == "" {
		h.Bot.Request(tgbotapi.NewCallbackWithAlert(cq.ID, "⚠️ Nenhum evento selecionado para cancelar."))
		return
	}
	h.Bot.Request(tgbotapi.NewCallback(cq.ID, ""))

	confirm := tgbotapi.NewInlineKeyboardButtonData("✅ Confirmar cancelamento", "ev_cancel_confirm")
	back := tgbotapi.NewInlineKeyboardButtonData("↩️ Voltar", "ev_cancel_abort")

	msg := tgbotapi.NewMessage(chatID, "Tem certeza que deseja cancelar este agendamento?")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(confirm, back))
	h.Bot.Send(msg)
}

func (h *Handler) HandleCancelConfirm(cq *tgbotapi.CallbackQuery) {
	chatID := cq.Message.Chat.ID
	ctx := context.Background()

	h.mu.Lock()
	selected := h.selectedEvent[chatID]
	h.mu.Unlock()

	err := h.Bookings.Cancel(ctx, chatID, selected)
	if err != nil {
		h.Bot.Request(tgbotapi.NewCallback(cq.ID, "Erro"))
		switch {
		case errors.Is(err, bookings.ErrNothingSelected):
			h.Bot.Send(tgbotapi.NewMessage(chatID, "⚠️ Nenhum evento selecionado para cancelar."))
		case errors.Is(err, bookings.ErrNotFound):
			h.Bot.Send(tgbotapi.NewMessage(chatID, "⚠️ Agendamento não encontrado. Atualize a lista com /agendamentos."))
		default:
			h.Log.Warnw("failed to cancel booking", "chat_id", chatID, "err", err)
			h.Bot.Send(tgbotapi.NewMessage(chatID, "⚠️ Erro ao cancelar evento. Tente novamente."))
		}
		return
	}

	h.Bot.Request(tgbotapi.NewCallback(cq.ID, "✅"))
	h.Bot.Send(tgbotapi.NewDeleteMessage(chatID, cq.Message.MessageID))

	// Rebuild the list from the optimistically updated snapshot.
	remaining, cacheErr := h.Bookings.Cached(ctx, chatID)
	if cacheErr != nil {
		remaining = nil
	}
	h.mu.Lock()
	h.eventsCache[chatID] = remaining
	delete(h.selectedEvent, chatID)
	h.mu.Unlock()

	h.Bot.Send(tgbotapi.NewMessage(chatID, "✅ Agendamento cancelado com sucesso!"))
	if len(remaining) > 0 {
		reply := tgbotapi.NewMessage(chatID, fmt.Sprintf("📬 Seus agendamentos (%d):", len(remaining)))
		reply.ReplyMarkup = buildEventsKeyboard(remaining, "")
		h.Bot.Send(reply)
	}
}

func (h *Handler) HandleCancelAbort(cq *tgbotapi.CallbackQuery) {
	h.Bot.Request(tgbotapi.NewCallback(cq.ID, ""))
	h.Bot.Send(tgbotapi.NewDeleteMessage(cq.Message.Chat.ID, cq.Message.MessageID))
}
