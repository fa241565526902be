package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"svodka-bot/internal/config"
	"svodka-bot/internal/llm"
	"svodka-bot/internal/logging"
	"svodka-bot/internal/memory"
	"svodka-bot/internal/store"
	"svodka-bot/internal/telegram"
)

const (
	replyReady       = "Бот готов к работе."
	replyReset       = "История и сводка очищены."
	replyUnavailable = "Сервис временно недоступен, попробуйте позже."
	replyEmpty       = "Не удалось получить ответ."
)

// transport is the command surface the bot needs from Telegram.
type transport interface {
	GetUpdates(offset int64, timeout int) ([]telegram.Update, error)
	SendMessage(chatID int64, text string) error
}

// generator is the main LLM reply collaborator.
type generator interface {
	Generate(ctx context.Context, messages []memory.Message) (string, error)
}

type bot struct {
	cfg       config.Config
	transport transport
	llm       generator
	manager   *memory.Manager
	logger    *zap.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	database, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal("open db", zap.Error(err))
	}
	defer database.Close()

	if err := store.InitSchema(database); err != nil {
		logger.Fatal("init schema", zap.Error(err))
	}

	client := llm.NewClient(
		cfg.OpenRouterAPIKey,
		cfg.OpenRouterBaseURL,
		cfg.OpenRouterModel,
		cfg.EnableRetry,
		time.Duration(cfg.LLMTimeoutSeconds)*time.Second,
		logger,
	)

	manager := memory.NewManager(
		memory.ManagerOptions{
			WindowSize:      cfg.WindowSize,
			SystemPrompt:    cfg.SystemPrompt,
			SummaryLanguage: cfg.SummaryLanguage,
		},
		client,
		&store.MessageLog{DB: database},
		&store.SummaryStore{DB: database},
		&store.MetaStore{DB: database},
		logger,
	)

	b := &bot{
		cfg: cfg,
		transport: telegram.NewClient(
			cfg.TelegramAPIBase,
			time.Duration(cfg.PollTimeout+10)*time.Second,
		),
		llm:     client,
		manager: manager,
		logger:  logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("bot running",
		zap.String("model", cfg.OpenRouterModel),
		zap.Int("window_size", cfg.WindowSize))

	if err := b.run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("bot stopped", zap.Error(err))
	}
	logger.Info("bot stopped")
}

// run polls Telegram until the context is cancelled. Updates from
// different chats are handled concurrently; updates from the same chat
// keep their order.
func (b *bot) run(ctx context.Context) error {
	var offset int64
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		updates, err := b.transport.GetUpdates(offset, b.cfg.PollTimeout)
		if err != nil {
			b.logger.Warn("getUpdates failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(b.cfg.SleepSeconds) * time.Second):
			}
			continue
		}

		byChat := make(map[int64][]telegram.Update)
		var order []int64
		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			if upd.Message == nil || upd.Message.Text == nil || *upd.Message.Text == "" {
				continue
			}
			chatID := upd.Message.Chat.ID
			if _, seen := byChat[chatID]; !seen {
				order = append(order, chatID)
			}
			byChat[chatID] = append(byChat[chatID], upd)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(b.cfg.Concurrency)
		for _, chatID := range order {
			batch := byChat[chatID]
			g.Go(func() error {
				for _, upd := range batch {
					b.handleUpdate(gctx, upd)
				}
				return nil
			})
		}
		// Handlers report their own failures; nothing to propagate here.
		_ = g.Wait()
	}
}

func (b *bot) handleUpdate(ctx context.Context, upd telegram.Update) {
	chatID := upd.Message.Chat.ID
	text := strings.TrimSpace(*upd.Message.Text)

	switch {
	case text == "/start":
		b.send(chatID, replyReady)
	case text == "/status":
		b.handleStatus(chatID)
	case text == "/reset":
		b.handleReset(chatID)
	case strings.HasPrefix(text, "/"):
		// Unknown command, ignore.
	default:
		b.handleTurn(ctx, chatID, text)
	}
}

func (b *bot) handleStatus(chatID int64) {
	st, err := b.manager.Status(chatID)
	if err != nil {
		b.logger.Error("status failed", zap.Int64("chat_id", chatID), zap.Error(err))
		b.send(chatID, replyUnavailable)
		return
	}
	has := "нет"
	if st.HasSummary {
		has = "есть"
	}
	b.send(chatID, fmt.Sprintf("Сообщений: %d. Сводка: %s. Окно: %d.", st.MessageCount, has, st.WindowSize))
}

func (b *bot) handleReset(chatID int64) {
	if err := b.manager.Reset(chatID); err != nil {
		b.logger.Error("reset failed", zap.Int64("chat_id", chatID), zap.Error(err))
		b.send(chatID, replyUnavailable)
		return
	}
	b.send(chatID, replyReset)
}

// handleTurn runs one full request/commit cycle: build the prompt, call
// the LLM, answer the user, then persist the turn. The reply goes out
// before the commit so summarization never delays the user.
func (b *bot) handleTurn(ctx context.Context, chatID int64, text string) {
	logger := b.logger.With(
		zap.String("turn_id", uuid.NewString()),
		zap.Int64("chat_id", chatID),
	)

	prompt, commit, err := b.manager.HandleTurn(chatID, text)
	if err != nil {
		logger.Error("turn failed", zap.Error(err))
		b.send(chatID, replyUnavailable)
		return
	}

	reply, err := b.llm.Generate(ctx, prompt)
	if err != nil {
		logger.Error("llm reply failed", zap.Error(err))
		b.send(chatID, replyUnavailable)
		return
	}
	if reply == "" {
		reply = replyEmpty
	}

	b.send(chatID, reply)

	if err := commit(ctx, reply); err != nil {
		logger.Error("commit failed", zap.Error(err))
	}
}

func (b *bot) send(chatID int64, text string) {
	if err := b.transport.SendMessage(chatID, text); err != nil {
		b.logger.Warn("sendMessage failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
