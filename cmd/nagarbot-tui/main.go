// Command nagarbot-tui is a terminal chat client running the assistant in
// process, for trying the conversation without the web client.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"nagarbot/internal/catalog"
	"nagarbot/internal/chat"
	"nagarbot/internal/config"
	"nagarbot/internal/dialogue"
	"nagarbot/internal/notify"
	"nagarbot/internal/session"
	"nagarbot/internal/storage"
	"nagarbot/internal/translate"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	// Logs would draw over the alt screen.
	logFile, err := tea.LogToFile("nagarbot-tui.log", "")
	if err != nil {
		return err
	}
	defer logFile.Close()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	ctx := context.Background()
	var translator notify.Translator
	if tr, err := translate.NewTranslator(ctx, cfg.TranslateAPIKey, cfg.HandoffLanguage); err != nil {
		log.Printf("⚠️  Translation disabled: %v", err)
	} else if tr != nil {
		translator = tr
		defer tr.Close()
	}

	transcript := chat.NewLog()
	repo := storage.New()
	ctrl := dialogue.NewController(transcript, repo, session.NewStore(), cat,
		dialogue.WithPacer(dialogue.SleepPacer{}),
		dialogue.WithDelays(dialogue.Delays{
			Typing:      cfg.TypingDelay,
			QuickAction: cfg.QuickActionDelay,
		}),
		dialogue.WithRecentLimit(cfg.RecentLimit),
	)
	ctrl.Greet()

	runner := dialogue.NewRunner(ctrl, cfg.TurnQueueSize, nil)
	defer runner.Close()

	model := NewModel(runner, transcript, repo, notify.NewComposer(cfg.ContactPhone, translator))
	p := tea.NewProgram(model, tea.WithAltScreen())
	transcript.OnAppend(func(chat.Message) { p.Send(logUpdatedMsg{}) })
	_, err = p.Run()
	return err
}
