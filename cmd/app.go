package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/scribelabs/scribe/pkg/api"
	"github.com/scribelabs/scribe/pkg/chat"
	"github.com/scribelabs/scribe/pkg/config"
	"github.com/scribelabs/scribe/pkg/logger"
	"github.com/scribelabs/scribe/pkg/orchestrator"
	"github.com/scribelabs/scribe/pkg/tools"
)

// AppConfig contains everything needed to run the application.
type AppConfig struct {
	Config       *config.Config
	DirectPrompt string
	AssistantID  string
}

// RunApplication wires the client, tool registry, store, and orchestrator,
// then runs either a single prompt or the interactive loop.
func RunApplication(appCfg *AppConfig) error {
	defer logger.Close()

	cfg := appCfg.Config
	assistantID := appCfg.AssistantID
	if assistantID == "" {
		assistantID = cfg.Assistant.ID
	}
	if assistantID == "" {
		return fmt.Errorf("no assistant id configured; set assistant.id or pass --assistant")
	}

	client := api.NewClient(api.Options{
		BaseURL:   cfg.Server.URL,
		APIKey:    cfg.Server.APIKey,
		Timeout:   cfg.Server.Timeout,
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
	})

	registry := tools.NewRegistry()
	if cfg.Tools.Geolocation.Enabled {
		if err := registry.Register(tools.NewGeolocationTool(cfg.Tools.Geolocation.URL)); err != nil {
			return err
		}
	}
	if err := registry.Register(tools.NewClockTool()); err != nil {
		return err
	}
	logger.Info("registered client tools: %v", registry.Names())

	store := chat.NewStore()
	orch := orchestrator.New(orchestrator.Options{
		Client:         client,
		Store:          store,
		Tools:          registry,
		AssistantID:    assistantID,
		AssistantTools: cfg.Assistant.Tools,
		OnTurnComplete: func(threadID string) {
			logger.Debug("turn complete on thread %s", threadID)
		},
	})

	// Ctrl-C cancels the in-flight turn instead of killing the process;
	// a second Ctrl-C with no turn running exits the loop naturally.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			orch.Cancel()
		}
	}()

	renderer := newRenderer(os.Stdout)

	if appCfg.DirectPrompt != "" {
		return runTurn(orch, store, renderer, appCfg.DirectPrompt, cfg.Tools.Disabled)
	}
	return runInteractive(orch, store, renderer, cfg.Tools.Disabled)
}

func runTurn(orch *orchestrator.Orchestrator, store *chat.Store, r *renderer, prompt string, disabled []string) error {
	res, err := orch.SendMessage(context.Background(), prompt, orchestrator.SendOptions{
		DisabledTools: disabled,
	})
	if err != nil {
		return err
	}
	if res.Aborted {
		r.PrintNotice("turn cancelled")
	}
	r.PrintLastTurn(store.Get())
	return nil
}

func runInteractive(orch *orchestrator.Orchestrator, store *chat.Store, r *renderer, disabled []string) error {
	scanner := bufio.NewScanner(os.Stdin)
	r.PrintNotice("scribe ready, empty line to exit")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			break
		}
		if err := runTurn(orch, store, r, line, disabled); err != nil {
			return err
		}
	}
	return scanner.Err()
}
