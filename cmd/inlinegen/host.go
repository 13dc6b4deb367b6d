package main

import (
	"fmt"
	"os"

	"log/slog"

	"github.com/runbooklabs/inlinegen/pkg/config"
	"github.com/runbooklabs/inlinegen/pkg/controller"
	"github.com/runbooklabs/inlinegen/pkg/document"
	"github.com/runbooklabs/inlinegen/pkg/genstate"
	"github.com/runbooklabs/inlinegen/pkg/notify"
	"github.com/runbooklabs/inlinegen/pkg/rpc"
	"github.com/runbooklabs/inlinegen/pkg/session"
	"github.com/runbooklabs/inlinegen/pkg/telemetry"
	"github.com/runbooklabs/inlinegen/pkg/tools"
)

// runHost wires a memory document, a session service and a controller
// behind the stdio command protocol and serves until stdin closes.
func runHost(cfg *config.Config, mode, runbookID string) error {
	var svc session.Service
	switch mode {
	case "remote":
		if cfg.Generator.Endpoint == "" {
			return fmt.Errorf("remote mode needs a generator endpoint (config or -endpoint)")
		}
		svc = session.NewRemote(cfg.Generator.Endpoint)
	case "mock":
		svc = session.NewMock()
	default:
		return fmt.Errorf("invalid mode %q (remote|mock)", mode)
	}

	doc := document.NewMemoryWithBlocks([]document.Block{
		{Type: "paragraph", Content: ""},
	})
	if first, ok := doc.FirstBlockID(); ok {
		doc.SetCursorToEnd(first)
	}

	notifications := notify.NewChannel(32)
	tracker := telemetry.NewTracker()

	registry := tools.NewRegistry()
	registry.Register(documentTool(doc))
	registry.Register(blockTypesTool(cfg.Controller.ExecutableBlockTypes))

	ctrl := controller.New(controller.Options{
		Document:     doc,
		Service:      svc,
		Notifier:     notifications,
		Tracker:      tracker,
		Tools:        tools.NewRunner(registry, cfg.Controller.AutoApprovedTools),
		Controller:   cfg.Controller,
		RunbookID:    runbookID,
		Model:        cfg.Generator.Model,
		Username:     cfg.Generator.Username,
		ChargeTarget: cfg.Generator.ChargeTarget,
		Endpoint:     cfg.Generator.Endpoint,
		BlockInfos:   blockInfos(cfg.Controller.ExecutableBlockTypes),
	})
	defer ctrl.Close()

	server := rpc.NewServer(os.Stdin, os.Stdout, rpc.Handlers{
		Key: func(req rpc.KeyRequest) (bool, error) {
			consumed := ctrl.HandleKey(controller.Key{
				Name:    req.Name,
				Primary: req.Primary,
				Shift:   req.Shift,
				Alt:     req.Alt,
			})
			return consumed, nil
		},
		StartGeneration: func(req rpc.StartGenerationRequest) error {
			ctrl.StartGeneration(req.BlockID, req.ReplacePromptBlock)
			return nil
		},
		CancelGeneration: func() error {
			ctrl.CancelGeneration()
			return nil
		},
		StartEdit: func() error {
			ctrl.StartEdit()
			return nil
		},
		UpdateEditPrompt: func(text string) error {
			ctrl.UpdateEditPrompt(text)
			return nil
		},
		CancelEdit: func() error {
			ctrl.CancelEdit()
			return nil
		},
		SubmitEdit: func() error {
			ctrl.SubmitEdit()
			return nil
		},
		GetState: func() (rpc.StateInfo, error) {
			return stateInfo(ctrl.State()), nil
		},
		GetDocument: func() (any, error) {
			return doc.Blocks(), nil
		},
		SetBlockText: func(blockID, text string) error {
			return doc.SetText(blockID, text)
		},
	})

	// Forward toasts and telemetry to the host as pushes.
	go func() {
		for n := range notifications.C() {
			server.PushNotification(n)
		}
	}()
	tracker.SetSink(func(ev telemetry.Event) {
		server.PushTelemetry(ev)
	})

	slog.Info("inline generation host ready", "mode", mode)
	return server.Run()
}

// stateInfo flattens the state union for the wire.
func stateInfo(s genstate.State) rpc.StateInfo {
	info := rpc.StateInfo{State: s.Name()}
	switch st := s.(type) {
	case genstate.Generating:
		info.SessionID = st.SessionID
	case genstate.PostGeneration:
		info.SessionID = st.SessionID
		info.GeneratedBlockIDs = st.GeneratedBlockIDs
	case genstate.Editing:
		info.SessionID = st.SessionID
		info.GeneratedBlockIDs = st.GeneratedBlockIDs
		info.EditPrompt = st.EditPrompt
	case genstate.SubmittingEdit:
		info.SessionID = st.SessionID
		info.GeneratedBlockIDs = st.GeneratedBlockIDs
		info.EditPrompt = st.EditPrompt
	}
	return info
}

func blockInfos(types []string) []session.BlockInfo {
	infos := []session.BlockInfo{
		{Type: "paragraph", Description: "plain text"},
		{Type: "heading", Description: "section heading"},
	}
	for _, t := range types {
		infos = append(infos, session.BlockInfo{Type: t})
	}
	return infos
}
