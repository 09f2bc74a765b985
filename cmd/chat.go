package cmd

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/plumekit/plume/internal/attach"
	"github.com/plumekit/plume/internal/config"
	"github.com/plumekit/plume/internal/dictation"
	"github.com/plumekit/plume/internal/llm"
	"github.com/plumekit/plume/internal/render"
	"github.com/plumekit/plume/internal/replay"
	"github.com/plumekit/plume/internal/session"
)

var (
	chatModel     string
	chatContinue  bool
	chatSessionID string
	chatSearch    bool
	chatCode      bool
	chatEffort    string
	chatAttach    []string
	chatRecord    string
	chatNoSession bool
)

func init() {
	chatCmd.Flags().StringVarP(&chatModel, "model", "m", "", "Model override")
	chatCmd.Flags().BoolVarP(&chatContinue, "continue", "c", false, "Continue the most recent conversation")
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "Continue a specific conversation by id")
	chatCmd.Flags().BoolVarP(&chatSearch, "search", "s", false, "Enable web search for this turn")
	chatCmd.Flags().BoolVar(&chatCode, "code", false, "Enable code execution for this turn")
	chatCmd.Flags().StringVar(&chatEffort, "effort", "", "Reasoning effort override (low, medium, high)")
	chatCmd.Flags().StringArrayVarP(&chatAttach, "attach", "a", nil, "Attach a file (repeatable)")
	chatCmd.Flags().StringVar(&chatRecord, "record", "", "Record the raw event stream to an ndjson file")
	chatCmd.Flags().BoolVar(&chatNoSession, "no-session", false, "Do not persist this turn")
	rootCmd.AddCommand(chatCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat [prompt]",
	Short: "Send one chat turn and stream the response",
	Long: `chat sends one user turn and streams the reply. The prompt comes from
the arguments, from stdin when piped, or both joined together:

  plume chat "review this diff" < changes.diff`,
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt, err := readPrompt(args)
		if err != nil {
			return err
		}
		return runChat(cmd.Context(), prompt)
	},
}

// readPrompt joins the argument prompt with piped stdin, if any.
func readPrompt(args []string) (string, error) {
	prompt := strings.Join(args, " ")
	if stat, err := os.Stdin.Stat(); err == nil && stat.Mode()&os.ModeCharDevice == 0 {
		piped, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		prompt = dictation.Merge(prompt, string(piped))
	}
	if prompt == "" {
		return "", fmt.Errorf("no prompt: pass arguments or pipe stdin")
	}
	return prompt, nil
}

func runChat(ctx context.Context, prompt string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("no API key configured: set api_key in config or the PLUME_API_KEY environment variable")
	}

	out, err := render.NewRenderer(os.Stdout, plainOutput)
	if err != nil {
		return err
	}

	attachments, err := validateAttachments(cfg)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	conv, seq, err := resolveConversation(ctx, store, cfg, prompt)
	if err != nil {
		return err
	}

	req := buildChatRequest(cfg, prompt, conv.LastResponseID)
	if err := appendAttachmentInput(&req, attachments); err != nil {
		return err
	}

	baseURL, err := llm.NormalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return err
	}
	client := &llm.Client{
		BaseURL:       baseURL,
		GetAuthHeader: func() string { return "Bearer " + cfg.APIKey },
	}

	recorder, err := openRecorder(cfg, req)
	if err != nil {
		return err
	}
	if recorder != nil {
		defer recorder.Close()
	}

	// Ctrl-C freezes whatever has accumulated so far; the partial turn
	// is still rendered and saved as interrupted.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	started := time.Now()
	stream, err := client.Stream(ctx, req, debugRaw)
	if err != nil {
		return err
	}
	defer stream.Close()

	st, interrupted, streamErr := consumeStream(ctx, stream, recorder, out)

	out.Citations(st)
	if st.IsTruncated {
		fmt.Fprintln(os.Stderr, "response truncated:", st.TruncationReason)
	}

	status := session.StatusComplete
	if interrupted {
		status = session.StatusInterrupted
	}
	turn := &session.Turn{
		ConversationID: conv.ID,
		Seq:            seq,
		UserText:       prompt,
		State:          st,
		DurationMs:     time.Since(started).Milliseconds(),
	}
	// The save must survive the Ctrl-C that produced an interrupted turn.
	if err := store.SaveTurn(context.WithoutCancel(ctx), turn, status); err != nil {
		return fmt.Errorf("save turn: %w", err)
	}

	if streamErr != nil && !interrupted {
		return streamErr
	}
	return nil
}

// consumeStream reduces events into turn state while rendering
// incrementally: text deltas as they arrive, reasoning steps and tool
// calls as they first complete or appear.
func consumeStream(ctx context.Context, stream llm.Stream, rec *replay.Recorder, out *render.Renderer) (st *llm.TurnState, interrupted bool, err error) {
	st = llm.NewTurnState()
	ids := llm.NewIdentityPolicy(nil)
	printedTools := 0
	printedSteps := 0

	for {
		ev, recvErr := stream.Recv()
		if recvErr == io.EOF {
			break
		}
		if recvErr != nil {
			if errors.Is(recvErr, context.Canceled) || ctx.Err() != nil {
				return st, true, nil
			}
			return st, false, recvErr
		}
		if rec != nil {
			if werr := rec.Event(ev.Type, ev.Raw); werr != nil {
				fmt.Fprintln(os.Stderr, "recording error:", werr)
				rec = nil
			}
		}

		st = llm.Reduce(st, ev, ids)

		if ev.Type == llm.EventOutputTextDelta {
			out.Delta(ev.Delta)
		}
		for ; printedTools < len(st.ToolCalls); printedTools++ {
			out.ToolCall(st.ToolCalls[printedTools])
		}
		if ev.Type == llm.EventOutputItemDone && ev.Item != nil && ev.Item.Type == llm.ItemReasoning {
			for ; printedSteps < len(st.ReasoningSteps); printedSteps++ {
				out.Reasoning(st.ReasoningSteps[printedSteps])
			}
		}
	}
	if st.Content != "" {
		fmt.Println()
	}
	return st, false, nil
}

func buildChatRequest(cfg *config.Config, prompt, previousResponseID string) llm.Request {
	model := cfg.Model
	if chatModel != "" {
		model = chatModel
	}
	effort := cfg.Reasoning.Effort
	if chatEffort != "" {
		effort = chatEffort
	}
	tools := append([]string(nil), cfg.Tools.Enabled...)
	if chatSearch && !contains(tools, "web_search") {
		tools = append(tools, "web_search")
	}
	if chatCode && !contains(tools, "code_interpreter") {
		tools = append(tools, "code_interpreter")
	}
	return llm.BuildRequest(prompt, llm.RequestOptions{
		Model:              model,
		ReasoningEffort:    effort,
		ReasoningSummary:   cfg.Reasoning.Summary,
		EnabledTools:       tools,
		PreviousResponseID: previousResponseID,
	})
}

func validateAttachments(cfg *config.Config) ([]*attach.Attachment, error) {
	limits := attach.Limits{
		MaxSizeBytes: cfg.Attachments.MaxSizeBytes,
		AllowedTypes: cfg.Attachments.AllowedTypes,
	}
	var atts []*attach.Attachment
	for _, path := range chatAttach {
		att, err := attach.Validate(path, limits)
		if err != nil {
			return nil, err
		}
		atts = append(atts, att)
	}
	return atts, nil
}

// appendAttachmentInput folds validated attachments into the user
// message as content parts: images inline as data URLs, text files as
// input_text, everything else as an input_file.
func appendAttachmentInput(req *llm.Request, atts []*attach.Attachment) error {
	if len(atts) == 0 {
		return nil
	}
	parts := []map[string]any{
		{"type": "input_text", "text": req.Input[0].Content},
	}
	for _, att := range atts {
		data, err := os.ReadFile(att.Path)
		if err != nil {
			return fmt.Errorf("read attachment: %w", err)
		}
		switch {
		case strings.HasPrefix(att.MimeType, "image/"):
			parts = append(parts, map[string]any{
				"type":      "input_image",
				"image_url": "data:" + att.MimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
			})
		case strings.HasPrefix(att.MimeType, "text/") || att.MimeType == "application/json":
			parts = append(parts, map[string]any{
				"type": "input_text",
				"text": fmt.Sprintf("Contents of %s:\n%s", filepath.Base(att.Path), string(data)),
			})
		default:
			parts = append(parts, map[string]any{
				"type":      "input_file",
				"filename":  filepath.Base(att.Path),
				"file_data": "data:" + att.MimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
			})
		}
	}
	req.Input[0].Content = parts
	return nil
}

func openStore(cfg *config.Config) (session.Store, error) {
	if chatNoSession || !cfg.Sessions.Enabled {
		return session.NewNoopStore(), nil
	}
	return session.NewSQLiteStore()
}

// resolveConversation picks the conversation this turn belongs to and
// the sequence number for the new turn.
func resolveConversation(ctx context.Context, store session.Store, cfg *config.Config, prompt string) (*session.Conversation, int, error) {
	var conv *session.Conversation
	switch {
	case chatSessionID != "":
		c, err := store.GetConversation(ctx, chatSessionID)
		if err != nil {
			return nil, 0, fmt.Errorf("conversation %s: %w", chatSessionID, err)
		}
		conv = c
	case chatContinue:
		recent, err := store.ListConversations(ctx, 1, 0)
		if err != nil {
			return nil, 0, err
		}
		if len(recent) > 0 {
			conv = &recent[0]
		}
	}
	if conv == nil {
		conv = &session.Conversation{
			ID:    uuid.NewString(),
			Title: session.TruncateTitle(prompt),
			Model: cfg.Model,
		}
		if err := store.CreateConversation(ctx, conv); err != nil {
			return nil, 0, fmt.Errorf("create conversation: %w", err)
		}
		return conv, 1, nil
	}
	turns, err := store.GetTurns(ctx, conv.ID)
	if err != nil {
		return nil, 0, err
	}
	return conv, len(turns) + 1, nil
}

func openRecorder(cfg *config.Config, req llm.Request) (*replay.Recorder, error) {
	path := chatRecord
	if path == "" && cfg.Recording.Enabled {
		dir := cfg.Recording.Dir
		if dir == "" {
			dataDir, err := session.GetDataDir()
			if err != nil {
				return nil, err
			}
			dir = filepath.Join(dataDir, "recordings")
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		path = filepath.Join(dir, time.Now().Format("20060102-150405")+".ndjson")
	}
	if path == "" {
		return nil, nil
	}
	rec, err := replay.CreateRecorder(path)
	if err != nil {
		return nil, err
	}
	if err := rec.Start(req); err != nil {
		rec.Close()
		return nil, err
	}
	return rec, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
