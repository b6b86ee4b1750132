package document

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/inkwell-ai/inkwell/internal/backend"
	"github.com/inkwell-ai/inkwell/internal/config"
	"github.com/inkwell-ai/inkwell/internal/convo"
	"github.com/inkwell-ai/inkwell/internal/events"
	"github.com/inkwell-ai/inkwell/internal/tagparse"
	"github.com/inkwell-ai/inkwell/internal/tools"
	"github.com/inkwell-ai/inkwell/internal/usage"
	"github.com/inkwell-ai/inkwell/internal/vault"
)

// promptMod frames the conversation when an all-mode block asks for a
// document rewrite instead of an answer.
const promptMod = "You will be passed a document and some instructions to modify this document. Please reply strictly with the text of the new document (no surrounding xml, no narration).\n"

// processBlock resolves one ai! block. A block without a reply! marker
// is settled and comes back unchanged; anything else is answered, and
// on failure the block is rewritten with an inline error (or re-armed
// when retry_on_error is set) so the rest of the file still processes.
func (p *Processor) processBlock(ctx context.Context, block string, fctx *fileContext, option string) string {
	_, matches := tagparse.Process(block, nil, nil)
	armed := false
	for _, m := range matches {
		if m.Name == "reply" {
			armed = true
			break
		}
	}
	if !armed {
		return wrapAI(option, block)
	}

	initial := block
	stripped, _ := tagparse.Process(block, map[string]tagparse.ReplaceFunc{
		"reply": tagparse.Remove,
	}, nil)

	out, err := p.answerBlock(ctx, initial, stripped, fctx, option)
	if err == nil {
		return out
	}

	p.logger().Error("block failed", "file", fctx.path, "error", err)
	p.publish(events.KindBlockError, map[string]any{"file": fctx.path, "error": err.Error()})

	if p.Config.Processing.RetryOnError {
		return wrapAI(option, initial)
	}
	return wrapAI(option, stripped+convo.BeaconError+"\n```sh\n"+err.Error()+"\n```\n")
}

// blockParams are the per-block settings gathered from param tags, laid
// over the config defaults.
type blockParams struct {
	model       string
	system      *string // prompt name; nil means no system prompt
	debug       bool
	mock        bool
	temperature float64
	maxTokens   int
	thinking    bool
	thinkBudget int // 0 lets the provider choose
	toolKeys    []string
}

// resolveParams reads param tags out of the block's match list. For a
// repeated name the last value wins, except tools! values, which
// accumulate in order. Unparseable numbers fall back to the config
// default with a warning rather than failing the block.
func (p *Processor) resolveParams(matches []tagparse.Tag, log *slog.Logger) blockParams {
	bp := blockParams{
		model:       p.Config.Model.Default,
		temperature: p.Config.Model.Temperature,
		maxTokens:   p.Config.Model.MaxTokens,
	}

	params := make(map[string]*string, len(matches))
	for _, m := range matches {
		params[m.Name] = m.Value
		if m.Name == "tools" && deref(m.Value) != "" {
			bp.toolKeys = append(bp.toolKeys, *m.Value)
		}
	}

	if v, ok := params["model"]; ok && deref(v) != "" {
		bp.model = deref(v)
	}
	if v, ok := params["system"]; ok && v != nil {
		bp.system = v
	}
	_, bp.debug = params["debug"]
	_, bp.mock = params["mock"]

	if v, ok := params["temperature"]; ok {
		if f, err := strconv.ParseFloat(deref(v), 64); err == nil {
			bp.temperature = f
		} else {
			log.Warn("invalid temperature, using default", "value", deref(v), "default", bp.temperature)
		}
	}
	if v, ok := params["max_tokens"]; ok {
		if n, err := strconv.Atoi(deref(v)); err == nil {
			bp.maxTokens = n
		} else {
			log.Warn("invalid max_tokens, using default", "value", deref(v), "default", bp.maxTokens)
		}
	}
	if v, ok := params["think"]; ok {
		bp.thinking = true
		if deref(v) != "" {
			if n, err := strconv.Atoi(deref(v)); err == nil {
				bp.thinkBudget = n
			} else {
				log.Warn("invalid thinking budget, using default", "value", deref(v))
			}
		}
	}

	if bp.mock {
		bp.model = backend.ModelMock
	}
	return bp
}

// answerBlock runs the conversation a reply-armed block encodes and
// returns its replacement text: the extended transcript re-wrapped for
// the default mode, or the bare response for rep and all modes. Any
// error aborts the block; the caller renders it.
func (p *Processor) answerBlock(ctx context.Context, initial, stripped string, fctx *fileContext, option string) (string, error) {
	log := p.logger()

	session := NewSession(fctx.path, initial, p.Bus, log)
	if err := session.Append(convo.BeaconAI + "\n_Thinking..._\n"); err != nil {
		return "", err
	}

	convTxt := strings.TrimSpace(stripped)
	convTxt, matches := tagparse.Process(convTxt, p.insideReplacements(ctx, fctx), nil)

	bp := p.resolveParams(matches, log)
	if bp.debug {
		log.Debug("block parameters",
			"model", bp.model,
			"temperature", bp.temperature,
			"max_tokens", bp.maxTokens,
			"thinking", bp.thinking,
			"thinking_budget", bp.thinkBudget,
			"tools", bp.toolKeys,
			"system", bp.system != nil)
	}
	log.Log(ctx, config.LevelTrace, "resolved conversation", "file", fctx.path, "text", convTxt)

	log.Info("answering block", "file", fctx.path, "model", bp.model)
	p.publish(events.KindBlockStart, map[string]any{
		"file":   fctx.path,
		"model":  bp.model,
		"option": option,
	})

	if option == "all" {
		convTxt = promptMod + "<document>" + fctx.doc + "</document><instructions>" + convTxt + "</instructions>"
	}

	parser := convo.Parser{Logger: log}
	if p.Vault != nil {
		parser.Images = vault.Images{Vault: p.Vault}
	}
	messages, err := parser.Parse(convTxt)
	if err != nil {
		return "", err
	}

	systemPrompt := ""
	if bp.system != nil {
		if p.Vault == nil {
			return "", fmt.Errorf("system prompt %q requested but no vault configured", *bp.system)
		}
		systemPrompt, err = p.Vault.SystemPrompt(*bp.system)
		if err != nil {
			return "", err
		}
	}

	be, err := p.Backends.Resolve(bp.model)
	if err != nil {
		return "", err
	}

	merged := p.Toolsets.Merge(bp.toolKeys...)
	req := &backend.Request{
		Messages:       messages,
		SystemPrompt:   systemPrompt,
		Model:          bp.model,
		MaxTokens:      bp.maxTokens,
		Temperature:    bp.temperature,
		Tools:          tools.Definitions(merged),
		Thinking:       bp.thinking,
		ThinkingBudget: bp.thinkBudget,
	}

	var (
		response       string
		thoughts       string
		totalReasoning string
		first          = true
		rounds         int
	)
	maxRounds := p.Config.Processing.MaxToolRounds

	for rounds = 1; ; rounds++ {
		if rounds > maxRounds {
			return "", fmt.Errorf("tool loop exceeded %d rounds", maxRounds)
		}
		p.publish(events.KindModelCall, map[string]any{
			"file":  fctx.path,
			"model": bp.model,
			"round": rounds,
		})
		resp, err := be.Send(ctx, req)
		if err != nil {
			return "", fmt.Errorf("backend %s: %w", bp.model, err)
		}
		p.publish(events.KindModelResponse, map[string]any{
			"file":       fctx.path,
			"model":      bp.model,
			"round":      rounds,
			"tool_calls": len(resp.ToolCalls),
		})

		response += resp.Content
		if strings.TrimSpace(resp.Content) != "" {
			if first {
				if err := session.Append(convo.BeaconAI + "\n"); err != nil {
					return "", err
				}
				first = false
			}
			if err := session.Append(EscapeResponse(resp.Content) + "\n"); err != nil {
				return "", err
			}
			if strings.TrimSpace(resp.Reasoning) != "" {
				thought := convo.WrapThought(EscapeResponse(resp.Reasoning))
				thoughts += thought
				totalReasoning += resp.Reasoning
				if err := session.Append(thought); err != nil {
					return "", err
				}
			}
		}

		if len(resp.ToolCalls) == 0 {
			break
		}

		results := make([]convo.ToolResult, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			if err := session.Append(convo.FormatToolCall(call)); err != nil {
				return "", err
			}
			p.publish(events.KindToolCall, map[string]any{"file": fctx.path, "tool": call.Name})
			start := time.Now()
			result := p.executeCall(ctx, merged, call)
			p.publish(events.KindToolDone, map[string]any{
				"file":        fctx.path,
				"tool":        call.Name,
				"ok":          !result.Failed(),
				"duration_ms": time.Since(start).Milliseconds(),
			})
			results = append(results, result)
			if err := session.Append(convo.FormatToolResult(result)); err != nil {
				return "", err
			}
		}

		// Tool sections stay part of the visible response text.
		for i, call := range resp.ToolCalls {
			response += "\n" + convo.FormatToolCall(call) + convo.FormatToolResult(results[i])
		}

		var assistant []convo.Content
		if strings.TrimSpace(resp.Content) != "" {
			assistant = append(assistant, convo.TextContent(resp.Content))
		}
		for _, call := range resp.ToolCalls {
			assistant = append(assistant, convo.ToolUseContent(call))
		}
		messages = append(messages, convo.Message{Role: convo.RoleAssistant, Content: assistant})

		resultContent := make([]convo.Content, 0, len(results))
		for _, r := range results {
			resultContent = append(resultContent, convo.ToolResultContent(r))
		}
		messages = append(messages, convo.Message{Role: convo.RoleUser, Content: resultContent})
		req.Messages = messages
	}

	in, out := usage.EstimateWithResponse(messages, systemPrompt, response, totalReasoning)
	if err := p.Usage.Record(ctx, usage.Record{
		File:         fctx.path,
		Model:        bp.model,
		InputTokens:  in,
		OutputTokens: out,
		Rounds:       rounds,
	}); err != nil {
		log.Warn("recording block run failed", "error", err)
	}
	p.publish(events.KindBlockComplete, map[string]any{
		"file":       fctx.path,
		"rounds":     rounds,
		"tokens_in":  in,
		"tokens_out": out,
	})

	escaped := EscapeResponse(response)
	switch option {
	case "rep":
		return escaped, nil
	case "all":
		fctx.newDoc = escaped
		return escaped, nil
	default:
		return wrapAI(option, stripped+
			convo.BeaconAI+"\n"+
			convo.FormatTokenUsage(in, out)+"\n"+
			thoughts+"\n"+
			escaped+"\n"+
			convo.BeaconMe+"\n"), nil
	}
}

// executeCall runs one tool call and always produces a result: unknown
// tools, rejected confirmations, errors, and panics all land in
// ToolResult.Error so the conversation continues with the failure
// visible to the model.
func (p *Processor) executeCall(ctx context.Context, available []tools.Tool, call convo.ToolCall) convo.ToolResult {
	result := convo.ToolResult{Name: call.Name, ToolCallID: call.ID}

	tool, ok := tools.Lookup(available, call.Name)
	if !ok {
		result.Error = (&tools.ErrToolUnavailable{ToolName: call.Name}).Error()
		return result
	}

	if !tool.Safe {
		confirmed, msg := p.confirmer().Confirm(ctx, tool, call.Arguments)
		if !confirmed {
			result.Error = "Tool execution rejected by user"
			if msg != "" {
				result.Error += "\nUser message: " + msg
			}
			return result
		}
	}

	value, err := safeCall(ctx, tool, call.Arguments)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Result = value
	return result
}

// safeCall invokes the tool function with panic capture.
func safeCall(ctx context.Context, tool tools.Tool, args map[string]any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", tool.Name, r)
		}
	}()
	return tool.Func(ctx, args)
}

// insideReplacements builds the block-level replacement table: param
// tags are recorded and removed, content tags expand into context.
func (p *Processor) insideReplacements(ctx context.Context, fctx *fileContext) map[string]tagparse.ReplaceFunc {
	reps := make(map[string]tagparse.ReplaceFunc, len(paramTags)+len(contentTags))
	for _, name := range paramTags {
		reps[name] = tagparse.Remove
	}

	reps["this"] = func(_, _ *string, _ any) string {
		return "<document>" + fctx.doc + "</document>\n"
	}
	fileRef := func(subfolder, kind string) tagparse.ReplaceFunc {
		return func(value, _ *string, _ any) string {
			return p.fileRef(deref(value), subfolder, kind)
		}
	}
	reps["doc"] = fileRef("", vault.KindDocument)
	reps["file"] = fileRef("", vault.KindDocument)
	reps["pdf"] = fileRef("pdf", vault.KindPDF)
	reps["prompt"] = fileRef("Prompts", vault.KindPrompt)
	reps["url"] = func(value, _ *string, _ any) string {
		v := deref(value)
		return "<url>" + v + "</url>\n<content>" + p.fetchURL(ctx, v) + "</content>\n"
	}
	return reps
}

func (p *Processor) fileRef(ref, subfolder, kind string) string {
	if p.Vault == nil {
		return "Error: Cannot find file " + ref
	}
	return p.Vault.FileRef(ref, subfolder, kind)
}

func (p *Processor) fetchURL(ctx context.Context, rawURL string) string {
	if p.Fetcher == nil {
		return "Error fetching URL: no fetcher configured"
	}
	text, err := p.Fetcher.Markdown(ctx, rawURL, p.Config.Fetch.MaxChars)
	if err != nil {
		return "Error fetching URL: " + err.Error()
	}
	return text
}
