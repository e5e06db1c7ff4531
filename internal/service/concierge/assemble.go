package concierge

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pocketkart/pocketbot/internal/core"
	"github.com/pocketkart/pocketbot/internal/service/memory"
	"github.com/pocketkart/pocketbot/internal/service/rag"
	"github.com/pocketkart/pocketbot/pkg/log"
)

const basePrompt = `You are PocketBot, the concierge for the PocketKart store.
Answer the shopper helpfully and honestly using the context provided. When the
context does not cover the question, say so instead of guessing. Keep replies
short and friendly.`

const smalltalkDirective = "The shopper is making small talk. Reply warmly in one or two sentences and offer to help with orders, returns or products."

// recencyPattern marks questions that want fresh information and should go to
// web search when no intent matched.
var recencyPattern = regexp.MustCompile(`(?i)latest|today|current|202[5-9]`)

// defaultWebScore stands in when the search backend reports no relevance.
const defaultWebScore = 0.5

// assembled is the generation input plus the context that fed it, kept so
// the caller can attach citations to the reply.
type assembled struct {
	request    core.GenerationRequest
	snippets   []core.Snippet
	webResults []core.WebResult
}

// sources collects the citations for the turn: retrieval hits above the
// relevance floor first, then web results.
func (a assembled) sources() []core.Source {
	out := rag.Citations(a.snippets)
	for _, r := range a.webResults {
		score := r.Score
		if score == 0 {
			score = defaultWebScore
		}
		out = append(out, core.Source{Title: r.Title, URL: r.URL, Score: score})
	}
	return out
}

// assembleContext builds the generation request for one turn: profile summary
// first, then an intent-specific directive, then retrieval or web context,
// then the short-term history.
func (s *Service) assembleContext(ctx context.Context, conv *core.Conversation, flags core.FeatureFlags, intent core.Intent, text string) assembled {
	var system []string
	system = append(system, basePrompt)

	if flags.Memory && conv.User.ID != "" {
		if mem, err := s.memory.GetUserMemory(ctx, conv.User.ID); err != nil {
			log.FromCtx(ctx).Warn().Err(err).Msg("user memory lookup failed")
		} else if mem != nil && mem.Summary != "" {
			system = append(system, "What you remember about this shopper: "+mem.Summary)
		}
	}

	if intent == core.IntentSmalltalk {
		system = append(system, smalltalkDirective)
	}

	var snippets []core.Snippet
	if flags.RAG && (intent == core.IntentProductInfo || intent == core.IntentFAQ) {
		var err error
		snippets, err = s.rag.Query(ctx, text, rag.DefaultTopK)
		if err != nil {
			log.FromCtx(ctx).Warn().Err(err).Msg("retrieval failed, answering without it")
		}
		if block := renderSnippets(snippets); block != "" {
			system = append(system, "Store knowledge base:\n"+block)
		}
	}

	var webResults []core.WebResult
	if flags.WebSearch && s.searcher != nil && intent == core.IntentUnknown && recencyPattern.MatchString(text) {
		results, err := s.searcher.Search(ctx, text)
		if err != nil {
			log.FromCtx(ctx).Warn().Err(err).Msg("web search failed, answering without it")
		} else {
			webResults = results
			if block := renderWebResults(results); block != "" {
				system = append(system, "Fresh web results:\n"+block)
			}
		}
	}

	return assembled{
		request: core.GenerationRequest{
			SystemPrompt: strings.Join(system, "\n\n"),
			Context:      memory.ShortTermContext(conv),
			UserMessage:  text,
		},
		snippets:   snippets,
		webResults: webResults,
	}
}

func renderSnippets(snippets []core.Snippet) string {
	var b strings.Builder
	for _, sn := range snippets {
		if sn.Chunk == "" {
			continue
		}
		title := sn.Title
		if title == "" {
			title = sn.ID
		}
		fmt.Fprintf(&b, "- [%s] %s\n", title, sn.Chunk)
	}
	return strings.TrimSpace(b.String())
}

func renderWebResults(results []core.WebResult) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "- %s (%s): %s\n", r.Title, r.URL, r.Snippet)
	}
	return strings.TrimSpace(b.String())
}
