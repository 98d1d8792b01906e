// Package agent implements the price-search agents: each turns a product
// name into one model request/response cycle and a normalized result.
// Agents never touch product state; applying prices is the batch runner's
// job.
package agent

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/aluiziolira/go-price-analyzer/config"
	"github.com/aluiziolira/go-price-analyzer/models"
	"github.com/aluiziolira/go-price-analyzer/parser"
)

// marketplaceSearchBase is the listing search the prompt points at for
// audit purposes.
const marketplaceSearchBase = "https://www.avito.ru/rossiya"

// Sender abstracts the model gateway.
type Sender interface {
	Send(ctx context.Context, env models.RequestEnvelope) (string, models.Usage, error)
}

// Searcher is the shared agent contract consumed by the batch runner.
type Searcher interface {
	Kind() models.BatchKind
	Search(ctx context.Context, productName string) (models.SearchResult, error)
}

// CompetitorAgent searches retail competitors for new-item prices. Its
// system prompt can be overridden at runtime.
type CompetitorAgent struct {
	gw  Sender
	cfg *config.Config

	mu     sync.Mutex
	custom string
}

// NewCompetitorAgent builds the competitor price agent.
func NewCompetitorAgent(gw Sender, cfg *config.Config) *CompetitorAgent {
	return &CompetitorAgent{gw: gw, cfg: cfg}
}

// Kind reports which product field this agent's results belong to.
func (a *CompetitorAgent) Kind() models.BatchKind {
	return models.KindCompetitor
}

// SetCustomPrompt replaces the default system prompt. The template may
// reference PromptPlaceholder, substituted per product.
func (a *CompetitorAgent) SetCustomPrompt(prompt string) {
	a.mu.Lock()
	a.custom = strings.TrimSpace(prompt)
	a.mu.Unlock()
}

// ResetPrompt restores the default system prompt.
func (a *CompetitorAgent) ResetPrompt() {
	a.mu.Lock()
	a.custom = ""
	a.mu.Unlock()
}

// SystemPrompt renders the active system prompt for a product.
func (a *CompetitorAgent) SystemPrompt(productName string) string {
	a.mu.Lock()
	custom := a.custom
	a.mu.Unlock()

	if custom != "" {
		return strings.ReplaceAll(custom, PromptPlaceholder, productName)
	}
	return fmt.Sprintf(competitorSystemPrompt, productName)
}

// Search runs one request/parse cycle. The parser's result is returned
// unchanged; a non-nil error means the gateway call itself failed.
func (a *CompetitorAgent) Search(ctx context.Context, productName string) (models.SearchResult, error) {
	env := models.RequestEnvelope{
		SystemPrompt: a.SystemPrompt(productName),
		UserPrompt:   fmt.Sprintf(competitorUserPrompt, productName),
		Model:        a.cfg.Model,
		Temperature:  a.cfg.Temperature,
		MaxTokens:    a.cfg.MaxTokens,
	}

	text, _, err := a.gw.Send(ctx, env)
	if err != nil {
		return models.SearchResult{}, err
	}
	return parser.Parse(text), nil
}

// MarketplaceAgent searches used-goods marketplace listings.
type MarketplaceAgent struct {
	gw  Sender
	cfg *config.Config
}

// NewMarketplaceAgent builds the used-price agent.
func NewMarketplaceAgent(gw Sender, cfg *config.Config) *MarketplaceAgent {
	return &MarketplaceAgent{gw: gw, cfg: cfg}
}

// Kind reports which product field this agent's results belong to.
func (a *MarketplaceAgent) Kind() models.BatchKind {
	return models.KindUsed
}

// SearchURL renders the deterministic listing-search URL embedded in the
// prompt for audit purposes.
func SearchURL(productName string) string {
	return fmt.Sprintf("%s?q=%s&s=104", marketplaceSearchBase, url.QueryEscape(productName))
}

// SystemPrompt renders the marketplace system prompt for a product.
func (a *MarketplaceAgent) SystemPrompt(productName string) string {
	return fmt.Sprintf(marketplaceSystemPrompt, productName, SearchURL(productName))
}

// Search runs one request/parse cycle, identical in shape to the
// competitor agent.
func (a *MarketplaceAgent) Search(ctx context.Context, productName string) (models.SearchResult, error) {
	env := models.RequestEnvelope{
		SystemPrompt: a.SystemPrompt(productName),
		UserPrompt:   fmt.Sprintf(marketplaceUserPrompt, productName),
		Model:        a.cfg.Model,
		Temperature:  a.cfg.Temperature,
		MaxTokens:    a.cfg.MaxTokens,
	}

	text, _, err := a.gw.Send(ctx, env)
	if err != nil {
		return models.SearchResult{}, err
	}
	return parser.Parse(text), nil
}
