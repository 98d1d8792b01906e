package command

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-price-analyzer/config"
	"github.com/aluiziolira/go-price-analyzer/models"
	"github.com/aluiziolira/go-price-analyzer/parser"
)

const editSystemPrompt = `ROLE: assistant managing a product table.

The user issues a command asking to change one field of one product.

CURRENT PRODUCTS (JSON):
%s

Editable fields: name, description, quantity, purchasePrice, salePrice.

STRICT RESPONSE FORMAT (JSON ONLY):
{"product": "product name from the table", "field": "one editable field", "value": "new value"}

Pick the product the user refers to. Do not invent products that are not
in the table.`

// Sender abstracts the model gateway for the edit path.
type Sender interface {
	Send(ctx context.Context, env models.RequestEnvelope) (string, models.Usage, error)
}

// EditCommand is a resolved, coerced field mutation ready to apply. Value
// is a string for name/description, an int for quantity, and a float64
// for the price fields.
type EditCommand struct {
	ProductID   string
	ProductName string
	Field       models.EditField
	Value       any
}

// EditAgent asks the model to translate a free-text command into a field
// mutation against the current product table.
type EditAgent struct {
	gw    Sender
	cfg   *config.Config
	store *models.Store
}

// NewEditAgent builds the edit-command agent.
func NewEditAgent(gw Sender, cfg *config.Config, store *models.Store) *EditAgent {
	return &EditAgent{gw: gw, cfg: cfg, store: store}
}

// productSnapshot is the compact table view sent to the model: names and
// editable fields only.
type productSnapshot struct {
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	Quantity      int     `json:"quantity"`
	PurchasePrice float64 `json:"purchasePrice"`
	SalePrice     float64 `json:"salePrice"`
}

// Execute sends the command plus the product snapshot through the
// gateway, resolves the named product, and returns the coerced mutation.
// No product state is changed; applying the command is the caller's job.
func (a *EditAgent) Execute(ctx context.Context, commandText string) (EditCommand, error) {
	if strings.TrimSpace(commandText) == "" {
		return EditCommand{}, fmt.Errorf("empty edit command")
	}

	products := a.store.List()
	snapshot := make([]productSnapshot, 0, len(products))
	for _, p := range products {
		snapshot = append(snapshot, productSnapshot{
			Name:          p.Name,
			Description:   p.Description,
			Quantity:      p.Quantity,
			PurchasePrice: p.PurchasePrice,
			SalePrice:     p.SalePrice,
		})
	}
	table, err := json.Marshal(snapshot)
	if err != nil {
		return EditCommand{}, fmt.Errorf("marshal product snapshot: %w", err)
	}

	env := models.RequestEnvelope{
		SystemPrompt: fmt.Sprintf(editSystemPrompt, table),
		UserPrompt:   commandText,
		Model:        a.cfg.Model,
		Temperature:  a.cfg.Temperature,
		MaxTokens:    a.cfg.MaxTokens,
	}

	text, _, err := a.gw.Send(ctx, env)
	if err != nil {
		return EditCommand{}, err
	}

	obj, ok := parser.ExtractObject(parser.StripFences(text))
	if !ok {
		return EditCommand{}, fmt.Errorf("edit response has no JSON object")
	}

	var proposal struct {
		Product string `json:"product"`
		Field   string `json:"field"`
		Value   any    `json:"value"`
	}
	if err := json.Unmarshal([]byte(obj), &proposal); err != nil {
		return EditCommand{}, fmt.Errorf("decode edit response: %w", err)
	}

	product, found := a.store.FindByName(proposal.Product)
	if !found {
		return EditCommand{}, fmt.Errorf("%w: %q", models.ErrProductNotFound, proposal.Product)
	}

	field, err := models.ParseEditField(proposal.Field)
	if err != nil {
		return EditCommand{}, err
	}

	value, err := coerceValue(field, proposal.Value)
	if err != nil {
		return EditCommand{}, err
	}

	return EditCommand{
		ProductID:   product.ID,
		ProductName: product.Name,
		Field:       field,
		Value:       value,
	}, nil
}

// coerceValue converts the model's value into the field's type. The model
// frequently returns numbers as strings, so both are accepted.
func coerceValue(field models.EditField, value any) (any, error) {
	switch field {
	case models.FieldName, models.FieldDescription:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%s must be a string, got %T", field, value)
		}
		return s, nil
	case models.FieldQuantity:
		n, err := toNumber(value)
		if err != nil {
			return nil, fmt.Errorf("quantity: %w", err)
		}
		if n < 0 || n != math.Trunc(n) {
			return nil, fmt.Errorf("quantity must be a non-negative integer, got %v", value)
		}
		return int(n), nil
	case models.FieldPurchasePrice, models.FieldSalePrice:
		n, err := toNumber(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		if n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("%s must be a non-negative number, got %v", field, value)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("field %q is not editable", field)
	}
}

func toNumber(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", v)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("not a number: %T", value)
	}
}
