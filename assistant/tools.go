package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"bookdesk/ai"
	"bookdesk/logging"
)

// Payloads returned to the model instead of a lookup result.
const (
	UnknownFunctionPayload = `{"error":"Unknown function"}`
	LookupFailedPayload    = `{"error":"Lookup failed"}`
)

// Param is one string parameter of a tool.
type Param struct {
	Name        string
	Description string
}

// Tool is a business function the model may call by name.
type Tool struct {
	Name        string
	Description string
	Params      []Param
	Required    []string
	Invoke      func(ctx context.Context, args map[string]string) (any, error)
}

// ToolRegistry maps tool names to their handlers. Registration order is kept
// for the declarations sent to the model.
type ToolRegistry struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	order    []string
	warnSize int
	logger   *zap.Logger
}

func NewToolRegistry(warnSize int, logger *zap.Logger) *ToolRegistry {
	return &ToolRegistry{
		tools:    make(map[string]Tool),
		warnSize: warnSize,
		logger:   logging.OrNop(logger).Named("tools"),
	}
}

func (r *ToolRegistry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if t.Invoke == nil {
		return fmt.Errorf("tool %s has no handler", t.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %s is already registered", t.Name)
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

// Declarations describes every registered tool in the wire format.
func (r *ToolRegistry) Declarations() []ai.FunctionDeclaration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	decls := make([]ai.FunctionDeclaration, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		schema := &ai.Schema{Type: "object", Properties: map[string]*ai.Schema{}, Required: t.Required}
		for _, p := range t.Params {
			schema.Properties[p.Name] = &ai.Schema{Type: "string", Description: p.Description}
		}
		decls = append(decls, ai.FunctionDeclaration{Name: t.Name, Description: t.Description, Parameters: schema})
	}
	return decls
}

// Dispatch runs the tool the model asked for and returns its result as JSON.
// It never fails: unknown names and handler errors become error payloads, and
// missing arguments are passed as empty strings.
func (r *ToolRegistry) Dispatch(ctx context.Context, call *ai.FunctionCall) string {
	if call == nil {
		return UnknownFunctionPayload
	}
	r.mu.RLock()
	t, ok := r.tools[call.Name]
	r.mu.RUnlock()
	if !ok {
		r.logger.Warn("model called an unknown function", zap.String("function", call.Name))
		return UnknownFunctionPayload
	}

	args := make(map[string]string, len(t.Params))
	for _, p := range t.Params {
		args[p.Name] = argString(call.Args[p.Name])
	}

	result, err := t.Invoke(ctx, args)
	if err != nil {
		r.logger.Warn("function failed", zap.String("function", t.Name), zap.Error(err))
		return LookupFailedPayload
	}

	data, err := json.Marshal(result)
	if err != nil {
		r.logger.Warn("function result is not serializable", zap.String("function", t.Name), zap.Error(err))
		return LookupFailedPayload
	}
	if r.warnSize > 0 && len(data) > r.warnSize {
		r.logger.Warn("function result is large for the model context",
			zap.String("function", t.Name), zap.Int("bytes", len(data)), zap.Int("threshold", r.warnSize))
	}
	return string(data)
}

// argString renders a JSON-decoded argument as text. Whole numbers lose
// their ".0" so order ids stay usable.
func argString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

func registerBusinessTools(r *ToolRegistry, lookups BusinessLookups, books CatalogSearcher) {
	if lookups != nil {
		mustRegister(r, Tool{
			Name:        "get_order_details",
			Description: "Get the status, date, customer and line items of one order.",
			Params:      []Param{{Name: "order_id", Description: "The order number, e.g. 10423"}},
			Required:    []string{"order_id"},
			Invoke: func(ctx context.Context, args map[string]string) (any, error) {
				return lookups.OrderLookup(ctx, args["order_id"])
			},
		})
		mustRegister(r, Tool{
			Name:        "search_customer_orders",
			Description: "List recent orders of a customer found by email, phone number or name.",
			Params:      []Param{{Name: "customer", Description: "Customer email, phone number or name"}},
			Required:    []string{"customer"},
			Invoke: func(ctx context.Context, args map[string]string) (any, error) {
				return lookups.CustomerOrderSearch(ctx, args["customer"])
			},
		})
		mustRegister(r, Tool{
			Name:        "get_invoice_details",
			Description: "Get the amount, status and order of one invoice.",
			Params:      []Param{{Name: "invoice_id", Description: "The invoice number, e.g. INV-1001"}},
			Required:    []string{"invoice_id"},
			Invoke: func(ctx context.Context, args map[string]string) (any, error) {
				return lookups.InvoiceLookup(ctx, args["invoice_id"])
			},
		})
	}
	if books != nil {
		mustRegister(r, Tool{
			Name:        "search_books",
			Description: "Search the store's book catalog by title, author, genre or topic and get a recommendation.",
			Params:      []Param{{Name: "query", Description: "What the customer is looking for"}},
			Required:    []string{"query"},
			Invoke: func(ctx context.Context, args map[string]string) (any, error) {
				answer, err := books.BookCatalogSearch(ctx, args["query"])
				if err != nil {
					return nil, err
				}
				return map[string]string{"answer": answer}, nil
			},
		})
	}
}

func mustRegister(r *ToolRegistry, t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}
