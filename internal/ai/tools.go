package ai

import (
	"context"
	"encoding/json"
	"errors"

	"vendazap/pkg/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// Tool names exposed to the model. The set is fixed: the dialogue engine
// refuses anything outside this list.
const (
	ToolTransferToHuman = "transfer_to_human"
	ToolAddToCart       = "add_to_cart"
	ToolGetAddressByCEP = "get_address_by_cep"
	ToolCreateOrder     = "create_order"
)

// ErrCEPNotFound is returned by CEP lookups when the code is well-formed but
// unknown to the postal service.
var ErrCEPNotFound = errors.New("cep não encontrado")

// TransferToHumanArgs requests hand-off to a human attendant.
type TransferToHumanArgs struct {
	Reason  string `json:"reason"`
	Summary string `json:"summary,omitempty"`
}

// CartEntryArg is one item the model wants to place in the cart. Either
// product_id or name must identify a catalog item; quantity defaults to 1.
type CartEntryArg struct {
	ProductID string `json:"product_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Quantity  int    `json:"quantity,omitempty"`
}

// AddToCartArgs carries the cart entries proposed by the model.
type AddToCartArgs struct {
	Items []CartEntryArg `json:"items"`
}

// GetAddressByCEPArgs carries the postal code to resolve.
type GetAddressByCEPArgs struct {
	CEP string `json:"cep"`
}

// ShippingAddressArg is the delivery address collected during checkout.
type ShippingAddressArg struct {
	Street       string `json:"street"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zipcode      string `json:"zipcode,omitempty"`
}

// CreateOrderArgs carries everything needed to finalize an order. Prices are
// deliberately absent: they always come from the catalog snapshot.
type CreateOrderArgs struct {
	CustomerName    string             `json:"customer_name"`
	CustomerPhone   string             `json:"customer_phone,omitempty"`
	CustomerEmail   string             `json:"customer_email,omitempty"`
	CustomerCPF     string             `json:"customer_cpf,omitempty"`
	CustomerCNPJ    string             `json:"customer_cnpj,omitempty"`
	ShippingAddress ShippingAddressArg `json:"shipping_address"`
	Items           []CartEntryArg     `json:"items"`
	PaymentMethod   string             `json:"payment_method,omitempty"`
}

// ToolError identifies a tool failure in a machine-readable way so the model
// can recover (ask for the address manually, re-ask the CEP, etc).
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Tool error codes
const (
	ErrCodeInvalidCEP     = "invalid_cep"
	ErrCodeCEPNotFound    = "cep_not_found"
	ErrCodeCEPUnavailable = "cep_unavailable"
	ErrCodeEmptyCart      = "empty_cart"
	ErrCodeEmptyOrder     = "empty_order"
	ErrCodeOrderFailed    = "order_failed"
	ErrCodeUnknownTool    = "unknown_tool"
	ErrCodeBadArguments   = "bad_arguments"
)

// TransferResult confirms the conversation was flagged for a human.
type TransferResult struct {
	Reason  string `json:"reason"`
	Summary string `json:"summary,omitempty"`
}

// CartResult lists what actually made it into the cart after resolution
// against the catalog snapshot. Dropped carries the names that matched
// nothing — the model never gets to invent items.
type CartResult struct {
	Items   []models.CartSnapshotItem `json:"items"`
	Total   string                    `json:"total"`
	Dropped []string                  `json:"dropped,omitempty"`
}

// AddressResult is a successful postal lookup.
type AddressResult struct {
	CEP          string `json:"cep"`
	Street       string `json:"street"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}

// OrderResult confirms a created order.
type OrderResult struct {
	OrderID          uuid.UUID `json:"order_id"`
	ConfirmationCode string    `json:"confirmation_code"`
	Total            string    `json:"total"`
	ItemCount        int       `json:"item_count"`
}

// ToolResult is the tagged union fed back to the model as the tool message.
// Exactly one payload field is set, matching Tool.
type ToolResult struct {
	Tool     string          `json:"tool"`
	OK       bool            `json:"ok"`
	Error    *ToolError      `json:"error,omitempty"`
	Transfer *TransferResult `json:"transfer,omitempty"`
	Cart     *CartResult     `json:"cart,omitempty"`
	Address  *AddressResult  `json:"address,omitempty"`
	Order    *OrderResult    `json:"order,omitempty"`
}

// JSON renders the result for the tool role message. Marshal of these plain
// structs cannot fail.
func (r *ToolResult) JSON() string {
	b, _ := json.Marshal(r)
	return string(b)
}

func toolFailure(tool, code, message string) *ToolResult {
	return &ToolResult{
		Tool: tool,
		OK:   false,
		Error: &ToolError{
			Code:    code,
			Message: message,
		},
	}
}

// TurnContext carries the per-turn state shared by tool executions: the
// frozen catalog snapshot and the metadata that will ride on the final
// assistant reply.
type TurnContext struct {
	TenantID       uuid.UUID
	ConversationID uuid.UUID
	Snapshot       *CatalogSnapshot

	// ReplyMetadata is attached to the persisted assistant reply. Later
	// tools overwrite earlier ones, so a cep→create_order chain ends with
	// the order confirmation.
	ReplyMetadata *models.MessageMetadata
}

// getAvailableTools returns the fixed tool schema offered on every dialogue
// round.
func getAvailableTools() []openai.Tool {
	return []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ToolTransferToHuman,
				Description: "🙋 Transfere a conversa para um atendente humano. Use quando o cliente pedir explicitamente para falar com uma pessoa, quando estiver irritado, ou quando o assunto fugir do que você consegue resolver (trocas, reclamações, pagamentos com problema).",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"reason": map[string]interface{}{
							"type":        "string",
							"description": "Motivo curto da transferência (ex: 'cliente pediu atendente', 'reclamação de pedido')",
						},
						"summary": map[string]interface{}{
							"type":        "string",
							"description": "Resumo do contexto da conversa para o atendente",
						},
					},
					"required": []string{"reason"},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ToolAddToCart,
				Description: "🛒 Adiciona produtos do catálogo ao carrinho do cliente. Use SOMENTE produtos que existem no catálogo apresentado — NUNCA invente produtos ou preços. Informe o product_id quando souber, ou o nome exato do produto.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"items": map[string]interface{}{
							"type":        "array",
							"description": "Itens a adicionar",
							"items": map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"product_id": map[string]interface{}{
										"type":        "string",
										"description": "ID do produto no catálogo (UUID)",
									},
									"name": map[string]interface{}{
										"type":        "string",
										"description": "Nome exato do produto no catálogo",
									},
									"quantity": map[string]interface{}{
										"type":        "integer",
										"description": "Quantidade desejada (padrão 1)",
									},
								},
							},
						},
					},
					"required": []string{"items"},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ToolGetAddressByCEP,
				Description: "📍 Busca o endereço a partir de um CEP brasileiro (8 dígitos). Use durante o checkout quando o cliente informar o CEP, para confirmar rua, bairro e cidade antes de criar o pedido.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"cep": map[string]interface{}{
							"type":        "string",
							"description": "CEP com 8 dígitos, com ou sem hífen (ex: '01310-100')",
						},
					},
					"required": []string{"cep"},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ToolCreateOrder,
				Description: "✅ Finaliza a compra criando o pedido. Use SOMENTE depois de confirmar com o cliente os itens, o endereço de entrega e o nome. Os preços vêm do catálogo — nunca informe preços próprios.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"customer_name": map[string]interface{}{
							"type":        "string",
							"description": "Nome completo do cliente",
						},
						"customer_phone": map[string]interface{}{
							"type":        "string",
							"description": "Telefone do cliente com DDD",
						},
						"customer_email": map[string]interface{}{
							"type":        "string",
							"description": "E-mail do cliente, se informado",
						},
						"customer_cpf": map[string]interface{}{
							"type":        "string",
							"description": "CPF do cliente, se informado",
						},
						"customer_cnpj": map[string]interface{}{
							"type":        "string",
							"description": "CNPJ do cliente, se informado",
						},
						"shipping_address": map[string]interface{}{
							"type":        "object",
							"description": "Endereço de entrega confirmado",
							"properties": map[string]interface{}{
								"street":       map[string]interface{}{"type": "string"},
								"complement":   map[string]interface{}{"type": "string"},
								"neighborhood": map[string]interface{}{"type": "string"},
								"city":         map[string]interface{}{"type": "string"},
								"state":        map[string]interface{}{"type": "string"},
								"zipcode":      map[string]interface{}{"type": "string"},
							},
							"required": []string{"street", "city", "state"},
						},
						"items": map[string]interface{}{
							"type":        "array",
							"description": "Itens confirmados do pedido",
							"items": map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"product_id": map[string]interface{}{"type": "string"},
									"name":       map[string]interface{}{"type": "string"},
									"quantity":   map[string]interface{}{"type": "integer"},
								},
							},
						},
						"payment_method": map[string]interface{}{
							"type":        "string",
							"description": "Forma de pagamento combinada (pix, cartão, dinheiro)",
						},
					},
					"required": []string{"customer_name", "shipping_address", "items"},
				},
			},
		},
	}
}

// Dispatcher routes tool calls from the model to their implementations.
type Dispatcher struct {
	cep       CEPServiceInterface
	finalizer *OrderFinalizer
	store     ConversationStoreInterface
}

// NewDispatcher creates a tool dispatcher.
func NewDispatcher(cep CEPServiceInterface, finalizer *OrderFinalizer, store ConversationStoreInterface) *Dispatcher {
	return &Dispatcher{cep: cep, finalizer: finalizer, store: store}
}

// Execute runs a single tool call and returns the typed result. Tool
// failures come back as failed results, never as errors — the model needs
// to see them to recover.
func (d *Dispatcher) Execute(ctx context.Context, turn *TurnContext, call openai.ToolCall) *ToolResult {
	log.Info().
		Str("tool", call.Function.Name).
		Str("conversation_id", turn.ConversationID.String()).
		Msg("🔧 Executando tool call")

	switch call.Function.Name {
	case ToolTransferToHuman:
		var args TransferToHumanArgs
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return toolFailure(ToolTransferToHuman, ErrCodeBadArguments, "argumentos inválidos")
		}
		return d.executeTransfer(turn, args)

	case ToolAddToCart:
		var args AddToCartArgs
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return toolFailure(ToolAddToCart, ErrCodeBadArguments, "argumentos inválidos")
		}
		return d.executeAddToCart(turn, args)

	case ToolGetAddressByCEP:
		var args GetAddressByCEPArgs
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return toolFailure(ToolGetAddressByCEP, ErrCodeBadArguments, "argumentos inválidos")
		}
		return d.executeCEPLookup(ctx, turn, args)

	case ToolCreateOrder:
		var args CreateOrderArgs
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return toolFailure(ToolCreateOrder, ErrCodeBadArguments, "argumentos inválidos")
		}
		return d.executeCreateOrder(ctx, turn, args)

	default:
		log.Warn().Str("tool", call.Function.Name).Msg("Tool desconhecida solicitada pelo modelo")
		return toolFailure(call.Function.Name, ErrCodeUnknownTool, "ferramenta não disponível")
	}
}

func (d *Dispatcher) executeTransfer(turn *TurnContext, args TransferToHumanArgs) *ToolResult {
	reason := args.Reason
	if reason == "" {
		reason = "cliente solicitou atendimento humano"
	}

	if err := d.store.MarkNeedsHuman(turn.TenantID, turn.ConversationID, reason); err != nil {
		log.Error().Err(err).
			Str("conversation_id", turn.ConversationID.String()).
			Msg("Falha ao marcar conversa para atendimento humano")
	}

	return &ToolResult{
		Tool: ToolTransferToHuman,
		OK:   true,
		Transfer: &TransferResult{
			Reason:  reason,
			Summary: args.Summary,
		},
	}
}

func (d *Dispatcher) executeAddToCart(turn *TurnContext, args AddToCartArgs) *ToolResult {
	if len(args.Items) == 0 {
		return toolFailure(ToolAddToCart, ErrCodeEmptyCart, "nenhum item informado")
	}

	items, dropped := resolveCartEntries(turn.Snapshot, args.Items)
	if len(items) == 0 {
		return toolFailure(ToolAddToCart, ErrCodeEmptyCart, "nenhum item corresponde ao catálogo")
	}

	total := 0.0
	for _, it := range items {
		total += parsePrice(it.UnitPrice) * float64(it.Quantity)
	}

	cart := &CartResult{
		Items:   items,
		Total:   formatAmount(total),
		Dropped: dropped,
	}

	turn.ReplyMetadata = &models.MessageMetadata{
		Kind: models.MetaCartSnapshot,
		Cart: &models.CartSnapshot{
			Items: items,
			Total: cart.Total,
		},
	}

	if len(dropped) > 0 {
		log.Warn().
			Strs("dropped", dropped).
			Str("conversation_id", turn.ConversationID.String()).
			Msg("Itens fora do catálogo descartados do carrinho")
	}

	return &ToolResult{Tool: ToolAddToCart, OK: true, Cart: cart}
}

func (d *Dispatcher) executeCEPLookup(ctx context.Context, turn *TurnContext, args GetAddressByCEPArgs) *ToolResult {
	cep := normalizeCEP(args.CEP)
	if len(cep) != 8 {
		// Validação local: nada de rede para CEP malformado
		return toolFailure(ToolGetAddressByCEP, ErrCodeInvalidCEP, "CEP deve ter 8 dígitos, peça para o cliente confirmar")
	}

	addr, err := d.cep.Lookup(ctx, cep)
	if err != nil {
		if errors.Is(err, ErrCEPNotFound) {
			turn.ReplyMetadata = &models.MessageMetadata{
				Kind: models.MetaCEPLookup,
				CEP:  &models.CEPLookupResult{CEP: cep, Found: false},
			}
			return toolFailure(ToolGetAddressByCEP, ErrCodeCEPNotFound, "CEP não encontrado, confirme o número com o cliente")
		}
		log.Error().Err(err).Str("cep", cep).Msg("Consulta de CEP indisponível")
		return toolFailure(ToolGetAddressByCEP, ErrCodeCEPUnavailable, "serviço de CEP indisponível, peça o endereço completo manualmente")
	}

	turn.ReplyMetadata = &models.MessageMetadata{
		Kind: models.MetaCEPLookup,
		CEP: &models.CEPLookupResult{
			CEP:          addr.CEP,
			Street:       addr.Street,
			Neighborhood: addr.Neighborhood,
			City:         addr.City,
			State:        addr.State,
			Found:        true,
		},
	}

	return &ToolResult{
		Tool: ToolGetAddressByCEP,
		OK:   true,
		Address: &AddressResult{
			CEP:          addr.CEP,
			Street:       addr.Street,
			Neighborhood: addr.Neighborhood,
			City:         addr.City,
			State:        addr.State,
		},
	}
}

func (d *Dispatcher) executeCreateOrder(ctx context.Context, turn *TurnContext, args CreateOrderArgs) *ToolResult {
	result, err := d.finalizer.Finalize(ctx, turn, args)
	if err != nil {
		if errors.Is(err, errEmptyOrder) {
			return toolFailure(ToolCreateOrder, ErrCodeEmptyOrder, "nenhum item do pedido corresponde ao catálogo")
		}
		log.Error().Err(err).
			Str("conversation_id", turn.ConversationID.String()).
			Msg("Falha ao criar pedido")
		return toolFailure(ToolCreateOrder, ErrCodeOrderFailed, "não foi possível registrar o pedido agora")
	}

	turn.ReplyMetadata = &models.MessageMetadata{
		Kind: models.MetaOrderConfirmation,
		Order: &models.OrderConfirmation{
			OrderID:          result.OrderID,
			ConfirmationCode: result.ConfirmationCode,
			Total:            result.Total,
		},
	}

	return &ToolResult{Tool: ToolCreateOrder, OK: true, Order: result}
}

// resolveCartEntries maps model-proposed entries onto the catalog snapshot.
// Unmatched entries are excluded, never guessed; their labels come back in
// dropped for logging and for the model to see.
func resolveCartEntries(snapshot *CatalogSnapshot, entries []CartEntryArg) ([]models.CartSnapshotItem, []string) {
	var items []models.CartSnapshotItem
	var dropped []string

	for _, entry := range entries {
		item := snapshot.Resolve(entry.ProductID, entry.Name)
		if item == nil {
			label := entry.Name
			if label == "" {
				label = entry.ProductID
			}
			dropped = append(dropped, label)
			continue
		}

		qty := entry.Quantity
		if qty < 1 {
			qty = 1
		}

		items = append(items, models.CartSnapshotItem{
			ProductID: item.ID,
			Name:      item.Name,
			UnitPrice: item.Price,
			Quantity:  qty,
		})
	}

	return items, dropped
}

// normalizeCEP strips everything that is not a digit.
func normalizeCEP(cep string) string {
	return digitsOnly(cep)
}
