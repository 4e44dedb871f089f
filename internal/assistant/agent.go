// Package assistant answers shop questions in plain language through Gemini
// function calling over the inventory, reports and customer services.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("assistant is not configured: GEMINI_API_KEY is empty")

// maxToolRounds bounds the call/response loop for one question.
const maxToolRounds = 5

type Agent struct {
	apiKey string
	model  string
	tools  *Tools
}

func NewAgent(apiKey, model string, tools *Tools) *Agent {
	return &Agent{apiKey: apiKey, model: model, tools: tools}
}

func (a *Agent) Enabled() bool { return a != nil && a.apiKey != "" }

func systemPrompt(today string) string {
	return fmt.Sprintf(`Today is %s. You are the assistant of a small agricultural supply shop's point of sale.
Prices are in Pakistani Rupees (Rs.).

RULES:
1. PRODUCTS: For the price, cost or stock of a product, call 'check_inventory' (optionally with a search term) and answer from the result. Never say you cannot see prices.
2. UPDATE: If asked to change a price by product NAME, do not ask for the ID. Call 'check_inventory' to find it, then 'update_selling_price'.
3. SALES: For revenue, sales counts or udhaar given over a period, call 'get_sales_report' with dates as YYYY-MM-DD.
4. STOCK ALERTS: For what needs reordering, call 'low_stock'.
5. UDHAAR: For who owes money, call 'customer_balances'.
Keep answers short.`, today)
}

// Ask runs one question through the model, executing tool calls on behalf of
// userID until the model answers in text.
func (a *Agent) Ask(ctx context.Context, userID uint, message string) (string, error) {
	if !a.Enabled() {
		return "", ErrDisabled
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(a.apiKey))
	if err != nil {
		return "", err
	}
	defer client.Close()

	model := client.GenerativeModel(a.model)
	model.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt(time.Now().Format("2006-01-02"))))
	model.Tools = []*genai.Tool{{FunctionDeclarations: declarations()}}

	session := model.StartChat()
	resp, err := session.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", err
	}

	for round := 0; round < maxToolRounds; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			return replyText(resp), nil
		}
		parts := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			log.Printf("assistant tool call: %s %v", call.Name, call.Args)
			parts = append(parts, genai.FunctionResponse{
				Name:     call.Name,
				Response: a.tools.run(ctx, userID, call.Name, call.Args),
			})
		}
		if resp, err = session.SendMessage(ctx, parts...); err != nil {
			return "", err
		}
	}
	return replyText(resp), nil
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	var calls []genai.FunctionCall
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if fc, ok := part.(genai.FunctionCall); ok {
			calls = append(calls, fc)
		}
	}
	return calls
}

func replyText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "I completed the action."
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if b.Len() == 0 {
		return "I completed the action."
	}
	return b.String()
}

func declarations() []*genai.FunctionDeclaration {
	return []*genai.FunctionDeclaration{
		{
			Name:        "check_inventory",
			Description: "List products with ID, name, category, selling price, cost and stock. Use it to find any product detail.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"search": {Type: genai.TypeString, Description: "Optional part of the product name"},
				},
			},
		},
		{
			Name:        "low_stock",
			Description: "List products at or below their minimum stock level.",
		},
		{
			Name:        "get_sales_report",
			Description: "Total revenue, udhaar given and number of sales between two dates inclusive.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"start_date": {Type: genai.TypeString, Description: "Start date (YYYY-MM-DD)"},
					"end_date":   {Type: genai.TypeString, Description: "End date (YYYY-MM-DD)"},
				},
				Required: []string{"start_date", "end_date"},
			},
		},
		{
			Name:        "customer_balances",
			Description: "Customers who owe udhaar, largest balance first.",
		},
		{
			Name:        "update_selling_price",
			Description: "Change the selling price of a product by its ID.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"product_id": {Type: genai.TypeInteger, Description: "ID of the product"},
					"new_price":  {Type: genai.TypeNumber, Description: "New selling price"},
				},
				Required: []string{"product_id", "new_price"},
			},
		},
	}
}
