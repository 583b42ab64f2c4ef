package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/makerstall/payoutsapi/internal/config"
	"github.com/makerstall/payoutsapi/internal/domain"
)

// restOrderSource is the offset/date-boundary fallback over the Admin REST
// API. Pages are addressed by page number carried in the cursor string.
type restOrderSource struct {
	http       *resty.Client
	apiVersion string
	logger     *zap.Logger
}

// NewOrderSourceFromConfig builds the order source named by the configured
// transport. GraphQL is the default; REST exists for shops whose token lacks
// GraphQL order scopes.
func NewOrderSourceFromConfig(cfg config.ShopifyConfig, logger *zap.Logger) OrderSource {
	if cfg.Transport == "rest" {
		return NewRESTOrderSource(cfg, logger)
	}
	return NewGraphQLOrderSource(NewClient(cfg, logger), logger)
}

// NewRESTOrderSource creates the REST fallback order source.
func NewRESTOrderSource(cfg config.ShopifyConfig, logger *zap.Logger) OrderSource {
	shopDomain := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(cfg.ShopDomain, "https://"), "http://"), "/")
	client := resty.New().
		SetBaseURL(fmt.Sprintf("https://%s/admin/api/%s", shopDomain, cfg.APIVersion)).
		SetHeader("X-Shopify-Access-Token", cfg.AccessToken).
		SetTimeout(30 * time.Second)
	return &restOrderSource{http: client, apiVersion: cfg.APIVersion, logger: logger}
}

func (s *restOrderSource) FetchPage(ctx context.Context, productID string, rng domain.DateRange, pageSize int, cursor string) (*OrderPage, error) {
	page := 1
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, fmt.Errorf("invalid page cursor %q: %w", cursor, err)
		}
		page = parsed
	}

	resp, err := s.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"status":         "any",
			"limit":          strconv.Itoa(pageSize),
			"page":           strconv.Itoa(page),
			"created_at_min": rng.Start.UTC().Format(time.RFC3339),
			"created_at_max": rng.End.UTC().Format(time.RFC3339),
		}).
		Get("/orders.json")
	if err != nil {
		return nil, fmt.Errorf("orders REST request: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, throttleError(fmt.Errorf("orders REST request throttled: status 429"))
	default:
		return nil, fmt.Errorf("orders REST request status: %d", resp.StatusCode())
	}

	var payload struct {
		Orders []restOrder `json:"orders"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("parse orders REST response: %w", err)
	}

	out := &OrderPage{
		HasNext:    len(payload.Orders) == pageSize,
		NextCursor: strconv.Itoa(page + 1),
	}
	for _, raw := range payload.Orders {
		order, ok := normalizeRESTOrder(raw, s.logger)
		if !ok {
			continue
		}
		// REST cannot filter by line-item product, so drop unrelated orders here.
		if !orderReferencesProduct(order, productID) {
			continue
		}
		out.Orders = append(out.Orders, order)
	}
	return out, nil
}

func orderReferencesProduct(order domain.Order, productID string) bool {
	for _, li := range order.LineItems {
		if li.ShopifyProductID == productID {
			return true
		}
	}
	return false
}

type restOrder struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	CreatedAt       string `json:"created_at"`
	FinancialStatus string `json:"financial_status"`
	Customer        *struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
	} `json:"customer"`
	ShippingLines []struct {
		Price string `json:"price"`
	} `json:"shipping_lines"`
	LineItems []struct {
		ID        int64  `json:"id"`
		ProductID int64  `json:"product_id"`
		Title     string `json:"title"`
		Quantity  int    `json:"quantity"`
		Price     string `json:"price"`
	} `json:"line_items"`
	Refunds []struct {
		ID              int64  `json:"id"`
		CreatedAt       string `json:"created_at"`
		RefundLineItems []struct {
			LineItemID int64  `json:"line_item_id"`
			Subtotal   string `json:"subtotal"`
			LineItem   *struct {
				ProductID int64 `json:"product_id"`
			} `json:"line_item"`
		} `json:"refund_line_items"`
	} `json:"refunds"`
}

// normalizeRESTOrder converts one REST order payload into the canonical
// Order, mirroring normalizeGraphQLOrder for the offset/date-boundary shape.
func normalizeRESTOrder(raw restOrder, logger *zap.Logger) (domain.Order, bool) {
	createdAt, err := time.Parse(time.RFC3339, raw.CreatedAt)
	if err != nil {
		logger.Debug("Skipping REST order with unparsable created_at",
			zap.Int64("order_id", raw.ID),
			zap.String("created_at", raw.CreatedAt))
		return domain.Order{}, false
	}

	order := domain.Order{
		ExternalID:      strconv.FormatInt(raw.ID, 10),
		OrderNumber:     strings.TrimPrefix(raw.Name, "#"),
		CreatedAt:       createdAt,
		FinancialStatus: domain.FinancialStatus(strings.ToUpper(raw.FinancialStatus)),
	}
	if raw.Customer != nil {
		order.CustomerName = strings.TrimSpace(raw.Customer.FirstName + " " + raw.Customer.LastName)
		order.CustomerEmail = raw.Customer.Email
	}
	shipping := decimal.Zero
	for _, sl := range raw.ShippingLines {
		if amount, err := decimal.NewFromString(sl.Price); err == nil {
			shipping = shipping.Add(amount)
		}
	}
	order.ShippingTotal = shipping

	for _, li := range raw.LineItems {
		unitPrice := parseDecimal(li.Price)
		order.LineItems = append(order.LineItems, domain.LineItem{
			ID:               strconv.FormatInt(li.ID, 10),
			ShopifyProductID: strconv.FormatInt(li.ProductID, 10),
			Title:            li.Title,
			Quantity:         li.Quantity,
			UnitPrice:        unitPrice,
			LineRevenue:      unitPrice.Mul(decimal.NewFromInt(int64(li.Quantity))),
		})
	}

	lineProducts := make(map[string]string, len(order.LineItems))
	for _, li := range order.LineItems {
		lineProducts[li.ID] = li.ShopifyProductID
	}

	for _, r := range raw.Refunds {
		refund := domain.Refund{ID: strconv.FormatInt(r.ID, 10)}
		if t, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
			refund.CreatedAt = t
		}
		for _, rli := range r.RefundLineItems {
			lineItemID := strconv.FormatInt(rli.LineItemID, 10)
			productID := ""
			if rli.LineItem != nil && rli.LineItem.ProductID != 0 {
				productID = strconv.FormatInt(rli.LineItem.ProductID, 10)
			} else {
				productID = lineProducts[lineItemID]
			}
			refund.LineItems = append(refund.LineItems, domain.RefundLineItem{
				LineItemID:       lineItemID,
				ShopifyProductID: productID,
				RefundedSubtotal: parseDecimal(rli.Subtotal),
			})
		}
		order.Refunds = append(order.Refunds, refund)
	}

	return order, true
}

func parseDecimal(s string) decimal.Decimal {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return amount
}
