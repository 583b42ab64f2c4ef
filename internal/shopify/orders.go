package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/makerstall/payoutsapi/internal/domain"
)

// Tuning for the pagination plan. Large ranges trade exhaustiveness for a
// bounded run time against the platform's request ceiling.
const (
	largeRangeDays      = 90
	smallRangePageSize  = 50
	smallRangePageLimit = 20
	largeRangePageSize  = 20
	largeRangePageLimit = 10
	largeRangeOrderCap  = 30
	interPageDelay      = 600 * time.Millisecond
	largeRangePageDelay = time.Second
)

// OrderPage is one normalized page of orders plus pagination state.
type OrderPage struct {
	Orders     []domain.Order
	NextCursor string
	HasNext    bool
}

// OrderSource produces normalized order pages for a product and date range.
// Both the cursor-paginated GraphQL query and the REST date-boundary fallback
// implement it; raw payload shapes never escape the source.
type OrderSource interface {
	FetchPage(ctx context.Context, productID string, rng domain.DateRange, pageSize int, cursor string) (*OrderPage, error)
}

// OrderFetcher walks an OrderSource page by page under a retry policy,
// keeping each run inside the platform's rate ceiling.
type OrderFetcher struct {
	source OrderSource
	retry  RetryPolicy
	logger *zap.Logger

	// sleep is swapped out in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrderFetcher creates a fetcher over the given source.
func NewOrderFetcher(source OrderSource, retry RetryPolicy, logger *zap.Logger) *OrderFetcher {
	return &OrderFetcher{
		source: source,
		retry:  retry,
		logger: logger,
		sleep:  sleepContext,
	}
}

// FetchOrders returns the orders referencing productID inside rng, already
// filtered to payment-indicating financial statuses and in the platform's
// natural (date-descending) order.
//
// A page error after at least one successful page terminates early and
// returns what was collected; a page error with zero prior progress returns
// the error and no orders.
func (f *OrderFetcher) FetchOrders(ctx context.Context, productID string, rng domain.DateRange) ([]domain.Order, error) {
	rng = rng.Normalize(time.Now().UTC())

	pageSize := smallRangePageSize
	pageLimit := smallRangePageLimit
	large := rng.Days() > largeRangeDays
	if large {
		pageSize = largeRangePageSize
		pageLimit = largeRangePageLimit
	}

	var collected []domain.Order
	cursor := ""

	for page := 0; page < pageLimit; page++ {
		if page > 0 {
			delay := interPageDelay
			if large {
				delay += largeRangePageDelay
			}
			if err := f.sleep(ctx, delay); err != nil {
				return collected, err
			}
		}

		var result *OrderPage
		err := f.retry.Do(ctx, func() error {
			var pageErr error
			result, pageErr = f.source.FetchPage(ctx, productID, rng, pageSize, cursor)
			return pageErr
		})
		if err != nil {
			if len(collected) > 0 {
				f.logger.Warn("Order pagination failed mid-run, returning partial results",
					zap.String("product_id", productID),
					zap.Int("pages_fetched", page),
					zap.Int("orders_collected", len(collected)),
					zap.Error(err))
				return collected, nil
			}
			return nil, err
		}

		for _, order := range result.Orders {
			if !order.FinancialStatus.IndicatesPayment() {
				continue
			}
			collected = append(collected, order)
		}

		if !result.HasNext || result.NextCursor == "" {
			break
		}
		cursor = result.NextCursor

		if large && len(collected) > largeRangeOrderCap {
			f.logger.Debug("Large-range order cap reached, stopping pagination early",
				zap.String("product_id", productID),
				zap.Int("orders_collected", len(collected)))
			break
		}
	}

	return collected, nil
}

// graphQLOrderSource is the cursor-paginated order source.
type graphQLOrderSource struct {
	client *Client
	logger *zap.Logger
}

// NewGraphQLOrderSource creates the default (cursor-paginated) order source.
func NewGraphQLOrderSource(client *Client, logger *zap.Logger) OrderSource {
	return &graphQLOrderSource{client: client, logger: logger}
}

func (s *graphQLOrderSource) FetchPage(ctx context.Context, productID string, rng domain.DateRange, pageSize int, cursor string) (*OrderPage, error) {
	search := fmt.Sprintf("status:any line_items_product_id:%s created_at:>=%s created_at:<=%s",
		productID,
		rng.Start.UTC().Format("2006-01-02"),
		rng.End.UTC().Format("2006-01-02"))
	query := fmt.Sprintf(OrdersByProductQuery, search)

	variables := map[string]interface{}{"first": pageSize}
	if cursor != "" {
		variables["after"] = cursor
	}

	resp, err := s.client.Execute(ctx, query, variables)
	if err != nil {
		return nil, fmt.Errorf("orders page query: %w", err)
	}

	var result struct {
		Orders struct {
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
			Edges []struct {
				Node graphQLOrderNode `json:"node"`
			} `json:"edges"`
		} `json:"orders"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("parse orders page response: %w", err)
	}

	page := &OrderPage{
		NextCursor: result.Orders.PageInfo.EndCursor,
		HasNext:    result.Orders.PageInfo.HasNextPage,
	}
	for _, edge := range result.Orders.Edges {
		order, ok := normalizeGraphQLOrder(edge.Node, s.logger)
		if !ok {
			continue
		}
		page.Orders = append(page.Orders, order)
	}
	return page, nil
}

type graphQLOrderNode struct {
	ID                     string `json:"id"`
	Name                   string `json:"name"`
	CreatedAt              string `json:"createdAt"`
	DisplayFinancialStatus string `json:"displayFinancialStatus"`
	Customer               *struct {
		DisplayName string `json:"displayName"`
		Email       string `json:"email"`
	} `json:"customer"`
	TotalShippingPriceSet *moneySet `json:"totalShippingPriceSet"`
	LineItems             struct {
		Edges []struct {
			Node struct {
				ID       string `json:"id"`
				Title    string `json:"title"`
				Quantity int    `json:"quantity"`
				Product  *struct {
					ID string `json:"id"`
				} `json:"product"`
				OriginalUnitPriceSet *moneySet `json:"originalUnitPriceSet"`
				DiscountedTotalSet   *moneySet `json:"discountedTotalSet"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"lineItems"`
	Refunds []struct {
		ID              string `json:"id"`
		CreatedAt       string `json:"createdAt"`
		RefundLineItems struct {
			Edges []struct {
				Node struct {
					LineItem *struct {
						ID      string `json:"id"`
						Product *struct {
							ID string `json:"id"`
						} `json:"product"`
					} `json:"lineItem"`
					SubtotalSet *moneySet `json:"subtotalSet"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"refundLineItems"`
	} `json:"refunds"`
}

type moneySet struct {
	ShopMoney struct {
		Amount       string `json:"amount"`
		CurrencyCode string `json:"currencyCode"`
	} `json:"shopMoney"`
}

func (m *moneySet) decimal() decimal.Decimal {
	if m == nil {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(m.ShopMoney.Amount)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// normalizeGraphQLOrder converts one GraphQL order node into the canonical
// Order. An order with an unparsable createdAt is skipped with a diagnostic
// rather than failing the page.
func normalizeGraphQLOrder(node graphQLOrderNode, logger *zap.Logger) (domain.Order, bool) {
	createdAt, err := time.Parse(time.RFC3339, node.CreatedAt)
	if err != nil {
		logger.Debug("Skipping order with unparsable createdAt",
			zap.String("order_id", node.ID),
			zap.String("created_at", node.CreatedAt))
		return domain.Order{}, false
	}

	order := domain.Order{
		ExternalID:      extractNumericGID(node.ID),
		OrderNumber:     strings.TrimPrefix(node.Name, "#"),
		CreatedAt:       createdAt,
		FinancialStatus: domain.FinancialStatus(strings.ToUpper(node.DisplayFinancialStatus)),
		ShippingTotal:   node.TotalShippingPriceSet.decimal(),
	}
	if node.Customer != nil {
		order.CustomerName = node.Customer.DisplayName
		order.CustomerEmail = node.Customer.Email
	}

	for _, edge := range node.LineItems.Edges {
		li := edge.Node
		productID := ""
		if li.Product != nil {
			productID = extractNumericGID(li.Product.ID)
		}
		unitPrice := li.OriginalUnitPriceSet.decimal()
		lineRevenue := li.DiscountedTotalSet.decimal()
		if lineRevenue.IsZero() {
			lineRevenue = unitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
		}
		order.LineItems = append(order.LineItems, domain.LineItem{
			ID:               extractNumericGID(li.ID),
			ShopifyProductID: productID,
			Title:            li.Title,
			Quantity:         li.Quantity,
			UnitPrice:        unitPrice,
			LineRevenue:      lineRevenue,
		})
	}

	for _, r := range node.Refunds {
		refund := domain.Refund{ID: extractNumericGID(r.ID)}
		if t, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
			refund.CreatedAt = t
		}
		for _, edge := range r.RefundLineItems.Edges {
			rli := edge.Node
			if rli.LineItem == nil {
				continue
			}
			productID := ""
			if rli.LineItem.Product != nil {
				productID = extractNumericGID(rli.LineItem.Product.ID)
			}
			refund.LineItems = append(refund.LineItems, domain.RefundLineItem{
				LineItemID:       extractNumericGID(rli.LineItem.ID),
				ShopifyProductID: productID,
				RefundedSubtotal: rli.SubtotalSet.decimal(),
			})
		}
		order.Refunds = append(order.Refunds, refund)
	}

	return order, true
}

// extractNumericGID returns the trailing numeric id of a Shopify GID
// (gid://shopify/Order/123 -> "123"). Non-GID input passes through unchanged.
func extractNumericGID(gid string) string {
	if !strings.HasPrefix(gid, "gid://") {
		return gid
	}
	parts := strings.Split(gid, "/")
	last := parts[len(parts)-1]
	if _, err := strconv.ParseInt(last, 10, 64); err != nil {
		return gid
	}
	return last
}
