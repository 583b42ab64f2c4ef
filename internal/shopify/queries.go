package shopify

// OrdersByProductQuery fetches paid orders that reference a product, with
// line items and refund line items. The search string is built with
// fmt.Sprintf because Shopify's query parameter must be a string literal,
// not a variable.
const OrdersByProductQuery = `
query getOrdersByProduct($first: Int!, $after: String) {
  orders(first: $first, after: $after, query: "%s", sortKey: CREATED_AT, reverse: true) {
    pageInfo {
      hasNextPage
      endCursor
    }
    edges {
      node {
        id
        name
        createdAt
        displayFinancialStatus
        customer {
          displayName
          email
        }
        totalShippingPriceSet {
          shopMoney {
            amount
            currencyCode
          }
        }
        lineItems(first: 100) {
          edges {
            node {
              id
              title
              quantity
              product {
                id
              }
              originalUnitPriceSet {
                shopMoney {
                  amount
                }
              }
              discountedTotalSet {
                shopMoney {
                  amount
                }
              }
            }
          }
        }
        refunds {
          id
          createdAt
          refundLineItems(first: 100) {
            edges {
              node {
                lineItem {
                  id
                  product {
                    id
                  }
                }
                subtotalSet {
                  shopMoney {
                    amount
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}
`
