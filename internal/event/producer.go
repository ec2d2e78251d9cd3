package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vymjay/aprylo/internal/domain"
	pkgkafka "github.com/vymjay/aprylo/pkg/kafka"
)

// Kafka topics for storefront domain events.
var (
	TopicReviewCreated      = pkgkafka.Topic("review", "created")
	TopicCartUpdated        = pkgkafka.Topic("cart", "updated")
	TopicOrderCreated       = pkgkafka.Topic("order", "created")
	TopicOrderStatusChanged = pkgkafka.Topic("order", "status_changed")
	TopicProductLowStock    = pkgkafka.Topic("product", "low_stock")
)

// Source identifier for events originating from this service.
const Source = "aprylo-storefront"

// Publisher is the event surface the services depend on. Publishing is
// best-effort from the caller's point of view; failures are logged, never
// surfaced to the request.
type Publisher interface {
	PublishReviewCreated(ctx context.Context, review *domain.Review) error
	PublishCartUpdated(ctx context.Context, cart *domain.Cart) error
	PublishOrderCreated(ctx context.Context, order *domain.Order) error
	PublishOrderStatusChanged(ctx context.Context, orderID, from, to string) error
	PublishProductLowStock(ctx context.Context, variant *domain.ProductVariant) error
}

// ReviewCreatedData is the payload for a review.created event.
type ReviewCreatedData struct {
	ReviewID  string `json:"review_id"`
	ProductID string `json:"product_id"`
	UserID    string `json:"user_id"`
	Rating    int    `json:"rating"`
}

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	UserID      string `json:"user_id"`
	ItemCount   int    `json:"item_count"`
	TotalAmount int64  `json:"total_amount"`
	Currency    string `json:"currency"`
}

// OrderCreatedData is the payload for an order.created event.
type OrderCreatedData struct {
	OrderID     string `json:"order_id"`
	UserID      string `json:"user_id"`
	TotalAmount int64  `json:"total_amount"`
	Currency    string `json:"currency"`
	ItemCount   int    `json:"item_count"`
}

// OrderStatusChangedData is the payload for an order.status_changed event.
type OrderStatusChangedData struct {
	OrderID string `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// ProductLowStockData is the payload for a product.low_stock event.
type ProductLowStockData struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	SKU       string `json:"sku"`
	Stock     int    `json:"stock"`
}

// Producer publishes storefront domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	data := ReviewCreatedData{
		ReviewID:  review.ID,
		ProductID: review.ProductID,
		UserID:    review.UserID,
		Rating:    review.Rating,
	}
	return p.publish(ctx, TopicReviewCreated, review.ID, "review", data)
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	data := CartUpdatedData{
		UserID:      cart.UserID,
		ItemCount:   cart.ItemCount(),
		TotalAmount: cart.TotalAmount(),
		Currency:    cart.Currency,
	}
	return p.publish(ctx, TopicCartUpdated, cart.UserID, "cart", data)
}

// PublishOrderCreated publishes an order.created event.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	data := OrderCreatedData{
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency,
		ItemCount:   len(order.Items),
	}
	return p.publish(ctx, TopicOrderCreated, order.ID, "order", data)
}

// PublishOrderStatusChanged publishes an order.status_changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, orderID, from, to string) error {
	data := OrderStatusChangedData{OrderID: orderID, From: from, To: to}
	return p.publish(ctx, TopicOrderStatusChanged, orderID, "order", data)
}

// PublishProductLowStock publishes a product.low_stock event.
func (p *Producer) PublishProductLowStock(ctx context.Context, variant *domain.ProductVariant) error {
	data := ProductLowStockData{
		ProductID: variant.ProductID,
		VariantID: variant.ID,
		SKU:       variant.SKU,
		Stock:     variant.Stock,
	}
	return p.publish(ctx, TopicProductLowStock, variant.ID, "product", data)
}
