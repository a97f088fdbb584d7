package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/farmmarket/apiserver/internal/mq"
	"github.com/farmmarket/apiserver/internal/storage"
	"github.com/farmmarket/apiserver/types"
	"github.com/google/uuid"
)

// ProductCreatedChannel is the broker channel new-listing events go to.
const ProductCreatedChannel = "product.created"

// ErrImageStorageDisabled is returned when an image operation is attempted
// while no object storage backend is configured.
var ErrImageStorageDisabled = errors.New("image storage is not configured")

// ErrImageNotFound is returned when a product has no uploaded image.
var ErrImageNotFound = errors.New("product has no uploaded image")

// ProductRepository defines persistence operations for products.
type ProductRepository interface {
	Get(ctx context.Context, id int) (types.Product, error)
	Create(ctx context.Context, product types.Product) (types.Product, error)
	SetImageURL(ctx context.Context, id int, imageURL string) error
}

// ProductCreatedEvent is the payload published when a farmer lists a product.
type ProductCreatedEvent struct {
	ID       int     `json:"id"`
	FarmerID int     `json:"farmer_id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

// ProductService encapsulates product use-cases. Image storage and the
// event broker are optional; without them products still work, minus
// uploads and notifications.
type ProductService struct {
	repo   ProductRepository
	images *storage.Storage
	events *mq.MQ
	logger *slog.Logger
}

func NewProductService(repo ProductRepository, images *storage.Storage, events *mq.MQ, logger *slog.Logger) *ProductService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductService{
		repo:   repo,
		images: images,
		events: events,
		logger: logger,
	}
}

func (s *ProductService) Get(ctx context.Context, id int) (types.Product, error) {
	return s.repo.Get(ctx, id)
}

// Create persists the listing and publishes a product.created event.
// Publishing is best effort: a broker failure is logged, not surfaced.
func (s *ProductService) Create(ctx context.Context, product types.Product) (types.Product, error) {
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return types.Product{}, err
	}

	s.publishCreated(ctx, created)
	return created, nil
}

func (s *ProductService) publishCreated(ctx context.Context, product types.Product) {
	if s.events == nil {
		return
	}

	payload, err := json.Marshal(ProductCreatedEvent{
		ID:       product.ID,
		FarmerID: product.FarmerID,
		Name:     product.Name,
		Category: product.Category,
		Price:    product.Price,
	})
	if err != nil {
		s.logger.Error("marshal product.created event", "product_id", product.ID, "error", err)
		return
	}

	msgID, err := s.events.Publish(ctx, ProductCreatedChannel, payload, map[string]string{
		"category": product.Category,
	})
	if err != nil {
		s.logger.Warn("publish product.created event", "product_id", product.ID, "error", err)
		return
	}
	s.logger.Info("published product.created event", "product_id", product.ID, "message_id", msgID)
}

// SaveImage stores an uploaded product image in object storage under a
// fresh key and records that key on the product.
func (s *ProductService) SaveImage(ctx context.Context, productID int, filename, contentType string, data []byte) (string, error) {
	if s.images == nil {
		return "", ErrImageStorageDisabled
	}

	if _, err := s.repo.Get(ctx, productID); err != nil {
		return "", err
	}

	key := fmt.Sprintf("products/%s%s", uuid.NewString(), path.Ext(filename))
	if err := s.images.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", err
	}

	if err := s.repo.SetImageURL(ctx, productID, key); err != nil {
		return "", err
	}
	return key, nil
}

// OpenImage streams the stored image for the product. Products still on the
// default placeholder have no stored object; that is reported as
// store-level not found by the backend.
func (s *ProductService) OpenImage(ctx context.Context, productID int) (io.ReadCloser, string, error) {
	if s.images == nil {
		return nil, "", ErrImageStorageDisabled
	}

	product, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil, "", err
	}
	if product.ImageURL == "" || product.ImageURL == types.DefaultImageURL {
		return nil, "", ErrImageNotFound
	}

	reader, err := s.images.Get(ctx, product.ImageURL)
	if err != nil {
		return nil, "", err
	}
	return reader, product.ImageURL, nil
}
