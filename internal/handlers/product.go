package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/farmmarket/apiserver/internal/services"
	"github.com/farmmarket/apiserver/internal/store"
	"github.com/farmmarket/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const (
	maxMultipartMemory = 32 << 20
	maxImageBytes      = 8 << 20

	formFieldName        = "name"
	formFieldDescription = "description"
	formFieldCategory    = "category"
	formFieldPrice       = "price"
	formFieldUnit        = "unit"
	formFieldQuantity    = "quantity_available"
	formFieldImage       = "image"
)

// ImageFile represents an uploaded product image.
type ImageFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ProductHandler provides HTTP handlers for products.
type ProductHandler struct {
	productService *services.ProductService
	userService    *services.UserService
}

// NewProductHandler constructs a handler with the provided services.
func NewProductHandler(productService *services.ProductService, userService *services.UserService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		userService:    userService,
	}
}

// ProductRouter registers product routes on the given router. Reads are
// public; listing a product is restricted to farmers.
func ProductRouter(
	r chi.Router,
	productService *services.ProductService,
	userService *services.UserService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewProductHandler(productService, userService)

	if authMiddleware != nil {
		r.With(authMiddleware, handler.requireFarmer).Post("/", handler.CreateProduct)
	} else {
		r.With(handler.requireFarmer).Post("/", handler.CreateProduct)
	}
	r.Route("/{productID}", func(r chi.Router) {
		r.Get("/", handler.GetProduct)
		r.Get("/image", handler.GetProductImage)
	})
}

// GetProduct returns a single product by id.
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseProductID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch product")
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// CreateProduct lists a new product for the authenticated farmer.
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	farmerID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	req, err := parseProductForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.productService.Create(r.Context(), types.Product{
		FarmerID:          farmerID,
		Name:              req.Name,
		Description:       req.Description,
		Category:          req.Category,
		Price:             req.Price,
		Unit:              req.Unit,
		QuantityAvailable: req.QuantityAvailable,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	if req.Image.Data != nil {
		key, err := h.productService.SaveImage(r.Context(), created.ID, req.Image.Filename, req.Image.ContentType, req.Image.Data)
		if err != nil {
			if errors.Is(err, services.ErrImageStorageDisabled) {
				writeError(w, http.StatusServiceUnavailable, "image uploads are disabled")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to store product image")
			return
		}
		created.ImageURL = key
	}

	writeJSON(w, http.StatusCreated, created)
}

// GetProductImage streams the stored image for a product.
func (h *ProductHandler) GetProductImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseProductID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reader, key, err := h.productService.OpenImage(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound), errors.Is(err, services.ErrImageNotFound):
			writeError(w, http.StatusNotFound, "product image not found")
		case errors.Is(err, services.ErrImageStorageDisabled):
			writeError(w, http.StatusServiceUnavailable, "image storage is disabled")
		default:
			writeError(w, http.StatusInternalServerError, "failed to fetch product image")
		}
		return
	}
	defer reader.Close()

	if contentType := mime.TypeByExtension(path.Ext(key)); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	_, _ = io.Copy(w, reader)
}

// ProductUpsertRequest represents the parsed multipart form payload.
type ProductUpsertRequest struct {
	Name              string
	Description       string
	Category          string
	Price             float64
	Unit              string
	QuantityAvailable int
	Image             ImageFile
}

func parseProductID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "productID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid product id")
	}
	return id, nil
}

func parseProductForm(r *http.Request) (ProductUpsertRequest, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return ProductUpsertRequest{}, errors.New("invalid multipart form")
	}

	name := strings.TrimSpace(r.FormValue(formFieldName))
	if name == "" {
		return ProductUpsertRequest{}, errors.New("name is required")
	}

	description := strings.TrimSpace(r.FormValue(formFieldDescription))
	if description == "" {
		return ProductUpsertRequest{}, errors.New("description is required")
	}

	category := strings.TrimSpace(r.FormValue(formFieldCategory))
	if !types.ValidCategory(category) {
		return ProductUpsertRequest{}, errors.New("invalid category")
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue(formFieldPrice)), 64)
	if err != nil || price < 0 {
		return ProductUpsertRequest{}, errors.New("invalid price")
	}

	quantity, err := strconv.Atoi(strings.TrimSpace(r.FormValue(formFieldQuantity)))
	if err != nil || quantity < 0 {
		return ProductUpsertRequest{}, errors.New("invalid quantity available")
	}

	image, err := parseImageFile(r.MultipartForm)
	if err != nil {
		return ProductUpsertRequest{}, err
	}

	return ProductUpsertRequest{
		Name:              name,
		Description:       description,
		Category:          category,
		Price:             price,
		Unit:              strings.TrimSpace(r.FormValue(formFieldUnit)),
		QuantityAvailable: quantity,
		Image:             image,
	}, nil
}

func parseImageFile(form *multipart.Form) (ImageFile, error) {
	if form == nil {
		return ImageFile{}, nil
	}

	files := form.File[formFieldImage]
	if len(files) == 0 {
		return ImageFile{}, nil
	}
	if len(files) > 1 {
		return ImageFile{}, errors.New("only one image file is allowed")
	}

	fileHeader := files[0]
	file, err := fileHeader.Open()
	if err != nil {
		return ImageFile{}, fmt.Errorf("failed to read image file: %w", err)
	}

	data, err := readFileLimited(file, maxImageBytes)
	_ = file.Close()
	if err != nil {
		return ImageFile{}, err
	}

	return ImageFile{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}

func (h *ProductHandler) requireFarmer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		user, err := h.userService.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to load user")
			return
		}

		if !strings.EqualFold(user.Role, types.RoleFarmer) {
			writeError(w, http.StatusForbidden, "only farmers can add products")
			return
		}
		next.ServeHTTP(w, r)
	})
}
