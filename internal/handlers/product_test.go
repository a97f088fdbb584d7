package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/farmmarket/apiserver/internal/services"
	"github.com/farmmarket/apiserver/internal/store"
	"github.com/farmmarket/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// -------- test fakes --------

type fakeProductRepo struct {
	byID   map[int]types.Product
	nextID int
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{byID: make(map[int]types.Product), nextID: 1}
}

func (f *fakeProductRepo) Get(ctx context.Context, id int) (types.Product, error) {
	product, ok := f.byID[id]
	if !ok {
		return types.Product{}, store.ErrNotFound
	}
	return product, nil
}

func (f *fakeProductRepo) Create(ctx context.Context, product types.Product) (types.Product, error) {
	product.ID = f.nextID
	f.nextID++
	if product.ImageURL == "" {
		product.ImageURL = types.DefaultImageURL
	}
	f.byID[product.ID] = product
	return product, nil
}

func (f *fakeProductRepo) SetImageURL(ctx context.Context, id int, imageURL string) error {
	product, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	product.ImageURL = imageURL
	f.byID[id] = product
	return nil
}

func newCatalogRouter(users *fakeUserRepo, products *fakeProductRepo) http.Handler {
	userService := services.NewUserService(users)
	productService := services.NewProductService(products, nil, nil, nil)
	authMiddleware := RequireAuth(testSecret)

	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, userService, testSecret)
	})
	router.Route("/products", func(r chi.Router) {
		ProductRouter(r, productService, userService, authMiddleware)
	})
	return router
}

func registerWithRole(t *testing.T, router http.Handler, email, role string) string {
	t.Helper()

	resp := doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Someone", "email": email, "password": "pw123", "role": role,
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	var payload TokenResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	return payload.Token
}

func postProductForm(t *testing.T, router http.Handler, token string, fields map[string]string, image []byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if image != nil {
		part, err := writer.CreateFormFile(formFieldImage, "photo.jpg")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/products", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

var validProductFields = map[string]string{
	"name":               "tomatoes",
	"description":        "vine ripened",
	"category":           "Vegetable",
	"price":              "3.5",
	"unit":               "kg",
	"quantity_available": "100",
}

// -------- tests --------

func TestCreateProduct_FarmerOnly(t *testing.T) {
	users := newFakeUserRepo()
	router := newCatalogRouter(users, newFakeProductRepo())

	buyer := registerWithRole(t, router, "buyer@example.com", types.RoleBuyer)
	resp := postProductForm(t, router, buyer, validProductFields, nil)
	require.Equal(t, http.StatusForbidden, resp.Code)

	farmer := registerWithRole(t, router, "farmer@example.com", types.RoleFarmer)
	resp = postProductForm(t, router, farmer, validProductFields, nil)
	require.Equal(t, http.StatusCreated, resp.Code)

	var created types.Product
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	require.Equal(t, "tomatoes", created.Name)
	require.Equal(t, 2, created.FarmerID)
	require.Equal(t, types.DefaultImageURL, created.ImageURL)
}

func TestCreateProduct_InvalidCategory(t *testing.T) {
	router := newCatalogRouter(newFakeUserRepo(), newFakeProductRepo())
	farmer := registerWithRole(t, router, "farmer@example.com", types.RoleFarmer)

	fields := map[string]string{}
	for k, v := range validProductFields {
		fields[k] = v
	}
	fields["category"] = "Gadget"

	resp := postProductForm(t, router, farmer, fields, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreateProduct_ImageUploadWithoutStorage(t *testing.T) {
	router := newCatalogRouter(newFakeUserRepo(), newFakeProductRepo())
	farmer := registerWithRole(t, router, "farmer@example.com", types.RoleFarmer)

	resp := postProductForm(t, router, farmer, validProductFields, []byte("not really a jpeg"))
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestGetProduct(t *testing.T) {
	products := newFakeProductRepo()
	router := newCatalogRouter(newFakeUserRepo(), products)

	_, err := products.Create(context.Background(), types.Product{Name: "tomatoes", Category: "Vegetable", Price: 3.5})
	require.NoError(t, err)

	resp := doJSON(t, router, http.MethodGet, "/products/1", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var product types.Product
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &product))
	require.Equal(t, "tomatoes", product.Name)

	missing := doJSON(t, router, http.MethodGet, "/products/99", "", nil)
	require.Equal(t, http.StatusNotFound, missing.Code)
}
