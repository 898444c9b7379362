package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"kasir/internal/database"
	"kasir/internal/metrics"
	"kasir/internal/models"
	"kasir/internal/services"
	"kasir/internal/session"
	"kasir/web"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	db     *database.SQLDatabase
	store  *models.Store
	cookie string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	log := zerolog.Nop()

	db, err := database.Open(ctx, database.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "kasir.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())
	require.NoError(t, db.Seed(ctx))

	demo, err := db.GetUserByEmail(ctx, database.DemoEmail)
	require.NoError(t, err)
	store, err := db.GetStoreByUserID(ctx, demo.ID)
	require.NoError(t, err)

	sessions := session.NewMemoryStore(time.Hour)
	images, err := services.NewDiskImageStore(t.TempDir())
	require.NoError(t, err)
	invoices := services.NewInvoiceService(db, services.NewEmailService(services.MailConfig{}, log), metrics.New(), log)
	t.Cleanup(invoices.Wait)

	h := NewHandler(Options{
		DB:         db,
		Sessions:   sessions,
		SessionTTL: time.Hour,
		Catalog:    services.NewCatalogService(db, images, log),
		Invoices:   invoices,
		Cart:       services.NewCartService(db, sessions, log),
		Security:   services.NewSecurityLogger(log),
		Log:        log,
	})

	renderer, err := LoadTemplates(web.FS)
	require.NoError(t, err)

	r := gin.New()
	r.HTMLRender = renderer
	r.Use(session.Middleware(sessions, time.Hour, log))
	h.Routes(r)
	r.NoRoute(h.NotFound)

	return &testServer{t: t, router: r, db: db, store: store}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	s.t.Helper()
	if s.cookie != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: s.cookie})
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			s.cookie = c.Value
		}
	}
	return w
}

func (s *testServer) get(path string) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (s *testServer) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

func (s *testServer) postJSON(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return s.do(req)
}

func (s *testServer) login() {
	s.t.Helper()
	w := s.post("/login", url.Values{"email": {database.DemoEmail}, "password": {database.DemoPassword}})
	require.Equal(s.t, http.StatusSeeOther, w.Code)
	require.Equal(s.t, "/dashboard", w.Header().Get("Location"))
}

func (s *testServer) product(name string) models.Product {
	s.t.Helper()
	products, err := s.db.FetchFilteredProducts(context.Background(), s.store.ID, name, 1)
	require.NoError(s.t, err)
	require.Len(s.t, products, 1)
	return products[0]
}

func (s *testServer) cart() services.CartSummary {
	s.t.Helper()
	w := s.get("/dashboard/sale-invoices/cart")
	require.Equal(s.t, http.StatusOK, w.Code)
	var sum services.CartSummary
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &sum))
	return sum
}

func productID(p models.Product) url.Values {
	return url.Values{"product_id": {strconv.FormatInt(p.ID, 10)}}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w := s.get("/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestDashboardRequiresLogin(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/dashboard", "/dashboard/products", "/dashboard/sale-invoices/create"} {
		w := s.get(path)
		assert.Equal(t, http.StatusSeeOther, w.Code, path)
		assert.Equal(t, "/login", w.Header().Get("Location"), path)
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	w := s.get("/login")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.post("/login", url.Values{"email": {database.DemoEmail}, "password": {"salah-sandi"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Email atau kata sandi salah.")

	w = s.post("/login", url.Values{"email": {"bukan-email"}, "password": {"x"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Format email tidak valid.")

	anonymous := s.cookie
	s.login()
	assert.NotEqual(t, anonymous, s.cookie, "sign-in must rotate the session id")

	w = s.get("/dashboard")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Jumlah Faktur")

	w = s.get("/login")
	assert.Equal(t, http.StatusSeeOther, w.Code)

	w = s.get("/logout")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	w = s.get("/dashboard")
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestStorePage(t *testing.T) {
	s := newTestServer(t)
	s.login()

	w := s.get("/dashboard/stores")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Toko Sembako Demo")
}

func TestProductsPage_SearchAndPaging(t *testing.T) {
	s := newTestServer(t)
	s.login()

	w := s.get("/dashboard/products?query=kopi")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Kopi Bubuk 165g")
	assert.NotContains(t, w.Body.String(), "Gula Pasir 1kg")

	w = s.get("/dashboard/products?page=2")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Teh Celup isi 25")
	assert.NotContains(t, w.Body.String(), "Beras Pandan Wangi 5kg")
	assert.Contains(t, w.Body.String(), "Halaman 2 dari 2")
}

func multipartRequest(t *testing.T, path string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("image", "gelas.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestProductLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.login()

	w := s.do(multipartRequest(t, "/dashboard/products/create", map[string]string{
		"registration_code": "BPOM 0001",
		"name":              "Gelas Kaca",
		"description":       "Gelas bening",
		"price":             "12.500,00",
		"quantity":          "8",
	}))
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard/products", w.Header().Get("Location"))

	w = s.get("/dashboard/products")
	assert.Contains(t, w.Body.String(), "Produk Gelas Kaca ditambahkan.")

	p := s.product("Gelas Kaca")
	assert.Equal(t, int64(1250000), p.Price)
	assert.Equal(t, 8, p.Quantity)
	assert.True(t, strings.HasPrefix(p.ImageURL, "/uploads/"))

	edit := "/dashboard/products/" + strconv.FormatInt(p.ID, 10) + "/edit"
	w = s.get(edit)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "12500.00")

	w = s.post(edit, url.Values{"name": {"Gelas Kaca Besar"}, "price": {"15000"}, "quantity": {"3"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	p = s.product("Gelas Kaca Besar")
	assert.Equal(t, int64(1500000), p.Price)
	assert.NotEmpty(t, p.ImageURL, "an edit without a new file keeps the image")

	w = s.post("/dashboard/products/"+strconv.FormatInt(p.ID, 10)+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	_, err := s.db.GetProduct(context.Background(), s.store.ID, p.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreateProduct_Validation(t *testing.T) {
	s := newTestServer(t)
	s.login()

	w := s.post("/dashboard/products/create", url.Values{"price": {"1000"}, "quantity": {"1"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Wajib diisi.")

	w = s.post("/dashboard/products/create", url.Values{"name": {"Sabun"}, "price": {"abc"}, "quantity": {"1"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.post("/dashboard/products/create", url.Values{"name": {"Sabun"}, "price": {"1000"}, "quantity": {"-1"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestEditProduct_NotFound(t *testing.T) {
	s := newTestServer(t)
	s.login()

	assert.Equal(t, http.StatusNotFound, s.get("/dashboard/products/99999/edit").Code)
	assert.Equal(t, http.StatusNotFound, s.get("/dashboard/products/abc/edit").Code)
	assert.Equal(t, http.StatusNotFound, s.get("/dashboard/tidak-ada").Code)
}

func TestCartActions_JSON(t *testing.T) {
	s := newTestServer(t)
	s.login()
	kopi := s.product("Kopi Bubuk")
	teh := s.product("Teh Celup")

	w := s.postJSON("/dashboard/sale-invoices/cart/add", productID(kopi))
	require.Equal(t, http.StatusOK, w.Code)
	s.postJSON("/dashboard/sale-invoices/cart/add", productID(teh))
	s.postJSON("/dashboard/sale-invoices/cart/increment", productID(kopi))
	s.postJSON("/dashboard/sale-invoices/cart/increment", productID(kopi))
	s.postJSON("/dashboard/sale-invoices/cart/decrement", productID(kopi))

	sum := s.cart()
	require.Len(t, sum.Items, 2)
	assert.Equal(t, kopi.ID, sum.Items[0].ID)
	assert.Equal(t, 2, sum.Items[0].Quantity)
	assert.Equal(t, 3, sum.Count)
	assert.Equal(t, 2*kopi.Price+teh.Price, sum.Total)

	s.postJSON("/dashboard/sale-invoices/cart/remove", productID(teh))
	sum = s.cart()
	require.Len(t, sum.Items, 1)

	s.postJSON("/dashboard/sale-invoices/cart/reset", nil)
	assert.Empty(t, s.cart().Items)
}

func TestCartAdd_Refusals(t *testing.T) {
	s := newTestServer(t)
	s.login()

	w := s.postJSON("/dashboard/sale-invoices/cart/add", productID(s.product("Susu Kental")))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.postJSON("/dashboard/sale-invoices/cart/add", url.Values{"product_id": {"99999"}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.postJSON("/dashboard/sale-invoices/cart/add", url.Values{"product_id": {"x"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Empty(t, s.cart().Items)
}

func TestCartAdd_FormRedirectsBack(t *testing.T) {
	s := newTestServer(t)
	s.login()
	form := productID(s.product("Gula Pasir"))
	form.Set("return", "/dashboard/sale-invoices/create?page=2&query=gula")

	w := s.post("/dashboard/sale-invoices/cart/add", form)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard/sale-invoices/create?page=2&query=gula", w.Header().Get("Location"))

	form.Set("return", "https://evil.example/dashboard/sale-invoices/create")
	w = s.post("/dashboard/sale-invoices/cart/increment", form)
	assert.Equal(t, checkoutPath, w.Header().Get("Location"))

	w = s.get(checkoutPath)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Keranjang (2)")
}

func TestCreateSaleInvoice_Flow(t *testing.T) {
	s := newTestServer(t)
	s.login()
	kopi := s.product("Kopi Bubuk")

	s.postJSON("/dashboard/sale-invoices/cart/add", productID(kopi))
	s.postJSON("/dashboard/sale-invoices/cart/increment", productID(kopi))

	w := s.post(checkoutPath, nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard/sale-invoices", w.Header().Get("Location"))
	assert.Empty(t, s.cart().Items)

	rows, err := s.db.FetchFilteredSaleInvoices(context.Background(), s.store.ID, "", 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2*kopi.Price, rows[0].TotalAmount)
	assert.Equal(t, 2, rows[0].Quantity)

	w = s.get("/dashboard/sale-invoices")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dibuat.")

	detail := "/dashboard/sale-invoices/" + strconv.FormatInt(rows[0].ID, 10) + "/details"
	w = s.get(detail)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Kopi Bubuk 165g")

	w = s.get("/dashboard")
	assert.Contains(t, w.Body.String(), "Kopi Bubuk 165g")

	// a sold product cannot be deleted
	w = s.post("/dashboard/products/"+strconv.FormatInt(kopi.ID, 10)+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	w = s.get("/dashboard/products")
	assert.Contains(t, w.Body.String(), "sudah tercatat di faktur penjualan")

	w = s.post("/dashboard/sale-invoices/"+strconv.FormatInt(rows[0].ID, 10)+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, http.StatusNotFound, s.get(detail).Code)
}

func TestCreateSaleInvoice_EmptyCart(t *testing.T) {
	s := newTestServer(t)
	s.login()

	w := s.post(checkoutPath, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Keranjang masih kosong.")
}

func TestCreateSaleInvoice_StockChangedKeepsCart(t *testing.T) {
	s := newTestServer(t)
	s.login()
	mie := s.product("Mie Instan")

	s.postJSON("/dashboard/sale-invoices/cart/add", productID(mie))
	s.postJSON("/dashboard/sale-invoices/cart/increment", productID(mie))

	// stock drops below the cart quantity before submit
	mie.Quantity = 1
	require.NoError(t, s.db.UpdateProduct(context.Background(), &mie))

	w := s.post(checkoutPath, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Stok produk tidak mencukupi.")
	assert.Equal(t, 2, s.cart().Count)

	rows, err := s.db.FetchFilteredSaleInvoices(context.Background(), s.store.ID, "", 1)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCreateSaleInvoice_ProductDeletedKeepsCart(t *testing.T) {
	s := newTestServer(t)
	s.login()
	ctx := context.Background()
	teh := s.product("Teh Celup")
	kopi := s.product("Kopi Bubuk")

	s.postJSON("/dashboard/sale-invoices/cart/add", productID(teh))
	s.postJSON("/dashboard/sale-invoices/cart/add", productID(kopi))

	// the product goes away while it sits in the cart
	require.NoError(t, s.db.DeleteProduct(ctx, s.store.ID, teh.ID))

	w := s.post(checkoutPath, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Produk di keranjang sudah tidak tersedia.")
	assert.Equal(t, 2, s.cart().Count)

	rows, err := s.db.FetchFilteredSaleInvoices(ctx, s.store.ID, "", 1)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCartIncrement_TotalOutOfRange(t *testing.T) {
	s := newTestServer(t)
	s.login()
	emas := models.Product{StoreID: s.store.ID, Name: "Emas Batangan", Description: "Emas", Price: math.MaxInt64/2 + 1, Quantity: 5}
	require.NoError(t, s.db.CreateProduct(context.Background(), &emas))

	require.Equal(t, http.StatusOK, s.postJSON("/dashboard/sale-invoices/cart/add", productID(emas)).Code)

	w := s.postJSON("/dashboard/sale-invoices/cart/increment", productID(emas))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Total keranjang melebihi batas.")

	summary := s.cart()
	assert.Equal(t, 1, summary.Count)
	assert.Equal(t, emas.Price, summary.Total)
}

func TestSaleInvoiceDetail_NotFound(t *testing.T) {
	s := newTestServer(t)
	s.login()
	assert.Equal(t, http.StatusNotFound, s.get("/dashboard/sale-invoices/4242/details").Code)
	assert.Equal(t, http.StatusNotFound, s.post("/dashboard/sale-invoices/4242/delete", nil).Code)
}
