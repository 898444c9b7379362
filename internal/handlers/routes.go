package handlers

import "github.com/gin-gonic/gin"

// Routes registers the public pages and the protected /dashboard group.
func (h *Handler) Routes(r gin.IRouter) {
	r.GET("/healthz", h.Healthz)

	// Auth routes
	r.GET("/login", h.LoginPage)
	r.POST("/login", h.HandleLogin)
	r.GET("/logout", h.Logout)

	dashboard := r.Group("/dashboard")
	dashboard.Use(h.AuthMiddleware())
	{
		dashboard.GET("", h.DashboardPage)
		dashboard.GET("/stores", h.StorePage)

		// Products
		dashboard.GET("/products", h.ProductsPage)
		dashboard.GET("/products/create", h.CreateProductPage)
		dashboard.POST("/products/create", h.HandleCreateProduct)
		dashboard.GET("/products/:id/edit", h.EditProductPage)
		dashboard.POST("/products/:id/edit", h.HandleUpdateProduct)
		dashboard.POST("/products/:id/delete", h.HandleDeleteProduct)

		// Sale invoices
		dashboard.GET("/sale-invoices", h.SaleInvoicesPage)
		dashboard.GET("/sale-invoices/create", h.CreateSaleInvoicePage)
		dashboard.POST("/sale-invoices/create", h.HandleCreateSaleInvoice)
		dashboard.GET("/sale-invoices/:id/details", h.SaleInvoiceDetailPage)
		dashboard.POST("/sale-invoices/:id/delete", h.HandleDeleteSaleInvoice)

		// Cart of the invoice being built
		dashboard.GET("/sale-invoices/cart", h.CartJSON)
		dashboard.POST("/sale-invoices/cart/add", h.CartAdd)
		dashboard.POST("/sale-invoices/cart/increment", h.CartIncrement)
		dashboard.POST("/sale-invoices/cart/decrement", h.CartDecrement)
		dashboard.POST("/sale-invoices/cart/remove", h.CartRemove)
		dashboard.POST("/sale-invoices/cart/reset", h.CartReset)
	}
}
