package router

import (
	"github.com/gin-gonic/gin"
	"github.com/marketplace/backend/internal/interfaces/http/handler"
)

// Handlers are the HTTP handlers mounted by the marketplace routes
type Handlers struct {
	Auth      *handler.AuthHandler
	Product   *handler.ProductHandler
	Vendor    *handler.VendorHandler
	Checkout  *handler.CheckoutHandler
	Payment   *handler.PaymentHandler
	Wallet    *handler.WalletHandler
	Settings  *handler.SettingsHandler
	Analytics *handler.AnalyticsHandler
	Realtime  *handler.RealtimeHandler
	System    *handler.SystemHandler
}

// Guards are the per-route middleware. Auth rejects anonymous callers,
// OptionalAuth attaches claims when present. AuthLimit throttles the
// credential endpoints and may be nil.
type Guards struct {
	Auth         gin.HandlerFunc
	OptionalAuth gin.HandlerFunc
	Vendor       gin.HandlerFunc
	Admin        gin.HandlerFunc
	Registered   gin.HandlerFunc
	AuthLimit    gin.HandlerFunc
}

func chain(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// MarketplaceGroups builds the /api/v1 domain groups
func MarketplaceGroups(h Handlers, g Guards) []RouteRegistrar {
	authRoutes := NewDomainGroup("auth", "/auth")
	authRoutes.POST("/register", chain(g.AuthLimit, h.Auth.Register)...)
	authRoutes.POST("/login", chain(g.AuthLimit, h.Auth.Login)...)
	authRoutes.POST("/refresh", chain(g.AuthLimit, h.Auth.RefreshToken)...)
	authRoutes.GET("/me", g.Auth, h.Auth.GetCurrentUser)
	authRoutes.POST("/logout", g.Auth, h.Auth.Logout)
	authRoutes.POST("/claim", chain(g.AuthLimit, g.Auth, h.Auth.ClaimGuestAccount)...)

	// Storefront reads; admins and owning vendors see more when signed in
	storefront := NewDomainGroup("storefront", "").Use(g.OptionalAuth)
	storefront.GET("/products", h.Product.ListProducts)
	storefront.GET("/products/:id", h.Product.GetProduct)
	storefront.GET("/products/:id/quote", h.Product.QuoteProduct)
	storefront.GET("/storefronts", h.Vendor.ListStorefronts)
	storefront.GET("/storefronts/:slug", h.Vendor.GetStorefront)
	storefront.GET("/settings", h.Settings.GetSettings)
	storefront.GET("/currencies", h.Settings.ListCurrencies)
	storefront.GET("/currencies/convert", h.Settings.ConvertAmount)
	storefront.POST("/checkout", h.Checkout.Checkout)
	storefront.POST("/analytics/visits", h.Analytics.RecordVisit)
	storefront.GET("/realtime", h.Realtime.ListTables)
	storefront.GET("/realtime/:table", h.Realtime.Stream)

	orders := NewDomainGroup("orders", "/orders").Use(g.Auth)
	orders.GET("", h.Checkout.ListMyOrders)
	orders.GET("/:id", h.Checkout.GetOrder)
	orders.POST("/:id/cancel", h.Checkout.CancelOrder)
	orders.GET("/:id/invoice", h.Checkout.GetInvoice)

	// Gateways call back without credentials; authenticity is checked per gateway
	payments := NewDomainGroup("payments", "/payments")
	payments.POST("/callback/:gateway", h.Payment.Callback)
	payments.GET("/transactions/:id", g.Auth, h.Payment.GetTransaction)

	vendors := NewDomainGroup("vendors", "/vendors")
	vendors.POST("/apply", chain(g.Auth, g.Registered, h.Vendor.Apply)...)

	vendor := NewDomainGroup("vendor", "/vendor").Use(g.Auth, g.Vendor)
	vendor.GET("/store", h.Vendor.GetMyStore)
	vendor.PUT("/store", h.Vendor.UpdateMyStore)
	vendor.GET("/products", h.Product.ListVendorProducts)
	vendor.POST("/products", h.Product.CreateProduct)
	vendor.PATCH("/products/:id", h.Product.UpdateProduct)
	vendor.DELETE("/products/:id", h.Product.ArchiveProduct)
	vendor.POST("/products/:id/images/upload-url", h.Product.RequestImageUpload)
	vendor.POST("/products/:id/images", h.Product.ConfirmImage)
	vendor.GET("/orders", h.Checkout.ListVendorOrders)
	vendor.PUT("/orders/:id/fulfilment", h.Checkout.UpdateFulfilment)
	vendor.GET("/wallet", h.Wallet.GetMyWallet)
	vendor.GET("/wallet/transactions", h.Wallet.ListTransactions)
	vendor.POST("/wallet/payouts", h.Wallet.RequestPayout)
	vendor.GET("/commissions", h.Wallet.ListMyCommissions)
	vendor.GET("/commissions/summary", h.Wallet.MyCommissionSummary)

	admin := NewDomainGroup("admin", "/admin").Use(g.Auth, g.Admin)
	admin.GET("/dashboard", h.Analytics.Dashboard)
	admin.PATCH("/settings", h.Settings.UpdateSettings)
	admin.PUT("/currencies", h.Settings.UpsertCurrency)
	admin.GET("/vendors", h.Vendor.AdminListVendors)
	admin.GET("/vendors/:id", h.Vendor.AdminGetVendor)
	admin.GET("/vendors/:id/wallet", h.Wallet.AdminGetWallet)
	admin.POST("/vendors/:id/approve", h.Vendor.ApproveVendor)
	admin.POST("/vendors/:id/reinstate", h.Vendor.ReinstateVendor)
	admin.POST("/vendors/:id/suspend", h.Vendor.SuspendVendor)
	admin.PUT("/vendors/:id/commission-exempt", h.Vendor.SetCommissionExempt)
	admin.GET("/orders", h.Checkout.AdminListOrders)
	admin.POST("/orders/:id/refund", h.Payment.RefundOrder)
	admin.GET("/commissions", h.Wallet.AdminListCommissions)
	admin.GET("/commissions/summary", h.Wallet.AdminCommissionSummary)

	system := NewDomainGroup("system", "/system")
	system.GET("/ping", h.System.Ping)
	system.GET("/info", h.System.GetSystemInfo)

	return []RouteRegistrar{authRoutes, storefront, orders, payments, vendors, vendor, admin, system}
}

// FunctionGroup serves the payment function outside the versioned API, at
// the path storefront clients already call
func FunctionGroup(h Handlers, g Guards) *DomainGroup {
	functions := NewDomainGroup("functions", "/functions/v1")
	functions.POST("/process-payment", g.Auth, h.Payment.ProcessPayment)
	return functions
}
