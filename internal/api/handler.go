package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"farm-market/internal/checkout"
	"farm-market/internal/service"
	"farm-market/internal/store"
	"farm-market/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler contains HTTP handlers
type Handler struct {
	checkout     *checkout.Processor
	catalog      *service.CatalogService
	cart         *service.CartService
	orders       *service.OrderService
	ratings      *service.RatingService
	auth         *service.AuthService
	store        *store.Store
	requireToken bool
	uploadDir    string
}

// NewHandler creates a new HTTP handler
func NewHandler(
	checkoutProc *checkout.Processor,
	catalog *service.CatalogService,
	cart *service.CartService,
	orders *service.OrderService,
	ratings *service.RatingService,
	auth *service.AuthService,
	store *store.Store,
	requireToken bool,
	uploadDir string,
) *Handler {
	return &Handler{
		checkout:     checkoutProc,
		catalog:      catalog,
		cart:         cart,
		orders:       orders,
		ratings:      ratings,
		auth:         auth,
		store:        store,
		requireToken: requireToken,
		uploadDir:    uploadDir,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if h.uploadDir != "" {
		router.Static("/uploads", h.uploadDir)
	}

	v1 := router.Group("/api/v1")

	v1.POST("/signup", h.signup)
	v1.POST("/login", h.login)
	v1.GET("/crops", h.listCrops)
	v1.GET("/crops/:id", h.getCrop)
	v1.GET("/crops/:id/rating", h.getCropRating)

	protected := v1.Group("")
	if h.requireToken {
		protected.Use(authMiddleware(h.auth))
	}
	{
		protected.POST("/crops", h.createCrop)
		protected.PUT("/crops/:id", h.updateCrop)
		protected.DELETE("/crops/:id", h.deleteCrop)
		protected.POST("/crops/:id/rate", h.rateCrop)

		protected.POST("/cart", h.addToCart)
		protected.GET("/cart/:userId", h.getCart)
		protected.DELETE("/cart/:id", h.removeCartItem)
		protected.DELETE("/cart", h.clearCart)

		protected.POST("/checkout", h.checkoutHandler)
		protected.GET("/orders/:userId", h.getOrders)
		protected.GET("/farmer/orders/:farmerId", h.getFarmerSales)
	}
}

// healthCheck verifies the database is reachable
func (h *Handler) healthCheck(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().Unix()})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready", "time": time.Now().Unix()})
}

// --------------------------- auth ---------------------------

type signupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

func (h *Handler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required"})
		return
	}

	user, err := h.auth.Signup(c.Request.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Email already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to save user details"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Signup successful", "userId": user.ID})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and password are required"})
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid email or password"})
		case errors.Is(err, service.ErrRoleMismatch):
			c.JSON(http.StatusForbidden, gin.H{"message": "Role mismatch for this user"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Login failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Login successful",
		"userId":   result.UserID,
		"userType": result.Role,
		"token":    result.Token,
	})
}

// --------------------------- crops ---------------------------

func (h *Handler) createCrop(c *gin.Context) {
	name := c.PostForm("cropName")
	location := c.PostForm("location")
	quantity, qtyErr := strconv.Atoi(c.PostForm("quantity"))
	priceCents, priceErr := strconv.ParseInt(c.PostForm("priceCents"), 10, 64)
	farmerID, farmerErr := strconv.ParseInt(c.PostForm("farmerId"), 10, 64)

	file, fileErr := c.FormFile("image")
	if name == "" || location == "" || qtyErr != nil || priceErr != nil || fileErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields, including image, are required"})
		return
	}
	if farmerErr != nil || farmerID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Valid farmerId is required"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Could not read image"})
		return
	}
	defer src.Close()

	crop, err := h.catalog.CreateCrop(c.Request.Context(), service.CreateCropRequest{
		Name:       name,
		Quantity:   quantity,
		Location:   location,
		PriceCents: priceCents,
		FarmerID:   farmerID,
	}, file.Filename, file.Size, src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to add crop"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Crop added successfully", "crop": crop})
}

func (h *Handler) listCrops(c *gin.Context) {
	filter := store.CropFilter{
		Query: c.Query("q"),
		Sort:  c.Query("sort"),
	}
	if v, err := strconv.ParseInt(c.Query("minPrice"), 10, 64); err == nil {
		filter.MinPrice = &v
	}
	if v, err := strconv.ParseInt(c.Query("maxPrice"), 10, 64); err == nil {
		filter.MaxPrice = &v
	}
	if v, err := strconv.ParseInt(c.Query("farmerId"), 10, 64); err == nil {
		filter.FarmerID = &v
	}

	crops, err := h.catalog.SearchCrops(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error retrieving crops"})
		return
	}
	c.JSON(http.StatusOK, crops)
}

func (h *Handler) getCrop(c *gin.Context) {
	cropID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid crop id"})
		return
	}

	crop, err := h.catalog.GetCrop(c.Request.Context(), cropID)
	if err != nil {
		if errors.Is(err, service.ErrCropNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Crop not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error retrieving crop"})
		return
	}
	c.JSON(http.StatusOK, crop)
}

type updateCropRequest struct {
	FarmerID   int64   `json:"farmerId" binding:"required"`
	Name       *string `json:"crop_name"`
	PriceCents *int64  `json:"price_cents"`
	Quantity   *int    `json:"quantity"`
	Location   *string `json:"location"`
}

func (h *Handler) updateCrop(c *gin.Context) {
	cropID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid crop id"})
		return
	}

	var req updateCropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "farmerId required"})
		return
	}

	upd := store.CropUpdate{
		Name:       req.Name,
		PriceCents: req.PriceCents,
		Quantity:   req.Quantity,
		Location:   req.Location,
	}
	if upd.Name == nil && upd.PriceCents == nil && upd.Quantity == nil && upd.Location == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No valid fields to update"})
		return
	}

	if err := h.catalog.UpdateCrop(c.Request.Context(), cropID, req.FarmerID, upd); err != nil {
		if errors.Is(err, service.ErrCropNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Crop not found or not owned by farmer"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update crop"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Crop updated"})
}

type deleteCropRequest struct {
	FarmerID int64 `json:"farmerId" binding:"required"`
}

func (h *Handler) deleteCrop(c *gin.Context) {
	cropID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid crop id"})
		return
	}

	var req deleteCropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "farmerId required"})
		return
	}

	if err := h.catalog.DeleteCrop(c.Request.Context(), cropID, req.FarmerID); err != nil {
		if errors.Is(err, service.ErrCropNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Crop not found or not owned by farmer"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete crop"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Crop deleted"})
}

// --------------------------- ratings ---------------------------

type rateCropRequest struct {
	UserID int64 `json:"userId" binding:"required"`
	Rating int   `json:"rating" binding:"required"`
}

func (h *Handler) rateCrop(c *gin.Context) {
	cropID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid cropId"})
		return
	}

	var req rateCropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid userId"})
		return
	}

	agg, err := h.ratings.RateCrop(c.Request.Context(), req.UserID, cropID, req.Rating)
	if err != nil {
		if errors.Is(err, service.ErrRatingOutOfRange) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Rating must be 1-5"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to save rating"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Rating saved",
		"avg_rating":   agg.AvgRating,
		"rating_count": agg.RatingCount,
	})
}

func (h *Handler) getCropRating(c *gin.Context) {
	cropID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid cropId"})
		return
	}

	agg, err := h.ratings.GetAggregate(c.Request.Context(), cropID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch rating"})
		return
	}
	c.JSON(http.StatusOK, agg)
}

// --------------------------- cart ---------------------------

type addToCartRequest struct {
	UserID   int64 `json:"userId" binding:"required"`
	CropID   int64 `json:"cropId" binding:"required"`
	Quantity int   `json:"quantity" binding:"required,min=1"`
}

func (h *Handler) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid cart payload"})
		return
	}

	merged, err := h.cart.AddToCart(c.Request.Context(), req.UserID, req.CropID, req.Quantity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to add to cart"})
		return
	}

	if merged {
		c.JSON(http.StatusOK, gin.H{"message": "Cart updated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Crop added to cart"})
}

func (h *Handler) getCart(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid userId"})
		return
	}

	entries, err := h.cart.GetCart(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch cart"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) removeCartItem(c *gin.Context) {
	cartID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid cart id"})
		return
	}
	userID, err := strconv.ParseInt(c.Query("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid userId"})
		return
	}

	if err := h.cart.RemoveItem(c.Request.Context(), cartID, userID); err != nil {
		if errors.Is(err, service.ErrCartItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Cart item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to remove cart item"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cart item removed"})
}

func (h *Handler) clearCart(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid userId"})
		return
	}

	if err := h.cart.Clear(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to clear cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

// --------------------------- checkout ---------------------------

type checkoutRequest struct {
	UserID int64           `json:"userId"`
	Items  []checkout.Line `json:"items"`
}

// checkoutHandler maps the checkout error taxonomy onto HTTP statuses. Any
// failure leaves stock and orders untouched, so the client may safely retry.
func (h *Handler) checkoutHandler(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid checkout payload"})
		return
	}

	result, err := h.checkout.Checkout(c.Request.Context(), req.UserID, req.Items)
	if err != nil {
		var invalidErr *checkout.InvalidRequestError
		var notFoundErr *checkout.CropNotFoundError
		var stockErr *checkout.InsufficientStockError

		switch {
		case errors.As(err, &invalidErr):
			c.JSON(http.StatusBadRequest, gin.H{"message": invalidErr.Error()})
		case errors.As(err, &notFoundErr):
			c.JSON(http.StatusBadRequest, gin.H{"message": notFoundErr.Error(), "cropId": notFoundErr.CropID})
		case errors.As(err, &stockErr):
			c.JSON(http.StatusBadRequest, gin.H{
				"message":   stockErr.Error(),
				"cropId":    stockErr.CropID,
				"available": stockErr.Available,
				"requested": stockErr.Requested,
			})
		case errors.Is(err, checkout.ErrTransactionStart):
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not start transaction"})
		case errors.Is(err, checkout.ErrCommitFailed):
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Checkout failed on commit"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error"})
		}
		return
	}

	// The purchase is committed; an unswept cart is only a cosmetic leftover.
	if err := h.cart.Clear(c.Request.Context(), req.UserID); err != nil {
		util.GetLogger().Warn("Failed to clear cart after checkout",
			zap.Int64("user_id", req.UserID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Checkout successful",
		"orderId":     result.OrderID,
		"total_cents": result.TotalCents,
	})
}

// --------------------------- orders ---------------------------

func (h *Handler) getOrders(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid userId"})
		return
	}

	history, err := h.orders.GetOrderHistory(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch orders"})
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *Handler) getFarmerSales(c *gin.Context) {
	farmerID, err := strconv.ParseInt(c.Param("farmerId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid farmerId"})
		return
	}

	sales, err := h.orders.GetFarmerSales(c.Request.Context(), farmerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch farmer sales history"})
		return
	}
	c.JSON(http.StatusOK, sales)
}
