package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Krchnk/gw-bank/internal/bank"
	"github.com/Krchnk/gw-bank/internal/currency"
	"github.com/Krchnk/gw-bank/internal/metrics"
	"github.com/Krchnk/gw-bank/internal/rates"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	SecretHeader    = "X-Account-Secret"
	RequestIDHeader = "X-Request-ID"
	accountsPath    = "/api/v1/accounts"
	accountKey      = "account"
)

var logger = logrus.New()

func init() {
	logger.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
}

// FeedStatus reports the health of the rate subscription.
type FeedStatus interface {
	State() rates.State
	Reconnects() int64
}

type Handler struct {
	registry *bank.Registry
	rates    *rates.Table
	feed     FeedStatus
	metrics  *metrics.BankMetrics
}

// NewHandler builds the HTTP boundary. A nil m records metrics into a
// private registry that is never exposed.
func NewHandler(registry *bank.Registry, table *rates.Table, feed FeedStatus, m *metrics.BankMetrics) *Handler {
	if m == nil {
		m = metrics.NewBankMetrics(prometheus.NewRegistry())
	}
	return &Handler{
		registry: registry,
		rates:    table,
		feed:     feed,
		metrics:  m,
	}
}

// RegisterRoutes mounts the registry and account operations on router.
// Identifiers are opaque, so handles are matched on the escaped path to keep
// an encoded "/" inside the identifier segment.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.UseRawPath = true
	router.UnescapePathValues = true
	router.NoRoute(h.operationNotFound)
	router.GET("/healthz", h.Health)

	api := router.Group("/api/v1")
	{
		api.GET("/rates", h.GetRates)
		api.POST("/accounts", h.Register)
		api.POST("/accounts/recover", h.Recover)

		account := api.Group("/accounts/:identifier", h.AccountMiddleware())
		{
			account.GET("/balance", h.GetBalance)
			account.POST("/deposit", h.Deposit)
			account.POST("/withdraw", h.Withdraw)
			account.POST("/credit-offer", h.CreditOffer)
		}
	}
}

type registrationResponse struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Identifier    string `json:"identifier"`
	Secret        string `json:"secret"`
	BaseCurrency  string `json:"baseCurrency"`
	AccountType   string `json:"accountType"`
	AccountHandle string `json:"accountHandle"`
}

func newRegistrationResponse(r bank.Registration) registrationResponse {
	return registrationResponse{
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Identifier:    r.Identifier,
		Secret:        r.Secret,
		BaseCurrency:  r.BaseCurrency.String(),
		AccountType:   string(r.Type),
		AccountHandle: accountsPath + "/" + url.PathEscape(r.Identifier),
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req struct {
		FirstName             string  `json:"firstName" binding:"required"`
		LastName              string  `json:"lastName" binding:"required"`
		Identifier            string  `json:"identifier" binding:"required"`
		DeclaredMonthlyIncome float64 `json:"declaredMonthlyIncome" binding:"gte=0"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WithError(err).Error("failed to bind registration request")
		h.badRequest(c, err)
		return
	}

	logger.WithField("identifier", req.Identifier).Info("registration attempt")

	res, err := h.registry.Register(c.Request.Context(), req.FirstName, req.LastName, req.Identifier, decimal.NewFromFloat(req.DeclaredMonthlyIncome))
	h.metrics.ObserveOperation("register", err)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.metrics.AccountsRegistered.WithLabelValues(string(res.Type)).Inc()
	c.JSON(http.StatusCreated, newRegistrationResponse(res))
}

func (h *Handler) Recover(c *gin.Context) {
	var req struct {
		Identifier string `json:"identifier" binding:"required"`
		Secret     string `json:"secret"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WithError(err).Error("failed to bind recovery request")
		h.badRequest(c, err)
		return
	}

	res, err := h.registry.Recover(c.Request.Context(), req.Identifier, req.Secret)
	h.metrics.ObserveOperation("recover", err)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, newRegistrationResponse(res))
}

// AccountMiddleware resolves the account handle in the path. Unknown
// identifiers are rejected like a wrong secret.
func (h *Handler) AccountMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := c.Param("identifier")
		acc, ok := h.registry.Account(identifier)
		if !ok {
			logger.WithField("identifier", identifier).Warn("request for unknown account")
			h.fail(c, bank.ErrAuthentication)
			c.Abort()
			return
		}
		c.Set(accountKey, acc)
		c.Next()
	}
}

func (h *Handler) GetBalance(c *gin.Context) {
	acc := c.MustGet(accountKey).(bank.Account)
	if !h.authenticate(c, acc, "balance") {
		return
	}

	ledger, err := acc.Balance(c.Request.Context(), secret(c))
	h.metrics.ObserveOperation("balance", err)
	if err != nil {
		h.fail(c, err)
		return
	}

	balance := make(map[string]float64, len(ledger))
	for cur, amount := range ledger {
		balance[cur.String()] = amount.InexactFloat64()
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

type moneyRequest struct {
	Currency string  `json:"currency" binding:"required"`
	Amount   float64 `json:"amount"`
}

func (h *Handler) Deposit(c *gin.Context) {
	acc := c.MustGet(accountKey).(bank.Account)
	if !h.authenticate(c, acc, "deposit") {
		return
	}

	var req moneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WithError(err).Error("failed to bind deposit request")
		h.badRequest(c, err)
		return
	}

	err := acc.Deposit(c.Request.Context(), secret(c), currencyCode(req.Currency), decimal.NewFromFloat(req.Amount))
	h.metrics.ObserveOperation("deposit", err)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Deposit successful"})
}

func (h *Handler) Withdraw(c *gin.Context) {
	acc := c.MustGet(accountKey).(bank.Account)
	if !h.authenticate(c, acc, "withdraw") {
		return
	}

	var req moneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WithError(err).Error("failed to bind withdraw request")
		h.badRequest(c, err)
		return
	}

	err := acc.Withdraw(c.Request.Context(), secret(c), currencyCode(req.Currency), decimal.NewFromFloat(req.Amount))
	h.metrics.ObserveOperation("withdraw", err)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Withdrawal successful"})
}

// CreditOffer only exists on premium handles; standard handles answer like
// an unknown route.
func (h *Handler) CreditOffer(c *gin.Context) {
	premium, ok := c.MustGet(accountKey).(bank.PremiumAccount)
	if !ok {
		h.operationNotFound(c)
		return
	}
	if !h.authenticate(c, premium, "credit_offer") {
		return
	}

	var req struct {
		Currency       string  `json:"currency" binding:"required"`
		Amount         float64 `json:"amount"`
		MonthsDuration int     `json:"monthsDuration"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WithError(err).Error("failed to bind credit offer request")
		h.badRequest(c, err)
		return
	}

	offer, err := premium.CreditOffer(c.Request.Context(), secret(c), currencyCode(req.Currency), decimal.NewFromFloat(req.Amount), req.MonthsDuration)
	h.metrics.ObserveOperation("credit_offer", err)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"foreignCurrencyCost": offer.ForeignCurrencyCost.InexactFloat64(),
		"baseCurrencyCost":    offer.BaseCurrencyCost.InexactFloat64(),
	})
}

func (h *Handler) GetRates(c *gin.Context) {
	snapshot := h.rates.Snapshot()
	out := make(map[string]float64, len(snapshot))
	for cur, v := range snapshot {
		out[cur.String()] = v
	}

	c.JSON(http.StatusOK, gin.H{
		"baseCurrency": h.registry.BaseCurrency().String(),
		"rates":        out,
		"feedState":    h.feed.State().String(),
		"reconnects":   h.feed.Reconnects(),
	})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"feedState": h.feed.State().String(),
	})
}

// LoggingMiddleware tags each request with an id and logs its outcome.
func (h *Handler) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       path,
			"request_id": requestID,
		}).Info("request received")

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		h.metrics.RequestDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Observe(duration.Seconds())

		fields := logrus.Fields{
			"method":     c.Request.Method,
			"path":       path,
			"status":     status,
			"duration":   duration,
			"request_id": requestID,
		}

		if len(c.Errors) > 0 {
			logger.WithFields(fields).WithError(c.Errors.Last()).Error("request failed")
		} else {
			logger.WithFields(fields).Info("request completed")
		}
	}
}

// authenticate rejects a wrong secret before the request body is looked at.
func (h *Handler) authenticate(c *gin.Context, acc bank.Account, operation string) bool {
	if err := acc.Authenticate(secret(c)); err != nil {
		h.metrics.ObserveOperation(operation, err)
		h.fail(c, err)
		return false
	}
	return true
}

func (h *Handler) operationNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "operation not found", "code": "OPERATION_NOT_FOUND"})
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "code": "INVALID_REQUEST"})
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, code := classify(err)
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, bank.ErrAuthentication):
		return http.StatusUnauthorized, "AUTHENTICATION_FAILED"
	case errors.Is(err, bank.ErrAccountExists):
		return http.StatusConflict, "ACCOUNT_EXISTS"
	case errors.Is(err, bank.ErrUnsupportedCurrency):
		return http.StatusBadRequest, "UNSUPPORTED_CURRENCY"
	case errors.Is(err, bank.ErrInsufficientFunds):
		return http.StatusBadRequest, "INSUFFICIENT_FUNDS"
	case errors.Is(err, bank.ErrInvalidAmount):
		return http.StatusBadRequest, "INVALID_AMOUNT"
	case errors.Is(err, rates.ErrRateUnavailable):
		return http.StatusServiceUnavailable, "RATE_UNAVAILABLE"
	}
	return http.StatusInternalServerError, "INTERNAL"
}

func secret(c *gin.Context) string {
	return c.GetHeader(SecretHeader)
}

func currencyCode(code string) currency.Currency {
	return currency.Currency(strings.ToUpper(strings.TrimSpace(code)))
}
