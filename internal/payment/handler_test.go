package payment_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/checkout-payments/internal/auth"
	paymentDatamodel "github.com/frahmantamala/checkout-payments/internal/core/datamodel/payment"
	gw "github.com/frahmantamala/checkout-payments/internal/core/datamodel/paymentgateway"
	paymentPkg "github.com/frahmantamala/checkout-payments/internal/payment"
	paymentPostgres "github.com/frahmantamala/checkout-payments/internal/payment/postgres"
	"github.com/frahmantamala/checkout-payments/internal/transport"
	"github.com/frahmantamala/checkout-payments/internal/transport/rest"
	"github.com/go-chi/chi"
)

type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

const pixBody = `{"payer_email": "buyer@example.com", "transaction_amount": 100.5, "payer_cpf": "12345678909"}`

var _ = Describe("Payment Handler Integration", func() {
	var (
		db        *gorm.DB
		gateway   *mockGateway
		router    *chi.Mux
		validator auth.TokenValidator
		tokens    *auth.JWTTokenService
	)

	newRouter := func() {
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		repo := paymentPostgres.NewPaymentRepository(db)
		service := paymentPkg.NewService(repo, gateway, nil, slogger)
		handler := paymentPkg.NewHandler(service, slogger)
		webhook := paymentPkg.NewWebhookHandler(transport.NewBaseHandler(slogger), service)

		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())

		router = chi.NewRouter()
		rest.RegisterAllRoutes(router, sqlDB, handler, webhook, validator, "*", slogger)
	}

	do := func(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	decodeError := func(w *httptest.ResponseRecorder) errorBody {
		var body errorBody
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		return body
	}

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)

		Expect(db.AutoMigrate(&paymentDatamodel.Payment{})).To(Succeed())

		gateway = &mockGateway{
			response: &gw.PaymentResponse{
				ID:     "123",
				Status: gw.StatusPending,
				Raw:    json.RawMessage(`{"id":123,"status":"pending","point_of_interaction":{"transaction_data":{"qr_code":"000201"}}}`),
			},
			info: &gw.PaymentResponse{ID: "123", Status: gw.StatusApproved, StatusDetail: gw.DetailAccredited},
		}
		validator = nil
		newRouter()
	})

	Describe("POST /payments/checkout/pix", func() {
		It("creates the payment and echoes the provider resource", func() {
			w := do(http.MethodPost, "/payments/checkout/pix", pixBody, map[string]string{"X-Idempotency-Key": "order-42"})

			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(w.Header().Get("Content-Type")).To(ContainSubstring("application/json"))

			var resp map[string]json.RawMessage
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(string(resp["payment"])).To(MatchJSON(`{"id":1,"amount":100.50,"transaction_id":"123","payment_method":"pix","payment_status":"pending"}`))
			Expect(string(resp["gateway"])).To(ContainSubstring("qr_code"))

			Expect(gateway.pixRequests).To(HaveLen(1))
			Expect(gateway.pixRequests[0].IdempotencyKey).To(Equal("order-42"))
		})

		It("rejects a malformed body", func() {
			w := do(http.MethodPost, "/payments/checkout/pix", `{"payer_email": `, nil)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeError(w).Error.Code).To(Equal("VALIDATION_FAILED"))
			Expect(gateway.pixRequests).To(BeEmpty())
		})

		It("rejects an oversized body", func() {
			body := `{"payer_email": "buyer@example.com", "payer_cpf": "12345678909", "transaction_amount": 10, "description": "` + strings.Repeat("a", 2<<20) + `"}`
			w := do(http.MethodPost, "/payments/checkout/pix", body, nil)

			Expect(w.Code).To(Equal(http.StatusRequestEntityTooLarge))
			Expect(decodeError(w).Error.Code).To(Equal("REQUEST_TOO_LARGE"))
			Expect(gateway.pixRequests).To(BeEmpty())
		})

		It("rejects an oversized notification with 413", func() {
			body := `{"action": "payment.updated", "type": "` + strings.Repeat("a", 2<<20) + `", "data": {"id": 123}}`
			w := do(http.MethodPost, "/payments/notification", body, nil)

			Expect(w.Code).To(Equal(http.StatusRequestEntityTooLarge))
			Expect(gateway.infoRequests).To(BeEmpty())
		})

		It("rejects a non-positive amount", func() {
			w := do(http.MethodPost, "/payments/checkout/pix", `{"payer_email": "buyer@example.com", "transaction_amount": 0, "payer_cpf": "12345678909"}`, nil)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(w.Body.String()).To(ContainSubstring("transaction_amount"))
		})
	})

	Describe("POST /payments/checkout/card", func() {
		It("stores an approved charge as paid", func() {
			gateway.response = &gw.PaymentResponse{ID: "987", Status: gw.StatusApproved, StatusDetail: gw.DetailAccredited}

			body := `{
				"payer_email": "buyer@example.com",
				"transaction_amount": "99.90",
				"card_number": "5031433215406351",
				"expiration_month": "11",
				"expiration_year": "2030",
				"security_code": "123",
				"cardholder_name": "APRO",
				"payer_cpf": "12345678909",
				"installments": 3
			}`
			w := do(http.MethodPost, "/payments/checkout/card", body, nil)

			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(w.Body.String()).To(ContainSubstring(`"payment_status":"paid"`))
			Expect(gateway.cardRequests[0].Installments).To(Equal(3))
		})
	})

	Describe("POST /payments/notification", func() {
		BeforeEach(func() {
			Expect(do(http.MethodPost, "/payments/checkout/pix", pixBody, nil).Code).To(Equal(http.StatusCreated))
		})

		It("re-reads the provider status and updates the payment", func() {
			w := do(http.MethodPost, "/payments/notification", `{"action": "payment.updated", "type": "payment", "data": {"id": 123}}`, nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			var result paymentPkg.NotificationResult
			Expect(json.NewDecoder(w.Body).Decode(&result)).To(Succeed())
			Expect(result.Message).To(Equal(paymentPkg.NotificationMessageUpdated))
			Expect(result.Status).To(Equal(paymentPkg.StatusPaid))
			Expect(result.Updated).To(BeTrue())

			var stored paymentDatamodel.Payment
			Expect(db.Where("transaction_id = ?", "123").First(&stored).Error).To(Succeed())
			Expect(stored.PaymentStatus).To(Equal(paymentPkg.StatusPaid))
		})

		It("accepts a string data.id", func() {
			w := do(http.MethodPost, "/payments/notification", `{"action": "payment.updated", "data": {"id": "123"}}`, nil)
			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("ignores other actions", func() {
			w := do(http.MethodPost, "/payments/notification", `{"action": "payment.created", "data": {"id": "123"}}`, nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(paymentPkg.NotificationMessageIgnored))
			Expect(gateway.infoRequests).To(BeEmpty())
		})

		It("ignores other actions whatever their data.id", func() {
			w := do(http.MethodPost, "/payments/notification", `{"action": "payment.created", "data": {"id": 1.5}}`, nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(paymentPkg.NotificationMessageIgnored))
			Expect(gateway.infoRequests).To(BeEmpty())
		})

		It("answers 400 for a fractional data.id on a payment update", func() {
			w := do(http.MethodPost, "/payments/notification", `{"action": "payment.updated", "data": {"id": 1.5}}`, nil)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeError(w).Error.Code).To(Equal("VALIDATION_FAILED"))
			Expect(gateway.infoRequests).To(BeEmpty())
		})

		It("answers 404 for an unknown payment", func() {
			w := do(http.MethodPost, "/payments/notification", `{"action": "payment.updated", "data": {"id": "999"}}`, nil)

			Expect(w.Code).To(Equal(http.StatusNotFound))
			Expect(decodeError(w).Error.Code).To(Equal("PAYMENT_NOT_FOUND"))
		})

		It("answers 400 for an unreadable body", func() {
			w := do(http.MethodPost, "/payments/notification", `not json`, nil)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeError(w).Error.Code).To(Equal("INVALID_NOTIFICATION"))
		})
	})

	Describe("administration routes", func() {
		BeforeEach(func() {
			Expect(do(http.MethodPost, "/payments/checkout/pix", pixBody, nil).Code).To(Equal(http.StatusCreated))
		})

		It("lists payments", func() {
			w := do(http.MethodGet, "/payments/list", "", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			var views []paymentPkg.PaymentView
			Expect(json.NewDecoder(w.Body).Decode(&views)).To(Succeed())
			Expect(views).To(HaveLen(1))
			Expect(views[0].TransactionID).To(Equal("123"))
			Expect(views[0].Amount.String()).To(Equal("100.50"))
		})

		It("gets a payment by id", func() {
			w := do(http.MethodGet, "/payments/1", "", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(`"transaction_id":"123"`))
		})

		It("rejects a non-numeric id", func() {
			w := do(http.MethodGet, "/payments/abc", "", nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeError(w).Error.Code).To(Equal("INVALID_PAYMENT_ID"))
		})

		It("deletes a payment once", func() {
			Expect(do(http.MethodDelete, "/payments/delete/1", "", nil).Code).To(Equal(http.StatusNoContent))

			w := do(http.MethodDelete, "/payments/delete/1", "", nil)
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		Context("when an admin token secret is configured", func() {
			BeforeEach(func() {
				var err error
				tokens, err = auth.NewJWTTokenService(strings.Repeat("s", 32), time.Hour)
				Expect(err).NotTo(HaveOccurred())
				validator = tokens
				newRouter()
			})

			It("requires a bearer token", func() {
				w := do(http.MethodGet, "/payments/list", "", nil)
				Expect(w.Code).To(Equal(http.StatusUnauthorized))
				Expect(decodeError(w).Error.Code).To(Equal("INVALID_TOKEN"))
			})

			It("requires the admin role", func() {
				token, err := tokens.IssueToken("support", "viewer")
				Expect(err).NotTo(HaveOccurred())

				w := do(http.MethodGet, "/payments/list", "", map[string]string{"Authorization": "Bearer " + token})
				Expect(w.Code).To(Equal(http.StatusForbidden))
			})

			It("accepts an admin token", func() {
				token, err := tokens.IssueToken("operator", auth.RoleAdmin)
				Expect(err).NotTo(HaveOccurred())

				w := do(http.MethodGet, "/payments/list", "", map[string]string{"Authorization": "Bearer " + token})
				Expect(w.Code).To(Equal(http.StatusOK))
			})

			It("keeps checkout and notifications public", func() {
				w := do(http.MethodPost, "/payments/notification", `{"action": "payment.updated", "data": {"id": "123"}}`, nil)
				Expect(w.Code).To(Equal(http.StatusOK))
			})
		})
	})

	Describe("health", func() {
		It("reports the database as healthy", func() {
			w := do(http.MethodGet, "/health", "", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(`"database"`))
		})
	})
})
