package paymentgateway_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	gw "github.com/frahmantamala/checkout-payments/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/checkout-payments/internal/paymentgateway"
)

type recordedRequest struct {
	Method  string
	Path    string
	Headers http.Header
	Body    map[string]interface{}
}

type fakeProvider struct {
	mu       sync.Mutex
	requests []recordedRequest
	respond  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Headers: r.Header.Clone()}
	raw, _ := io.ReadAll(r.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &rec.Body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()

	f.respond(w, r)
}

func (f *fakeProvider) Requests() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

var _ = Describe("Client", func() {
	var (
		provider *fakeProvider
		server   *httptest.Server
		client   *paymentgateway.Client
		ctx      context.Context
		now      time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
		provider = &fakeProvider{
			respond: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusCreated, `{"id": 123456789, "status": "pending", "status_detail": "pending_waiting_transfer"}`)
			},
		}
		server = httptest.NewServer(provider)

		lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		client = paymentgateway.NewClient(paymentgateway.Config{
			BaseURL:         server.URL + "/",
			AccessToken:     "TEST-token",
			NotificationURL: "https://shop.example.com/payments/notification",
			Location:        time.FixedZone("BRT", -3*60*60),
			Now:             func() time.Time { return now },
			NewID:           func() string { return "fixed-id" },
		}, lg)
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("PayWithPix", func() {
		It("posts a pix payment that expires in 30 minutes", func() {
			resp, err := client.PayWithPix(ctx, paymentgateway.PixRequest{
				Amount:         decimal.RequireFromString("100.50"),
				PayerEmail:     "buyer@example.com",
				PayerCPF:       "12345678909",
				Description:    "Pedido 42",
				IdempotencyKey: "client-key",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.ID.String()).To(Equal("123456789"))
			Expect(resp.Status).To(Equal(gw.StatusPending))
			Expect(string(resp.Raw)).To(ContainSubstring("pending_waiting_transfer"))

			reqs := provider.Requests()
			Expect(reqs).To(HaveLen(1))
			req := reqs[0]
			Expect(req.Method).To(Equal(http.MethodPost))
			Expect(req.Path).To(Equal("/v1/payments"))
			Expect(req.Headers.Get("Authorization")).To(Equal("Bearer TEST-token"))
			Expect(req.Headers.Get("Content-Type")).To(Equal("application/json"))
			Expect(req.Headers.Get("X-Idempotency-Key")).To(Equal("client-key"))

			Expect(req.Body["payment_method_id"]).To(Equal("pix"))
			Expect(req.Body["transaction_amount"]).To(BeNumerically("==", 100.5))
			Expect(req.Body["description"]).To(Equal("Pedido 42"))
			Expect(req.Body["date_of_expiration"]).To(Equal("2024-01-10T09:30:00.000-03:00"))
			Expect(req.Body["external_reference"]).To(Equal("ID-PIX-fixed-id"))
			Expect(req.Body["notification_url"]).To(Equal("https://shop.example.com/payments/notification"))

			payer := req.Body["payer"].(map[string]interface{})
			Expect(payer["email"]).To(Equal("buyer@example.com"))
			Expect(payer["identification"]).To(Equal(map[string]interface{}{"type": "CPF", "number": "12345678909"}))
		})

		It("generates an idempotency key and default description when none is given", func() {
			_, err := client.PayWithPix(ctx, paymentgateway.PixRequest{
				Amount:     decimal.NewFromInt(10),
				PayerEmail: "buyer@example.com",
				PayerCPF:   "12345678909",
			})
			Expect(err).NotTo(HaveOccurred())

			req := provider.Requests()[0]
			Expect(req.Headers.Get("X-Idempotency-Key")).To(Equal("fixed-id"))
			Expect(req.Body["description"]).To(Equal(gw.DefaultDescription))
		})
	})

	Describe("PayWithBoleto", func() {
		It("posts a boleto payment with the payer address and a 3 day expiration", func() {
			_, err := client.PayWithBoleto(ctx, paymentgateway.BoletoRequest{
				Amount:         decimal.RequireFromString("250.00"),
				PayerEmail:     "buyer@example.com",
				PayerFirstName: "Maria",
				PayerLastName:  "Silva",
				PayerCPF:       "12345678909",
				Address: gw.Address{
					ZipCode:      "01310-100",
					StreetName:   "Av. Paulista",
					StreetNumber: "1000",
					Neighborhood: "Bela Vista",
					City:         "Sao Paulo",
					FederalUnit:  "SP",
				},
			})
			Expect(err).NotTo(HaveOccurred())

			req := provider.Requests()[0]
			Expect(req.Body["payment_method_id"]).To(Equal("bolbradesco"))
			Expect(req.Body["date_of_expiration"]).To(Equal("2024-01-13T09:00:00.000-03:00"))
			Expect(req.Body["external_reference"]).To(Equal("ID-BOLETO-fixed-id"))

			payer := req.Body["payer"].(map[string]interface{})
			Expect(payer["first_name"]).To(Equal("Maria"))
			Expect(payer["last_name"]).To(Equal("Silva"))
			address := payer["address"].(map[string]interface{})
			Expect(address["zip_code"]).To(Equal("01310-100"))
			Expect(address["federal_unit"]).To(Equal("SP"))
		})

		It("honours an explicit number of days to expire", func() {
			_, err := client.PayWithBoleto(ctx, paymentgateway.BoletoRequest{
				Amount:       decimal.NewFromInt(1),
				PayerEmail:   "buyer@example.com",
				PayerCPF:     "12345678909",
				DaysToExpire: 1,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(provider.Requests()[0].Body["date_of_expiration"]).To(Equal("2024-01-11T09:00:00.000-03:00"))
		})
	})

	Describe("PayWithCard", func() {
		BeforeEach(func() {
			provider.respond = func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/v1/card_tokens":
					writeJSON(w, http.StatusCreated, `{"id": "card-token-1"}`)
				default:
					writeJSON(w, http.StatusCreated, `{"id": 987, "status": "approved", "status_detail": "accredited"}`)
				}
			}
		})

		It("tokenizes the card and then charges the token", func() {
			resp, err := client.PayWithCard(ctx, paymentgateway.CardRequest{
				Amount:     decimal.RequireFromString("99.90"),
				PayerEmail: "buyer@example.com",
				PayerCPF:   "12345678909",
				Card: gw.CardData{
					CardNumber:      "5031433215406351",
					ExpirationMonth: "11",
					ExpirationYear:  "2030",
					SecurityCode:    "123",
					Cardholder: gw.Cardholder{
						Name:           "APRO",
						Identification: gw.Identification{Type: "CPF", Number: "12345678909"},
					},
				},
				IdempotencyKey: "client-key",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.ID.String()).To(Equal("987"))
			Expect(resp.Status).To(Equal(gw.StatusApproved))

			reqs := provider.Requests()
			Expect(reqs).To(HaveLen(2))

			tokenReq := reqs[0]
			Expect(tokenReq.Path).To(Equal("/v1/card_tokens"))
			Expect(tokenReq.Headers.Get("X-Idempotency-Key")).To(BeEmpty())
			Expect(tokenReq.Body["card_number"]).To(Equal("5031433215406351"))
			Expect(tokenReq.Body["security_code"]).To(Equal("123"))

			payReq := reqs[1]
			Expect(payReq.Path).To(Equal("/v1/payments"))
			Expect(payReq.Headers.Get("X-Idempotency-Key")).To(Equal("client-key"))
			Expect(payReq.Body["token"]).To(Equal("card-token-1"))
			Expect(payReq.Body["installments"]).To(BeNumerically("==", 1))
			Expect(payReq.Body["statement_descriptor"]).To(Equal(gw.DefaultDescriptor))
			Expect(payReq.Body["external_reference"]).To(Equal("ID-CARTAO-fixed-id"))
			Expect(payReq.Body).NotTo(HaveKey("payment_method_id"))
			Expect(payReq.Body).NotTo(HaveKey("date_of_expiration"))
		})

		It("does not charge when tokenization is rejected", func() {
			provider.respond = func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusBadRequest, `{"message": "invalid card", "status": "rejected", "status_detail": "cc_rejected_bad_filled_card_number"}`)
			}

			_, err := client.PayWithCard(ctx, paymentgateway.CardRequest{
				Amount:     decimal.NewFromInt(10),
				PayerEmail: "buyer@example.com",
				PayerCPF:   "12345678909",
			})
			Expect(err).To(HaveOccurred())

			gwErr, ok := err.(*paymentgateway.GatewayError)
			Expect(ok).To(BeTrue())
			Expect(gwErr.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(gwErr.Status).To(Equal("rejected"))
			Expect(gwErr.StatusDetail).To(Equal("cc_rejected_bad_filled_card_number"))
			Expect(gwErr.Message).To(Equal("payment gateway error (400): " +
				paymentgateway.StatusMessages["rejected"] + " - " +
				paymentgateway.StatusDetailMessages["cc_rejected_bad_filled_card_number"]))

			Expect(provider.Requests()).To(HaveLen(1))
		})
	})

	Describe("GetPaymentInfo", func() {
		It("fetches the payment resource by id", func() {
			provider.respond = func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, `{"id": 555, "status": "approved", "status_detail": "accredited"}`)
			}

			resp, err := client.GetPaymentInfo(ctx, "555")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Status).To(Equal(gw.StatusApproved))
			Expect(resp.StatusDetail).To(Equal(gw.DetailAccredited))

			req := provider.Requests()[0]
			Expect(req.Method).To(Equal(http.MethodGet))
			Expect(req.Path).To(Equal("/v1/payments/555"))
			Expect(req.Headers.Get("Authorization")).To(Equal("Bearer TEST-token"))
		})

		It("rejects an empty id without calling the provider", func() {
			_, err := client.GetPaymentInfo(ctx, "  ")
			Expect(err).To(HaveOccurred())
			Expect(provider.Requests()).To(BeEmpty())
		})

		It("falls back to unknown status and detail when the error body has neither", func() {
			provider.respond = func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusNotFound, `{"message": "Payment not found"}`)
			}

			_, err := client.GetPaymentInfo(ctx, "1")
			gwErr, ok := err.(*paymentgateway.GatewayError)
			Expect(ok).To(BeTrue())
			Expect(gwErr.StatusCode).To(Equal(http.StatusNotFound))
			Expect(gwErr.Status).To(Equal("unknown"))
			Expect(gwErr.StatusDetail).To(Equal("unknown"))
			Expect(gwErr.Message).To(Equal("payment gateway error (404): Unknown status. - Unknown status."))
		})

		It("stringifies a numeric error status", func() {
			provider.respond = func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusNotFound, `{"message": "not found", "status": 404, "status_detail": "resource_missing"}`)
			}

			_, err := client.GetPaymentInfo(ctx, "1")
			gwErr := err.(*paymentgateway.GatewayError)
			Expect(gwErr.Status).To(Equal("404"))
			Expect(gwErr.Message).To(Equal("payment gateway error (404): Unknown error. - Unknown detail."))
		})

		It("keeps a non-JSON error body in the message", func() {
			provider.respond = func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, "upstream exploded")
			}

			_, err := client.GetPaymentInfo(ctx, "1")
			gwErr := err.(*paymentgateway.GatewayError)
			Expect(gwErr.StatusCode).To(Equal(http.StatusInternalServerError))
			Expect(gwErr.Message).To(ContainSubstring("upstream exploded"))
		})

		It("reports an unreadable success body as a bad gateway", func() {
			provider.respond = func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, `{"id": `)
			}

			_, err := client.GetPaymentInfo(ctx, "1")
			gwErr := err.(*paymentgateway.GatewayError)
			Expect(gwErr.StatusCode).To(Equal(http.StatusBadGateway))
		})

		It("reports transport failures as a bad gateway", func() {
			server.Close()

			_, err := client.GetPaymentInfo(ctx, "1")
			gwErr, ok := err.(*paymentgateway.GatewayError)
			Expect(ok).To(BeTrue())
			Expect(gwErr.StatusCode).To(Equal(http.StatusBadGateway))
			Expect(gwErr.Cause).To(HaveOccurred())
		})
	})
})
