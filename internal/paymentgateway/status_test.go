package paymentgateway_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/checkout-payments/internal/paymentgateway"
)

var _ = Describe("Status messages", func() {
	DescribeTable("StatusMessage",
		func(status, expected string) {
			Expect(paymentgateway.StatusMessage(status)).To(Equal(expected))
		},
		Entry("approved", "approved", "The payment was approved and credited."),
		Entry("charged back", "charged_back", "A chargeback was applied to the payer's credit card."),
		Entry("unmapped", "something_new", "Unknown error."),
	)

	DescribeTable("StatusDetailMessage",
		func(detail, expected string) {
			Expect(paymentgateway.StatusDetailMessage(detail)).To(Equal(expected))
		},
		Entry("accredited", "accredited", "Payment credited."),
		Entry("bad cvv", "cc_rejected_bad_filled_security_code", "Incorrect security code (CVV)."),
		Entry("unmapped", "something_new", "Unknown detail."),
	)

	It("describes every provider status", func() {
		for _, status := range []string{"pending", "approved", "authorized", "in_process", "in_mediation", "rejected", "cancelled", "refunded", "charged_back"} {
			Expect(paymentgateway.StatusMessages).To(HaveKey(status))
		}
	})
})
