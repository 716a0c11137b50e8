package events_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/checkout-payments/internal/core/events"
)

var _ = Describe("EventBus", func() {
	var (
		bus *events.EventBus
		ctx context.Context
	)

	BeforeEach(func() {
		lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		bus = events.NewEventBus(lg)
		ctx = context.Background()
	})

	It("delivers published events to every subscriber", func() {
		var calls atomic.Int32
		received := make(chan events.Event, 2)
		handler := func(ctx context.Context, event events.Event) error {
			calls.Add(1)
			received <- event
			return nil
		}
		bus.Subscribe(events.EventTypePaymentCreated, handler)
		bus.Subscribe(events.EventTypePaymentCreated, handler)

		event := events.NewPaymentCreatedEvent(1, "123", "pix", "pending", "10.00")
		Expect(bus.Publish(ctx, event)).To(Succeed())
		Expect(bus.Wait(ctx)).To(Succeed())

		Expect(calls.Load()).To(Equal(int32(2)))
		Eventually(received).Should(Receive(Equal(event)))
	})

	It("ignores events nobody subscribed to", func() {
		event := events.NewPaymentStatusChangedEvent(1, "123", "pending", "paid", "approved", "accredited")
		Expect(bus.Publish(ctx, event)).To(Succeed())
		Expect(bus.Wait(ctx)).To(Succeed())
	})

	It("runs handlers with a context that survives the publisher's cancellation", func() {
		published, cancel := context.WithCancel(ctx)
		handlerErr := make(chan error, 1)
		release := make(chan struct{})

		bus.Subscribe(events.EventTypePaymentCreated, func(ctx context.Context, event events.Event) error {
			<-release
			handlerErr <- ctx.Err()
			return nil
		})

		Expect(bus.Publish(published, events.NewPaymentCreatedEvent(1, "123", "pix", "pending", "10.00"))).To(Succeed())
		cancel()
		close(release)

		Expect(bus.Wait(ctx)).To(Succeed())
		Expect(<-handlerErr).NotTo(HaveOccurred())
	})

	It("keeps delivering when a handler fails", func() {
		var delivered atomic.Int32
		bus.Subscribe(events.EventTypePaymentStatusChanged, func(ctx context.Context, event events.Event) error {
			return errors.New("audit sink down")
		})
		bus.Subscribe(events.EventTypePaymentStatusChanged, func(ctx context.Context, event events.Event) error {
			delivered.Add(1)
			return nil
		})

		Expect(bus.Publish(ctx, events.NewPaymentStatusChangedEvent(1, "123", "pending", "paid", "approved", "accredited"))).To(Succeed())
		Expect(bus.Wait(ctx)).To(Succeed())
		Expect(delivered.Load()).To(Equal(int32(1)))
	})

	It("survives a panicking handler", func() {
		bus.Subscribe(events.EventTypePaymentCreated, func(ctx context.Context, event events.Event) error {
			panic("boom")
		})

		Expect(bus.Publish(ctx, events.NewPaymentCreatedEvent(1, "123", "pix", "pending", "10.00"))).To(Succeed())
		Expect(bus.Wait(ctx)).To(Succeed())
	})

	It("stops waiting when the context expires", func() {
		release := make(chan struct{})
		defer close(release)
		bus.Subscribe(events.EventTypePaymentCreated, func(ctx context.Context, event events.Event) error {
			<-release
			return nil
		})
		Expect(bus.Publish(ctx, events.NewPaymentCreatedEvent(1, "123", "pix", "pending", "10.00"))).To(Succeed())

		waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		Expect(bus.Wait(waitCtx)).To(MatchError(context.DeadlineExceeded))
	})
})

var _ = Describe("Payment events", func() {
	It("carries the status transition in the payload", func() {
		event := events.NewPaymentStatusChangedEvent(7, "555", "pending", "paid", "approved", "accredited")

		Expect(event.EventType()).To(Equal(events.EventTypePaymentStatusChanged))
		Expect(event.EventID()).NotTo(BeEmpty())
		Expect(event.OccurredAt()).NotTo(BeZero())
		Expect(event.Payload()).To(HaveKeyWithValue("previous_status", "pending"))
		Expect(event.Payload()).To(HaveKeyWithValue("payment_status", "paid"))
		Expect(event.Payload()).To(HaveKeyWithValue("payment_id", int64(7)))
	})
})
