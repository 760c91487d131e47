package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ticketsBooked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_booked_total",
			Help: "Total tickets booked",
		},
		[]string{"ticket_type", "discounted"},
	)

	bookingFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_failures_total",
			Help: "Bookings rejected or failed, by error code",
		},
		[]string{"code"},
	)

	discountRedemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discount_redemptions_total",
			Help: "Discount redemption attempts",
		},
		[]string{"result"},
	)

	ticketTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_status_transitions_total",
			Help: "Ticket status transitions applied",
		},
		[]string{"from", "to"},
	)

	refundPercentage = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ticket_refund_percentage",
			Help:    "Refund percentage reported on cancellation",
			Buckets: []float64{0, 50, 75, 100},
		},
		[]string{"ticket_type"},
	)

	credentialDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "credential_generation_duration_seconds",
			Help:    "Time spent generating ticket credentials",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)
)

func TrackBooking(ticketType string, discounted bool) {
	ticketsBooked.WithLabelValues(ticketType, strconv.FormatBool(discounted)).Inc()
}

func TrackBookingFailure(code string) {
	bookingFailures.WithLabelValues(code).Inc()
}

func TrackRedemption(result string) {
	discountRedemptions.WithLabelValues(result).Inc()
}

func TrackTransition(from, to string) {
	ticketTransitions.WithLabelValues(from, to).Inc()
}

func TrackRefund(ticketType string, percentage int) {
	refundPercentage.WithLabelValues(ticketType).Observe(float64(percentage))
}

func TrackCredentialGeneration(d time.Duration) {
	credentialDuration.Observe(d.Seconds())
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware counts requests by their chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}
