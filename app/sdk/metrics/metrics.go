// Package metrics constructs the metrics the application will track.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gymhub_requests_total",
		Help: "Total number of handled requests",
	})

	errors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gymhub_errors_total",
		Help: "Total number of requests that ended in an error",
	})

	panics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gymhub_panics_total",
		Help: "Total number of recovered panics",
	})

	passOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gymhub_pass_validations_total",
		Help: "Pass validations by outcome",
	}, []string{"outcome"})

	provisioning = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gymhub_provisioning_total",
		Help: "Provisioning attempts by result",
	}, []string{"result"})

	sweptReservations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gymhub_reservations_expired_total",
		Help: "Reservations expired by the sweeper",
	})
)

// AddRequests increments the request count by 1.
func AddRequests(ctx context.Context) {
	requests.Inc()
}

// AddErrors increments the errors count by 1.
func AddErrors(ctx context.Context) {
	errors.Inc()
}

// AddPanics increments the panics count by 1.
func AddPanics(ctx context.Context) {
	panics.Inc()
}

// AddPassOutcome counts one validation outcome.
func AddPassOutcome(ctx context.Context, outcome string) {
	passOutcomes.WithLabelValues(outcome).Inc()
}

// AddProvisioning counts one provisioning attempt by result.
func AddProvisioning(ctx context.Context, result string) {
	provisioning.WithLabelValues(result).Inc()
}

// AddSweptReservations adds the number of reservations expired by a sweep.
func AddSweptReservations(ctx context.Context, n int) {
	sweptReservations.Add(float64(n))
}
