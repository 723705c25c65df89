package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AccessMetrics метрики конвейера выдачи кодов доступа
type AccessMetrics struct {
	BookingEvents     *prometheus.CounterVec
	SkippedBookings   *prometheus.CounterVec
	IssuanceAttempts  prometheus.Counter
	IssuanceFailures  *prometheus.CounterVec
	PasscodesIssued   prometheus.Counter
	PasscodesRevoked  prometheus.Counter
	PasscodesMissing  prometheus.Counter
	NotificationsSent prometheus.Counter
}

// NewAccessMetrics создает и регистрирует метрики конвейера
func NewAccessMetrics(serviceName string) *AccessMetrics {
	return &AccessMetrics{
		BookingEvents: registerCounterVec(prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Subsystem: "bookings",
				Name:      "events_total",
				Help:      "Total number of booking events received",
			},
			[]string{"type", "source"},
		)),
		SkippedBookings: registerCounterVec(prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Subsystem: "bookings",
				Name:      "skipped_total",
				Help:      "Total number of bookings skipped without issuance",
			},
			[]string{"reason"},
		)),
		IssuanceAttempts: registerCounter(prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Subsystem: "passcodes",
				Name:      "issuance_attempts_total",
				Help:      "Total number of passcode issuance attempts per lock",
			},
		)),
		IssuanceFailures: registerCounterVec(prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Subsystem: "passcodes",
				Name:      "issuance_failures_total",
				Help:      "Total number of failed passcode issuances",
			},
			[]string{"reason"},
		)),
		PasscodesIssued: registerCounter(prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Subsystem: "passcodes",
				Name:      "issued_total",
				Help:      "Total number of passcodes issued",
			},
		)),
		PasscodesRevoked: registerCounter(prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Subsystem: "passcodes",
				Name:      "revoked_total",
				Help:      "Total number of passcodes revoked on cancellation",
			},
		)),
		PasscodesMissing: registerCounter(prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Subsystem: "passcodes",
				Name:      "missing_total",
				Help:      "Total number of cancellations with no matching passcode",
			},
		)),
		NotificationsSent: registerCounter(prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Subsystem: "notifications",
				Name:      "sent_total",
				Help:      "Total number of passcode notifications sent",
			},
		)),
	}
}

func registerCounterVec(c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
		panic(err)
	}
	return c
}

func registerCounter(c prometheus.Counter) prometheus.Counter {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(prometheus.Counter)
		}
		panic(err)
	}
	return c
}
