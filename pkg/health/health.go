package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// CheckFunc проверяет доступность одной зависимости сервиса
type CheckFunc func(ctx context.Context) error

// HealthStatus представляет статус здоровья сервиса
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]Status `json:"services,omitempty"`
	Version   string            `json:"version,omitempty"`
}

// Status представляет статус отдельной зависимости
type Status struct {
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
}

// Checker агрегирует проверки зависимостей сервиса
type Checker struct {
	version string
	timeout time.Duration

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewChecker создает новый Checker
func NewChecker(version string) *Checker {
	return &Checker{
		version: version,
		timeout: 5 * time.Second,
		checks:  make(map[string]CheckFunc),
	}
}

// Register регистрирует проверку зависимости под заданным именем
func (c *Checker) Register(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Check выполняет все зарегистрированные проверки.
// Статус "degraded", если хотя бы одна зависимость недоступна.
func (c *Checker) Check(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	status := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   c.version,
	}

	if len(checks) == 0 {
		return status
	}

	status.Services = make(map[string]Status, len(checks))
	for name, check := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := check(checkCtx)
		cancel()

		if err != nil {
			status.Status = "degraded"
			status.Services[name] = Status{Status: "unhealthy", Details: err.Error()}
			continue
		}
		status.Services[name] = Status{Status: "healthy"}
	}

	return status
}

// Handler создает HTTP обработчик для health check эндпоинта
func Handler(checker *Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := checker.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if status.Status == "degraded" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		json.NewEncoder(w).Encode(status)
	}
}

// ReadyHandler создает HTTP обработчик для ready check эндпоинта
// Возвращает 200 если сервис готов принимать трафик
func ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		response := map[string]string{
			"status": "ready",
		}
		json.NewEncoder(w).Encode(response)
	}
}

// LiveHandler создает HTTP обработчик для live check эндпоинта
// Возвращает 200 если сервис жив
func LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		response := map[string]string{
			"status": "alive",
		}
		json.NewEncoder(w).Encode(response)
	}
}
