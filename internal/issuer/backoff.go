package issuer

import (
	"time"

	"AccessBridgePlatform/pkg/config"
)

// DelayStrategy вычисляет задержку перед повторной попыткой.
// Номер попытки начинается с 1 (задержка перед второй попыткой).
type DelayStrategy interface {
	Delay(attempt int) time.Duration
}

// FixedDelay постоянная задержка между попытками
type FixedDelay struct {
	Interval time.Duration
}

// Delay возвращает постоянную задержку
func (f FixedDelay) Delay(attempt int) time.Duration {
	return f.Interval
}

// ExponentialDelay задержка, удваивающаяся с каждой попыткой
// и ограниченная сверху значением Max
type ExponentialDelay struct {
	Initial time.Duration
	Max     time.Duration
}

// Delay возвращает задержку для указанной попытки
func (e ExponentialDelay) Delay(attempt int) time.Duration {
	delay := e.Initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= e.Max {
			return e.Max
		}
	}
	if delay > e.Max {
		return e.Max
	}
	return delay
}

// StrategyFromConfig строит стратегию задержки из конфигурации
func StrategyFromConfig(cfg config.IssuerConfig) DelayStrategy {
	initial, _ := config.ParseDuration(cfg.InitialDelay, 10*time.Second)
	max, _ := config.ParseDuration(cfg.MaxDelay, 2*time.Minute)

	if cfg.Backoff == "fixed" {
		return FixedDelay{Interval: initial}
	}
	return ExponentialDelay{Initial: initial, Max: max}
}
