package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"AccessBridgePlatform/internal/domain"
	"AccessBridgePlatform/pkg/logger"
)

// TaskKind тип задачи обработки события бронирования
type TaskKind string

const (
	// TaskCreated обработка созданного бронирования
	TaskCreated TaskKind = "booking.created"
	// TaskCancelled обработка отмененного бронирования
	TaskCancelled TaskKind = "booking.cancelled"
)

// Task представляет задачу обработки одного события бронирования.
// Вебхук отвечает сразу, сама обработка выполняется задачей в пуле.
type Task struct {
	ID         string                    `json:"id"`
	Kind       TaskKind                  `json:"kind"`
	Source     string                    `json:"source"`
	Created    *domain.BookingEvent      `json:"created,omitempty"`
	Cancelled  *domain.CancellationEvent `json:"cancelled,omitempty"`
	ReceivedAt time.Time                 `json:"received_at"`
}

// Handler обрабатывает задачу из пула
type Handler func(ctx context.Context, task *Task)

// Config конфигурация пула обработчиков
type Config struct {
	// Количество рабочих
	WorkerCount int `json:"worker_count"`

	// Размер очереди задач
	QueueSize int `json:"queue_size"`

	// Graceful shutdown таймаут
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		WorkerCount:     8,
		QueueSize:       256,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	if c.WorkerCount <= 0 {
		return fmt.Errorf("worker count must be positive")
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

// PoolStats статистика пула
type PoolStats struct {
	TasksReceived  int64 `json:"tasks_received"`
	TasksCompleted int64 `json:"tasks_completed"`
	TasksDropped   int64 `json:"tasks_dropped"`
	ActiveWorkers  int64 `json:"active_workers"`
	QueueLength    int64 `json:"queue_length"`
}

// Pool представляет пул рабочих для обработки событий бронирований
type Pool struct {
	config   *Config
	handler  Handler
	taskChan chan *Task
	wg       sync.WaitGroup
	logger   logger.Logger

	stats PoolStats

	// Graceful shutdown
	shutdownInProgress int32
	shutdownComplete   chan struct{}
}

// NewPool создает новый пул рабочих
func NewPool(config *Config, handler Handler, log logger.Logger) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}

	return &Pool{
		config:           config,
		handler:          handler,
		taskChan:         make(chan *Task, config.QueueSize),
		logger:           log,
		shutdownComplete: make(chan struct{}),
	}, nil
}

// Start запускает пул рабочих
func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("Starting worker pool",
		logger.Int("worker_count", p.config.WorkerCount),
		logger.Int("queue_size", p.config.QueueSize))

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		atomic.AddInt64(&p.stats.ActiveWorkers, 1)
		go p.runWorker(ctx, i)
	}
}

// Stop останавливает пул с graceful shutdown: принятые задачи
// дорабатываются, новые не принимаются
func (p *Pool) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&p.shutdownInProgress, 0, 1) {
		return nil
	}

	p.logger.Info("Starting graceful shutdown of worker pool")

	shutdownCtx, cancel := context.WithTimeout(ctx, p.config.ShutdownTimeout)
	defer cancel()

	close(p.taskChan)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("All workers stopped gracefully")
	case <-shutdownCtx.Done():
		p.logger.Warn("Shutdown timeout reached, forcing stop")
	}

	close(p.shutdownComplete)
	return nil
}

// Submit отправляет задачу в пул без ожидания обработки.
// Полная очередь возвращает ошибку сразу, не блокируя вызывающего.
func (p *Pool) Submit(task *Task) error {
	if atomic.LoadInt32(&p.shutdownInProgress) == 1 {
		return fmt.Errorf("pool is shutting down")
	}

	select {
	case p.taskChan <- task:
		atomic.AddInt64(&p.stats.TasksReceived, 1)
		p.logger.Debug("Task submitted to pool",
			logger.String("task_id", task.ID),
			logger.String("kind", string(task.Kind)),
			logger.String("source", task.Source))
		return nil
	default:
		atomic.AddInt64(&p.stats.TasksDropped, 1)
		return fmt.Errorf("task queue is full")
	}
}

// GetStats возвращает статистику пула
func (p *Pool) GetStats() PoolStats {
	return PoolStats{
		TasksReceived:  atomic.LoadInt64(&p.stats.TasksReceived),
		TasksCompleted: atomic.LoadInt64(&p.stats.TasksCompleted),
		TasksDropped:   atomic.LoadInt64(&p.stats.TasksDropped),
		ActiveWorkers:  atomic.LoadInt64(&p.stats.ActiveWorkers),
		QueueLength:    int64(len(p.taskChan)),
	}
}

// IsShutdownInProgress проверяет, идет ли процесс остановки
func (p *Pool) IsShutdownInProgress() bool {
	return atomic.LoadInt32(&p.shutdownInProgress) == 1
}

// WaitShutdownComplete ждет завершения shutdown
func (p *Pool) WaitShutdownComplete() <-chan struct{} {
	return p.shutdownComplete
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	defer p.wg.Done()
	defer atomic.AddInt64(&p.stats.ActiveWorkers, -1)

	p.logger.Debug("Worker started", logger.Int("worker_id", id))

	for task := range p.taskChan {
		if task == nil {
			continue
		}
		p.handler(ctx, task)
		atomic.AddInt64(&p.stats.TasksCompleted, 1)
	}

	p.logger.Debug("Worker stopping", logger.Int("worker_id", id))
}
