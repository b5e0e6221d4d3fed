package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"toolcrib/internal/domain"
	"toolcrib/internal/metrics"
	"toolcrib/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	TaskReplaceInventory  = "replace_inventory"
	TaskAppendTransaction = "append_transaction"
)

// SheetsWorker mirrors inventory changes into Google Sheets. Tasks go to a Redis
// list when Redis is configured and to an in-process channel otherwise; failed
// tasks are retried with backoff and land in a dead-letter list after MaxRetries.
type SheetsWorker struct {
	sheets        domain.SheetsWriter
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.SyncTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	logger        *zerolog.Logger

	mu         sync.Mutex
	deadLetter []models.SyncTask
	timers     map[string]*time.Timer
}

var _ domain.SyncWorker = (*SheetsWorker)(nil)

func NewSheetsWorker(sheets domain.SheetsWriter, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *SheetsWorker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &SheetsWorker{
		sheets:        sheets,
		redis:         redisClient,
		retryPolicy:   retry.withDefaults(),
		queue:         make(chan models.SyncTask, 128),
		redisQueueKey: "sheets:queue",
		deadLetterKey: "sheets:deadletter",
		pollInterval:  2 * time.Second,
		logger:        logger,
		timers:        make(map[string]*time.Timer),
	}
}

func (w *SheetsWorker) EnqueueInventorySnapshot(ctx context.Context, items []models.InventoryItem) error {
	return w.EnqueueTask(ctx, models.SyncTask{TaskType: TaskReplaceInventory, Items: items})
}

func (w *SheetsWorker) EnqueueTransaction(ctx context.Context, tx *models.Transaction) error {
	return w.EnqueueTask(ctx, models.SyncTask{TaskType: TaskAppendTransaction, Transaction: tx})
}

// EnqueueTask validates and schedules a task.
func (w *SheetsWorker) EnqueueTask(ctx context.Context, task models.SyncTask) error {
	switch task.TaskType {
	case "":
		return errors.New("task type is required")
	case TaskReplaceInventory:
	case TaskAppendTransaction:
		if task.Transaction == nil {
			return errors.New("transaction is required")
		}
	default:
		return fmt.Errorf("unknown task type: %s", task.TaskType)
	}

	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	w.schedule(ctx, task)
	return nil
}

func (w *SheetsWorker) schedule(ctx context.Context, task models.SyncTask) {
	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err != nil {
			w.logger.Warn().Err(err).Str("task_id", task.ID).Msg("sheets_worker: redis push failed, fallback to memory queue")
		} else {
			return
		}
	}

	select {
	case w.queue <- task:
	default:
		w.logger.Error().Str("task_id", task.ID).Str("task", task.TaskType).Msg("sheets_worker: in-memory queue full, task dropped")
		metrics.IncSheetsSync(task.TaskType, "dropped")
	}
}

// Start runs the consume loop until ctx is done.
func (w *SheetsWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("sheets_worker: started")
	defer w.logger.Info().Msg("sheets_worker: stopped")
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-w.queue:
			w.processTask(ctx, &t)
			continue
		default:
		}

		if w.redis != nil {
			if t, ok := w.tryRedis(ctx); ok {
				w.processTask(ctx, &t)
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case t := <-w.queue:
			w.processTask(ctx, &t)
		case <-time.After(w.pollInterval):
		}
	}
}

func (w *SheetsWorker) tryLocalQueue() (models.SyncTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.SyncTask{}, false
	}
}

func (w *SheetsWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("sheets_worker: redis BRPOP error")
			time.Sleep(w.pollInterval)
		}
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}
	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("sheets_worker: decode redis task")
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *SheetsWorker) processTask(ctx context.Context, task *models.SyncTask) {
	if err := w.handleSheetTask(ctx, task); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}
	metrics.IncSheetsSync(task.TaskType, "ok")
	w.logger.Debug().Str("task_id", task.ID).Str("task", task.TaskType).Msg("sheets_worker: task completed")
}

func (w *SheetsWorker) handleSheetTask(ctx context.Context, task *models.SyncTask) error {
	if w.sheets == nil {
		return errors.New("sheets client is not configured")
	}
	switch task.TaskType {
	case TaskReplaceInventory:
		return w.sheets.ReplaceInventorySheet(ctx, task.Items)
	case TaskAppendTransaction:
		if task.Transaction == nil {
			return errors.New("transaction payload missing")
		}
		return w.sheets.AppendTransaction(ctx, task.Transaction)
	default:
		return fmt.Errorf("unknown task type: %s", task.TaskType)
	}
}

func (w *SheetsWorker) retryOrFail(ctx context.Context, task *models.SyncTask, cause error) {
	task.RetryCount++
	task.LastError = cause.Error()

	if w.retryPolicy.Exhausted(task.RetryCount) {
		w.logger.Error().Err(cause).Str("task_id", task.ID).Int("attempts", task.RetryCount).Msg("sheets_worker: task failed")
		metrics.IncSheetsSync(task.TaskType, "failed")
		w.pushDeadLetter(ctx, task)
		return
	}

	delay := w.retryPolicy.NextDelay(task.RetryCount)
	task.NextRetryAt = time.Now().Add(delay)
	w.logger.Warn().Err(cause).Str("task_id", task.ID).Dur("delay", delay).Msg("sheets_worker: task will be retried")
	metrics.IncSheetsSync(task.TaskType, "retry")

	retry := *task
	w.mu.Lock()
	w.timers[retry.ID] = time.AfterFunc(delay, func() {
		w.mu.Lock()
		delete(w.timers, retry.ID)
		w.mu.Unlock()
		w.schedule(context.Background(), retry)
	})
	w.mu.Unlock()
}

func (w *SheetsWorker) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, t := range w.timers {
		t.Stop()
		delete(w.timers, id)
	}
}

// DeadLetters returns the tasks that exhausted their retries in this process.
func (w *SheetsWorker) DeadLetters() []models.SyncTask {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.SyncTask(nil), w.deadLetter...)
}

func (w *SheetsWorker) pushRedis(ctx context.Context, task models.SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *SheetsWorker) pushDeadLetter(ctx context.Context, task *models.SyncTask) {
	w.mu.Lock()
	w.deadLetter = append(w.deadLetter, *task)
	w.mu.Unlock()

	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Str("task_id", task.ID).Msg("sheets_worker: encode deadletter")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Str("task_id", task.ID).Msg("sheets_worker: deadletter push")
	}
}
