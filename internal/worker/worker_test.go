package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"toolcrib/internal/config"
	"toolcrib/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestProcessTaskSuccess(t *testing.T) {
	sheets := &fakeSheets{}
	worker := NewSheetsWorker(sheets, nil, RetryPolicy{}, nil)

	ctx := context.Background()
	tx := &models.Transaction{Item: "Drill Bit", Action: models.ActionCheckOut, User: "Dana", Qty: 1, Timestamp: time.Now()}
	if err := worker.EnqueueTransaction(ctx, tx); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	task, ok := worker.tryLocalQueue()
	if !ok {
		t.Fatalf("expected task in local queue")
	}
	if task.ID == "" {
		t.Fatalf("expected generated task id")
	}
	worker.processTask(ctx, &task)

	if sheets.appendCalls() != 1 {
		t.Fatalf("expected 1 append call, got %d", sheets.appendCalls())
	}
	if task.RetryCount != 0 {
		t.Fatalf("expected retry_count=0, got %d", task.RetryCount)
	}
}

func TestProcessTaskRetry(t *testing.T) {
	sheets := &fakeSheets{err: errors.New("boom")}
	worker := NewSheetsWorker(sheets, nil, RetryPolicy{MaxRetries: 3, InitialDelay: 10 * time.Millisecond}, nil)

	ctx := context.Background()
	if err := worker.EnqueueInventorySnapshot(ctx, []models.InventoryItem{{ID: 1, Location: "5A", Item: "Bit"}}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	task, ok := worker.tryLocalQueue()
	if !ok {
		t.Fatalf("expected task in local queue")
	}
	worker.processTask(ctx, &task)

	if task.RetryCount != 1 {
		t.Fatalf("expected retry_count=1, got %d", task.RetryCount)
	}
	if task.LastError != "boom" {
		t.Fatalf("expected last error boom, got %q", task.LastError)
	}
	if task.NextRetryAt.Before(time.Now().Add(-time.Second)) {
		t.Fatalf("expected next_retry_at to be set, got %v", task.NextRetryAt)
	}

	select {
	case requeued := <-worker.queue:
		if requeued.ID != task.ID || requeued.RetryCount != 1 {
			t.Fatalf("unexpected requeued task: %+v", requeued)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("task was not requeued")
	}
}

func TestProcessTaskFail(t *testing.T) {
	sheets := &fakeSheets{err: errors.New("fatal")}
	worker := NewSheetsWorker(sheets, nil, RetryPolicy{MaxRetries: 1}, nil)

	ctx := context.Background()
	_ = worker.EnqueueInventorySnapshot(ctx, nil)
	task, _ := worker.tryLocalQueue()
	worker.processTask(ctx, &task)

	dead := worker.DeadLetters()
	if len(dead) != 1 {
		t.Fatalf("expected 1 dead letter, got %d", len(dead))
	}
	if dead[0].LastError != "fatal" {
		t.Fatalf("unexpected last error %q", dead[0].LastError)
	}
}

func TestSheetsWorker_HandleSheetTask(t *testing.T) {
	sheets := &fakeSheets{}
	worker := NewSheetsWorker(sheets, nil, RetryPolicy{MaxRetries: 3}, nil)
	ctx := context.Background()

	t.Run("ReplaceInventory", func(t *testing.T) {
		items := []models.InventoryItem{{ID: 1}, {ID: 2}}
		if err := worker.handleSheetTask(ctx, &models.SyncTask{TaskType: TaskReplaceInventory, Items: items}); err != nil {
			t.Fatalf("handle: %v", err)
		}
		if got := sheets.lastReplaceLen(); got != 2 {
			t.Fatalf("expected 2 rows replaced, got %d", got)
		}
	})

	t.Run("AppendTransactionMissingPayload", func(t *testing.T) {
		if err := worker.handleSheetTask(ctx, &models.SyncTask{TaskType: TaskAppendTransaction}); err == nil {
			t.Fatalf("expected error for missing transaction")
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		if err := worker.handleSheetTask(ctx, &models.SyncTask{TaskType: "nope"}); err == nil {
			t.Fatalf("expected error for unknown task")
		}
	})

	t.Run("NoSheetsClient", func(t *testing.T) {
		w := NewSheetsWorker(nil, nil, RetryPolicy{}, nil)
		if err := w.handleSheetTask(ctx, &models.SyncTask{TaskType: TaskReplaceInventory}); err == nil {
			t.Fatalf("expected error without sheets client")
		}
	})
}

func TestSheetsWorker_EnqueueTask(t *testing.T) {
	worker := NewSheetsWorker(&fakeSheets{}, nil, RetryPolicy{}, nil)
	ctx := context.Background()

	if err := worker.EnqueueTask(ctx, models.SyncTask{}); err == nil {
		t.Fatalf("expected error for empty task type")
	}
	if err := worker.EnqueueTask(ctx, models.SyncTask{TaskType: TaskAppendTransaction}); err == nil {
		t.Fatalf("expected error for missing transaction")
	}
	if err := worker.EnqueueTask(ctx, models.SyncTask{TaskType: "bogus"}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestSheetsWorker_RedisQueue(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	sheets := &fakeSheets{}
	worker := NewSheetsWorker(sheets, client, RetryPolicy{}, nil)
	ctx := context.Background()

	tx := &models.Transaction{Item: "Tap", Action: models.ActionCheckIn, User: "Kim", Qty: 2, Timestamp: time.Now()}
	if err := worker.EnqueueTransaction(ctx, tx); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if n, _ := client.LLen(ctx, "sheets:queue").Result(); n != 1 {
		t.Fatalf("expected 1 task in redis, got %d", n)
	}

	task, ok := worker.tryRedis(ctx)
	if !ok {
		t.Fatalf("expected task from redis")
	}
	if task.Transaction == nil || task.Transaction.Item != "Tap" {
		t.Fatalf("unexpected task payload: %+v", task)
	}
}

func TestSheetsWorker_StartStops(t *testing.T) {
	sheets := &fakeSheets{}
	worker := NewSheetsWorker(sheets, nil, RetryPolicy{}, nil)
	worker.pollInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	_ = worker.EnqueueTransaction(ctx, &models.Transaction{Item: "Bit", Action: models.ActionCheckOut, Qty: 1})

	deadline := time.After(2 * time.Second)
	for sheets.appendCalls() == 0 {
		select {
		case <-deadline:
			t.Fatalf("task was not processed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not stop")
	}
}

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2, MaxDelay: 5 * time.Second}
	d1 := policy.NextDelay(1)
	d2 := policy.NextDelay(2)
	d3 := policy.NextDelay(5)

	if d1 != time.Second {
		t.Fatalf("attempt1 expected 1s, got %s", d1)
	}
	if d2 != 2*time.Second {
		t.Fatalf("attempt2 expected 2s, got %s", d2)
	}
	if d3 != 5*time.Second {
		t.Fatalf("attempt5 expected capped 5s, got %s", d3)
	}
}

func TestRetryPolicyFromConfig(t *testing.T) {
	policy := RetryPolicyFromConfig(config.GoogleConfig{SyncMaxRetries: 2, SyncInitialDelay: 50 * time.Millisecond})
	if policy.MaxRetries != 2 || policy.InitialDelay != 50*time.Millisecond {
		t.Fatalf("config values not applied: %+v", policy)
	}
	if policy.MaxDelay != time.Minute || policy.BackoffFactor != 2 {
		t.Fatalf("defaults not applied: %+v", policy)
	}
	if policy.Exhausted(1) {
		t.Fatalf("one failure should not exhaust two retries")
	}
	if !policy.Exhausted(2) {
		t.Fatalf("two failures should exhaust two retries")
	}
}

// Helpers

type fakeSheets struct {
	mu          sync.Mutex
	err         error
	appends     int
	replaceRows int
}

func (f *fakeSheets) ReplaceInventorySheet(ctx context.Context, items []models.InventoryItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaceRows = len(items)
	return f.err
}

func (f *fakeSheets) AppendTransaction(ctx context.Context, tx *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends++
	return f.err
}

func (f *fakeSheets) appendCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appends
}

func (f *fakeSheets) lastReplaceLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.replaceRows
}
