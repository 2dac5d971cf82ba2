package cache

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/bingo/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestRecordDropsWhenFull(t *testing.T) {
	p := NewHistoryPublisher(nil, "", 2, quietLogger())
	for i := 0; i < 5; i++ {
		p.Record(models.RoundAction{ActionIndex: i})
	}
	assert.Equal(t, int64(3), p.Dropped())
	assert.Equal(t, DefaultQueueName, p.queue)
	assert.Len(t, p.records, 2)
}

func TestHistoryPublisherPushesToRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	ctx := context.Background()
	rdb, err := ConnectRedis(ctx, addr, 0)
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	defer rdb.Close()

	queue := "bingo_test_" + uuid.NewString()
	defer rdb.Del(ctx, queue)

	runCtx, cancel := context.WithCancel(ctx)
	p := NewHistoryPublisher(rdb, queue, 16, quietLogger())
	done := make(chan struct{})
	go func() {
		p.Run(runCtx)
		close(done)
	}()

	roundID := uuid.New()
	p.Record(models.RoundAction{RoundID: roundID, ActionIndex: 1, ActionType: "number_called",
		ActionPayload: map[string]interface{}{"number": 17}})
	p.Record(models.RoundAction{RoundID: roundID, ActionIndex: 2, ActionType: "round_winner"})

	require.Eventually(t, func() bool {
		n, err := rdb.LLen(ctx, queue).Result()
		return err == nil && n == 2
	}, 2*time.Second, 20*time.Millisecond)
	cancel()
	<-done

	raw, err := rdb.LIndex(ctx, queue, 0).Result()
	require.NoError(t, err)
	var got models.RoundAction
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	assert.Equal(t, roundID, got.RoundID)
	assert.Equal(t, "number_called", got.ActionType)
	assert.Equal(t, float64(17), got.ActionPayload["number"])
}
