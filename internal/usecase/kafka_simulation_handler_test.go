package usecase

import (
	"context"
	"testing"

	"FinCast/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKafkaHandler(t *testing.T) (*KafkaSimulationHandler, *recordingPublisher) {
	t.Helper()
	prov := newFakeProvider(map[string][]models.Bar{"AAPL": flatBars(300, 150)})
	pub := &recordingPublisher{}
	uc := NewSimulationUseCase(testSettings(), prov, nil, pub, nopMetrics, nil)
	return NewKafkaSimulationHandler("requests", uc, nopMetrics, nil), pub
}

func TestKafkaSimulationHandler_Runs(t *testing.T) {
	h, pub := newKafkaHandler(t)
	assert.Equal(t, "requests", h.Topic())

	msg := []byte(`{"request_id":"abc","holdings":[{"ticker":"AAPL","quantity":2}],"simulations":3,"years":0.05,"seed":7}`)
	require.NoError(t, h.Handle(context.Background(), msg))

	require.Equal(t, 1, pub.count())
	ev := pub.events[0]
	assert.Equal(t, "abc", ev.RequestID)
	assert.Equal(t, models.MethodRegression, ev.Method)
	require.NotNil(t, ev.Summary)
	assert.InDelta(t, 300.0, ev.Summary.Mean, 1e-6)
}

func TestKafkaSimulationHandler_DropsBadMessages(t *testing.T) {
	h, pub := newKafkaHandler(t)
	ctx := context.Background()

	for _, msg := range []string{
		`not json`,
		`{"holdings":[{"ticker":"AAPL","quantity":1}],"lookback":61}`,
		`{"holdings":[{"ticker":"","quantity":1}]}`,
		`{"method":"magic"}`,
		`{}`,
	} {
		assert.NoError(t, h.Handle(ctx, []byte(msg)), msg)
	}
	assert.Zero(t, pub.count())
}
