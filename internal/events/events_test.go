package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fekuna/omnipos-stock-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(context.Context, ...Event) error {
	f.calls++
	return errors.New("broker down")
}

func TestEvent_JSONShape(t *testing.T) {
	e := New(TypeTransferRecorded, "p1", map[string]string{"product_id": "p1"})

	raw, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "stock.transfer_recorded", decoded["event_type"])
	assert.NotEmpty(t, decoded["event_id"])
	assert.NotContains(t, decoded, "Key")
}

func TestRecorder_OfType(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Publish(context.Background(),
		New(TypeTransferRecorded, "p1", nil),
		New(TypeSoftDeleted, "p1", nil),
		New(TypeTransferRecorded, "p2", nil),
	))

	got := r.OfType(TypeTransferRecorded)
	require.Len(t, got, 2)
	assert.Equal(t, "p2", got[1].Key)
}

func TestPublishAfterCommit_SwallowsErrors(t *testing.T) {
	pub := &failingPublisher{}

	assert.NotPanics(t, func() {
		PublishAfterCommit(context.Background(), pub, logger.NewNop(), New(TypeConsumeFailed, "p1", nil))
	})
	assert.Equal(t, 1, pub.calls)

	PublishAfterCommit(context.Background(), pub, logger.NewNop())
	assert.Equal(t, 1, pub.calls)
}
