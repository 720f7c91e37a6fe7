package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/traffic/internal/domain"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	msgs    []published
	failPub bool
	closed  bool
}

func (c *fakeConn) Publish(subj string, data []byte) error {
	if c.failPub {
		return errors.New("connection lost")
	}
	c.msgs = append(c.msgs, published{subject: subj, data: data})
	return nil
}

// FlushWithContext rejects contexts without a deadline, as *nats.Conn does
func (c *fakeConn) FlushWithContext(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		return nats.ErrNoDeadlineContext
	}
	return nil
}

func (c *fakeConn) Close() { c.closed = true }

func TestNATSPublisher_TrainingFinished(t *testing.T) {
	fc := &fakeConn{}
	p := &NATSPublisher{nc: fc, prefix: "traffic"}
	job := domain.TrainingJob{ID: uuid.New(), Status: domain.JobSucceeded, ValidationR2: 0.8}

	require.NoError(t, p.TrainingFinished(context.Background(), job))
	require.Len(t, fc.msgs, 1)
	assert.Equal(t, "traffic.model.training.finished", fc.msgs[0].subject)

	var got domain.TrainingJob
	require.NoError(t, json.Unmarshal(fc.msgs[0].data, &got))
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, domain.JobSucceeded, got.Status)
}

func TestNATSPublisher_AnomaliesDetected(t *testing.T) {
	fc := &fakeConn{}
	p := &NATSPublisher{nc: fc}

	require.NoError(t, p.AnomaliesDetected(context.Background(), nil))
	assert.Empty(t, fc.msgs, "empty batches are not published")

	require.NoError(t, p.AnomaliesDetected(context.Background(), []domain.Anomaly{{RoadSegmentID: 4}}))
	require.Len(t, fc.msgs, 1)
	assert.Equal(t, SubjectAnomaliesFound, fc.msgs[0].subject)

	p.Close()
	assert.True(t, fc.closed)
}

func TestNATSPublisher_PublishError(t *testing.T) {
	p := &NATSPublisher{nc: &fakeConn{failPub: true}, prefix: "traffic"}
	err := p.TrainingFinished(context.Background(), domain.TrainingJob{})
	assert.ErrorContains(t, err, "traffic.model.training.finished")
}

func TestNATSPublisher_FlushDeadline(t *testing.T) {
	fc := &fakeConn{}
	p := &NATSPublisher{nc: fc, prefix: "traffic"}

	require.NoError(t, p.AnomaliesDetected(context.Background(), []domain.Anomaly{{RoadSegmentID: 7}}))
	require.Len(t, fc.msgs, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	require.NoError(t, p.TrainingFinished(ctx, domain.TrainingJob{ID: uuid.New()}))
	assert.Len(t, fc.msgs, 2)
}
