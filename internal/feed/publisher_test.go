package feed

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aptintel/internal/aptcore"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestMessages(t *testing.T) {
	result := &aptcore.SearchResult[aptcore.TrackerRow]{
		Source: aptcore.SourceTracker,
		Rows:   []aptcore.TrackerRow{{Sheet: "China", CommonName: "APT1", Toolset: "-", Targets: "US", Comment: "-"}},
	}

	msgs, err := Messages(result)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "APT1", string(msgs[0].Key))
	assert.Equal(t, []kafka.Header{{Key: "source", Value: []byte("APT Tracker")}}, msgs[0].Headers)

	var row aptcore.TrackerRow
	require.NoError(t, json.Unmarshal(msgs[0].Value, &row))
	assert.Equal(t, result.Rows[0], row)
}

func TestPublish(t *testing.T) {
	writer := &fakeWriter{}
	p := &Publisher{writer: writer, topic: "apt-groups", logger: zap.NewNop()}

	result := &aptcore.SearchResult[aptcore.GroupRecord]{
		Source: aptcore.SourceMitre,
		Rows:   []aptcore.GroupRecord{{ID: "g1", Name: "APT16"}, {ID: "g2", Name: "FIN7"}},
	}

	t.Run("writes one message per row", func(t *testing.T) {
		require.NoError(t, Publish(context.Background(), p, result))
		require.Len(t, writer.msgs, 2)
		assert.Equal(t, "FIN7", string(writer.msgs[1].Key))
	})

	t.Run("empty results are not sent", func(t *testing.T) {
		writer.msgs = nil
		require.NoError(t, Publish(context.Background(), p, &aptcore.SearchResult[aptcore.GroupRecord]{}))
		assert.Empty(t, writer.msgs)
	})

	t.Run("writer errors are returned", func(t *testing.T) {
		writer.err = errors.New("broker down")
		err := Publish(context.Background(), p, result)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broker down")
	})

	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
}
