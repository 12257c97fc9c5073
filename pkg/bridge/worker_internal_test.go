package bridge

import (
	"io"
	"testing"
	"time"

	"github.com/aretw0/scorebridge/internal/logging"
	"github.com/aretw0/scorebridge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipeWorker struct {
	*streamWorker
	fromBridge *io.PipeReader
	toBridge   *io.PipeWriter
}

func newPipeWorker(t *testing.T) *pipeWorker {
	t.Helper()
	fromBridge, in := io.Pipe()
	out, toBridge := io.Pipe()
	w := newStreamWorker(in, out, func(<-chan struct{}) error {
		return out.Close()
	}, nil, logging.NewNop())
	t.Cleanup(func() { _ = w.Terminate() })
	return &pipeWorker{streamWorker: w, fromBridge: fromBridge, toBridge: toBridge}
}

func collect(w Worker) (<-chan domain.Message, func()) {
	ch := make(chan domain.Message, 8)
	cancel := w.Listen(func(msg domain.Message) { ch <- msg })
	return ch, cancel
}

func receive(t *testing.T, ch <-chan domain.Message) domain.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return domain.Message{}
	}
}

func TestStreamWorker_DeliversFrames(t *testing.T) {
	w := newPipeWorker(t)
	ch, cancel := collect(w)
	defer cancel()

	go func() {
		_, _ = w.toBridge.Write([]byte("\n{\"id\":\"7\",\"type\":\"initialized\"}\n"))
	}()

	msg := receive(t, ch)
	assert.Equal(t, "7", msg.ID)
	assert.Equal(t, domain.MessageInitialized, msg.Type)
}

func TestStreamWorker_MalformedFrame(t *testing.T) {
	w := newPipeWorker(t)
	ch, cancel := collect(w)
	defer cancel()

	go func() { _, _ = w.toBridge.Write([]byte("not json\n")) }()

	msg := receive(t, ch)
	assert.Equal(t, domain.MessageError, msg.Type)
	assert.Equal(t, domain.KindEvalWorkerError, msg.Code)
	assert.Empty(t, msg.ID)
	assert.Contains(t, msg.Error, "malformed worker message")
}

func TestStreamWorker_EOFFailsPendingCalls(t *testing.T) {
	w := newPipeWorker(t)
	ch, cancel := collect(w)
	defer cancel()

	require.NoError(t, w.toBridge.Close())

	msg := receive(t, ch)
	assert.Equal(t, domain.MessageError, msg.Type)
	assert.Equal(t, "worker exited", msg.Error)
	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after EOF")
	}
}

func TestStreamWorker_PostWritesFrame(t *testing.T) {
	w := newPipeWorker(t)

	require.NoError(t, w.Post(domain.NewInitMessage("http://localhost:8000")))

	buf := make([]byte, 256)
	n, err := w.fromBridge.Read(buf)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"init","baseURL":"http://localhost:8000"}`, string(buf[:n-1]))
	assert.Equal(t, byte('\n'), buf[n-1])
}

func TestStreamWorker_PostAfterTerminate(t *testing.T) {
	w := newPipeWorker(t)

	require.NoError(t, w.Terminate())
	require.NoError(t, w.Terminate(), "terminate is idempotent")
	assert.ErrorIs(t, w.Post(domain.NewInitMessage("")), errWorkerStopped)
}

func TestListenerSet_Detach(t *testing.T) {
	var s listenerSet
	calls := 0
	cancel := s.add(func(domain.Message) { calls++ })
	s.dispatch(domain.NewInitializedMessage())
	cancel()
	cancel()
	s.dispatch(domain.NewInitializedMessage())

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, s.len())
}
