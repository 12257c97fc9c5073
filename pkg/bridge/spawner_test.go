package bridge_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/aretw0/scorebridge/internal/worker"
	"github.com/aretw0/scorebridge/pkg/bridge"
	"github.com/aretw0/scorebridge/pkg/domain"
	"github.com/aretw0/scorebridge/pkg/program"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRuntime answers every program with a fixed result and never touches Python.
type stubRuntime struct {
	provisionErr error
	delay        time.Duration
}

func (r stubRuntime) Provision(ctx context.Context, baseURL string) error {
	return r.provisionErr
}

func (r stubRuntime) Run(ctx context.Context, prog program.Program) ([]byte, error) {
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return []byte(`{"widgetScores":[{"widget":"http://example.org/TextField","score":10}],` +
		`"defaultWidget":"http://example.org/TextField","defaultScore":10,` +
		`"executionSteps":[],"focusNode":"<http://example.org/a>"}`), nil
}

func TestPipeSpawner(t *testing.T) {
	b := bridge.New(bridge.NewPipeSpawner(stubRuntime{}))
	defer b.Dispose()

	res, err := b.Evaluate(context.Background(), request("http://example.org/a"))
	require.NoError(t, err)
	require.Len(t, res.WidgetScores, 1)
	assert.Equal(t, 10.0, res.WidgetScores[0].Score)
	require.NotNil(t, res.DefaultWidget)
	assert.Equal(t, "http://example.org/TextField", *res.DefaultWidget)
	assert.Equal(t, bridge.StateReady, b.State())
}

func TestPipeSpawner_ProvisionFailure(t *testing.T) {
	rt := stubRuntime{provisionErr: domain.NewError(domain.KindInitNetworkFailure, "could not reach index", nil)}
	b := bridge.New(bridge.NewPipeSpawner(rt))

	err := b.Initialize(context.Background())
	assert.ErrorIs(t, err, domain.ErrInitNetworkFailure)
	assert.Equal(t, bridge.StateFailed, b.State())
}

func TestPipeSpawner_DisposeAbandonsSlowEvaluation(t *testing.T) {
	b := bridge.New(bridge.NewPipeSpawner(stubRuntime{delay: time.Minute}),
		bridge.WithEvalTimeout(50*time.Millisecond))

	_, err := b.Evaluate(context.Background(), request("http://example.org/a"))
	require.ErrorIs(t, err, domain.ErrEvalTimeout)

	done := make(chan error, 1)
	go func() { done <- b.Dispose() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Dispose blocked on a busy worker")
	}
}

// TestHelperProcess is not a real test: ProcessSpawner re-executes the test
// binary with it selected to get a worker process.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("SCOREBRIDGE_HELPER_PROCESS") != "1" {
		return
	}
	var rt stubRuntime
	if os.Getenv("SCOREBRIDGE_HELPER_FAIL") == "1" {
		rt.provisionErr = errors.New("no interpreter")
	}
	if delay, err := strconv.Atoi(os.Getenv("SCOREBRIDGE_HELPER_DELAY_MS")); err == nil {
		rt.delay = time.Duration(delay) * time.Millisecond
	}
	if err := worker.Serve(context.Background(), os.Stdin, os.Stdout, worker.New(rt)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}

func helperSpawner(env ...string) *bridge.ProcessSpawner {
	s := bridge.NewProcessSpawner(os.Args[0], "-test.run=^TestHelperProcess$")
	s.Env = append([]string{"SCOREBRIDGE_HELPER_PROCESS=1"}, env...)
	s.GracePeriod = 200 * time.Millisecond
	return s
}

func TestProcessSpawner(t *testing.T) {
	b := bridge.New(helperSpawner())
	defer b.Dispose()

	res, err := b.Evaluate(context.Background(), request("http://example.org/a"))
	require.NoError(t, err)
	assert.Equal(t, "<http://example.org/a>", res.FocusNode)

	res, err = b.Evaluate(context.Background(), request("http://example.org/a"))
	require.NoError(t, err)
	assert.Len(t, res.WidgetScores, 1)
}

func TestProcessSpawner_ProvisionFailure(t *testing.T) {
	b := bridge.New(helperSpawner("SCOREBRIDGE_HELPER_FAIL=1"))

	err := b.Initialize(context.Background())
	require.ErrorIs(t, err, domain.ErrInitOtherFailure)
	assert.Equal(t, "Failed to initialize runtime: no interpreter", err.Error())
}

func TestProcessSpawner_KilledAfterGracePeriod(t *testing.T) {
	b := bridge.New(helperSpawner("SCOREBRIDGE_HELPER_DELAY_MS=60000"),
		bridge.WithEvalTimeout(100*time.Millisecond))

	_, err := b.Evaluate(context.Background(), request("http://example.org/a"))
	require.ErrorIs(t, err, domain.ErrEvalTimeout)

	start := time.Now()
	require.NoError(t, b.Dispose())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestProcessSpawner_MissingCommand(t *testing.T) {
	b := bridge.New(bridge.NewProcessSpawner("scorebridge-no-such-binary"))

	err := b.Initialize(context.Background())
	require.ErrorIs(t, err, domain.ErrInitOtherFailure)
	assert.Contains(t, err.Error(), "Failed to initialize runtime")
}
