package ut

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestDbgAssertionFailed(t *testing.T) {
	DbgReset()
	DbgAssertionFailed("x > 0", "file.go", 42)
	if !DbgStopThreads() {
		t.Fatalf("expected stop flag")
	}
	got := LastAssertion()
	if got.Expr != "x > 0" || got.File != "file.go" || got.Line != 42 {
		t.Fatalf("assertion=%v", got)
	}
	DbgReset()
	if DbgStopThreads() {
		t.Fatalf("expected stop flag cleared")
	}
}

func TestFatalfPanicsWithAssertion(t *testing.T) {
	DbgReset()
	defer DbgReset()

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		Fatalf("bad count %d", 7)
	}()
	err, ok := recovered.(error)
	require.True(t, ok, "expected error panic, got %T", recovered)
	require.True(t, errors.IsAssertionFailure(err))
	require.Contains(t, err.Error(), "bad count 7")
	require.True(t, DbgStopThreads())
	require.Contains(t, LastAssertion().File, "debug_test.go")
}

func TestAssertfHoldsQuietly(t *testing.T) {
	DbgReset()
	Assertf(true, "never")
	require.False(t, DbgStopThreads())
	require.Panics(t, func() { Assertf(false, "broken %s", "thing") })
	require.Contains(t, LastAssertion().Expr, "broken thing")
	DbgReset()
}
