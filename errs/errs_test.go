package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorRendersEnvelopeFields(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := New("bitfinex", CodeTransport,
		WithMessage("stream read failed"),
		WithRawCode("10100"),
		WithRawMessage("auth payload invalid"),
		WithCause(cause),
	)

	rendered := err.Error()
	require.Contains(t, rendered, "venue=bitfinex")
	require.Contains(t, rendered, "code=transport")
	require.Contains(t, rendered, `message="stream read failed"`)
	require.Contains(t, rendered, `raw_code="10100"`)
	require.Contains(t, rendered, `raw_msg="auth payload invalid"`)
	require.Contains(t, rendered, `cause="dial tcp: connection refused"`)
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("boom")
	err := Transport("bitfinex", cause)
	require.ErrorIs(t, err, cause)
}

func TestHasCodeThroughWrapping(t *testing.T) {
	inner := NotFound("bitfinex", "ticker tBTCUSD not tracked")
	wrapped := fmt.Errorf("query ticker: %w", inner)

	require.True(t, IsNotFound(wrapped))
	require.False(t, HasCode(wrapped, CodeTransport))
	require.False(t, IsNotFound(errors.New("plain")))
}

func TestNilEnvelopeError(t *testing.T) {
	var e *E
	require.Equal(t, "<nil>", e.Error())
}

func TestTerminationHelper(t *testing.T) {
	err := Termination("bitfinex", errors.New("close frame timeout"))
	require.True(t, HasCode(err, CodeTermination))
	require.Contains(t, err.Error(), "code=termination")
}
