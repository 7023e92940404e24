package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupDisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), "itsaportal", "")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
