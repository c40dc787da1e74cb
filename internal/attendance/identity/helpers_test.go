package identity_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	dErrors "ponto/pkg/domain-errors"
)

func detailsOf(t *testing.T, err error) map[string]any {
	t.Helper()
	var de *dErrors.Error
	require.True(t, errors.As(err, &de))
	return de.Details
}
