package logger_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/jabl/fancyquota/internal/logger"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	l, err := logger.New("debug")
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())

	_, err = logger.New("chatty")
	require.Error(t, err)
	assert.True(t, logger.Error.Has(err))
}

func TestWithRunContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, err := logger.NewWithOutput("info", &buf)
	require.NoError(t, err)

	ctx := logger.ContextWithRunID(context.Background())
	id := logger.ContextRunID(ctx)
	require.Len(t, id, 12)

	logger.WithRunContext(ctx, logrus.NewEntry(l)).Info("hello")
	assert.Contains(t, buf.String(), "run_id="+id)

	require.Empty(t, logger.ContextRunID(context.Background()))
}
