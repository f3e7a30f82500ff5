package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seerrsync/seerrsync/internal/mediaservers"
	"github.com/seerrsync/seerrsync/pkg/errors"
)

func TestNewSelectsImplementationByType(t *testing.T) {
	for _, serverType := range mediaservers.Types() {
		cfg := &mediaservers.Config{Name: "srv", Type: serverType}
		client, err := New(cfg)
		require.NoError(t, err, "type %s", serverType)
		assert.Equal(t, serverType, client.Type())
		assert.Equal(t, "srv", client.Name())
	}
}

func TestNewRejectsUnknownType(t *testing.T) {
	cfg := &mediaservers.Config{Name: "srv", Type: "kodi"}
	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}

func TestHas(t *testing.T) {
	assert.True(t, Has(mediaservers.TypePlex))
	assert.False(t, Has(mediaservers.Type("kodi")))
}
