package openapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	doc, err := Load(context.Background())
	require.NoError(t, err)

	for _, path := range []string{
		"/projects",
		"/projects/{id}",
		"/projects/{id}/extension-requests",
		"/projects/export",
		"/notifications/{id}",
		"/dashboard/stats",
		"/admin/log-level",
	} {
		assert.NotNil(t, doc.Paths.Find(path), path)
	}
	assert.NotEmpty(t, Document())
}
