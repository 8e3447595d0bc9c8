package routing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syriahub-gateway/middleware/ratelimit/domain"
)

func TestTable_ClassifyDefaults(t *testing.T) {
	table, err := NewTable(DefaultRules(), domain.DefaultPolicies())
	require.NoError(t, err)

	tests := []struct {
		method string
		path   string
		want   domain.Category
	}{
		{http.MethodPost, "/api/auth/login", domain.CategoryAuth},
		{http.MethodGet, "/api/auth/session", domain.CategoryAuth},
		{http.MethodPost, "/api/upload", domain.CategoryUpload},
		{http.MethodPost, "/api/reports", domain.CategoryReport},
		{http.MethodGet, "/api/reports", domain.CategoryRead},
		{http.MethodPost, "/api/appeals/12/vote", domain.CategoryReport},
		{http.MethodGet, "/api/posts", domain.CategoryRead},
		{http.MethodHead, "/api/posts", domain.CategoryRead},
		{http.MethodPost, "/api/posts", domain.CategoryWrite},
		{http.MethodDelete, "/api/posts/9", domain.CategoryWrite},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.path, nil)
			assert.Equal(t, tt.want, table.Classify(r))
		})
	}
}

func TestTable_FirstMatchWins(t *testing.T) {
	table, err := NewTable([]Rule{
		{Prefix: "/api/auth/refresh", Category: domain.CategoryRead},
		{Prefix: "/api/auth/", Category: domain.CategoryAuth},
	}, domain.DefaultPolicies())
	require.NoError(t, err)

	assert.Equal(t, domain.CategoryRead, table.Classify(httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)))
	assert.Equal(t, domain.CategoryAuth, table.Classify(httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)))
}

func TestNewTable_RejectsUnknownCategory(t *testing.T) {
	_, err := NewTable([]Rule{{Prefix: "/api/x", Category: "comments"}}, domain.DefaultPolicies())
	require.Error(t, err)
	assert.True(t, domain.IsUnknownCategory(err))
}
