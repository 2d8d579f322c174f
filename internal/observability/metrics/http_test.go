package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGinMiddlewareRecordsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := prometheus.NewRegistry()
	m := newHTTPMetrics(registry, Config{ServiceName: "test", Environment: "test"})

	router := gin.New()
	router.Use(GinMiddleware(m))
	router.GET("/reports/:id", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/"+id, nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	families, err := registry.Gather()
	require.NoError(t, err)

	var counter *dto.MetricFamily
	for _, family := range families {
		if family.GetName() == "credmatrix_http_requests_total" {
			counter = family
		}
	}
	require.NotNil(t, counter)
	require.Len(t, counter.GetMetric(), 1)

	metric := counter.GetMetric()[0]
	assert.Equal(t, float64(2), metric.GetCounter().GetValue())

	labels := map[string]string{}
	for _, pair := range metric.GetLabel() {
		labels[pair.GetName()] = pair.GetValue()
	}
	assert.Equal(t, "/reports/:id", labels["route"])
	assert.Equal(t, "204", labels["status"])
}
