package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestResult(t *testing.T) {
	assert.Equal(t, "ok", Result(nil))
	assert.Equal(t, "fail", Result(fmt.Errorf("olia")))
}

func TestJobs(t *testing.T) {
	before := testutil.ToFloat64(Jobs.WithLabelValues("direct", "success"))
	Jobs.WithLabelValues("direct", "success").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(Jobs.WithLabelValues("direct", "success")))
}
