package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveAuth(t *testing.T) {
	success := AuthOperations.WithLabelValues("login", ResultSuccess)
	failure := AuthOperations.WithLabelValues("login", ResultFailure)
	beforeOK := testutil.ToFloat64(success)
	beforeFail := testutil.ToFloat64(failure)

	ObserveAuth("login", nil)
	ObserveAuth("login", errors.New("invalid credentials"))
	ObserveAuth("login", errors.New("invalid credentials"))

	assert.Equal(t, beforeOK+1, testutil.ToFloat64(success))
	assert.Equal(t, beforeFail+2, testutil.ToFloat64(failure))
}

func TestObserveUpload(t *testing.T) {
	failure := MediaUploads.WithLabelValues(ResultFailure)
	before := testutil.ToFloat64(failure)

	ObserveUpload(errors.New("bucket not found"))

	assert.Equal(t, before+1, testutil.ToFloat64(failure))
}
