// Package metrics содержит Prometheus-метрики сервиса аккаунтов.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	// AuthOperations считает операции аутентификации по имени и результату.
	AuthOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "account_service",
		Name:      "auth_operations_total",
		Help:      "Number of register/login/logout/refresh operations by result.",
	}, []string{"operation", "result"})

	// MediaUploads считает загрузки файлов в хранилище медиа.
	MediaUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "account_service",
		Name:      "media_uploads_total",
		Help:      "Number of media uploads by result.",
	}, []string{"result"})
)

// ObserveAuth увеличивает счётчик операции с результатом, вычисленным по err.
func ObserveAuth(operation string, err error) {
	AuthOperations.WithLabelValues(operation, result(err)).Inc()
}

// ObserveUpload увеличивает счётчик загрузок.
func ObserveUpload(err error) {
	MediaUploads.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
