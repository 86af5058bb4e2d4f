package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/internal/services/forecast"
	pkgkafka "FinCast/pkg/kafka"
	applogger "FinCast/pkg/logger"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// KafkaSimulationHandler runs simulations requested on a Kafka topic. The
// result event is emitted by the use case's publisher.
type KafkaSimulationHandler struct {
	topic    string
	uc       *SimulationUseCase
	metrics  domrepo.Metrics
	validate *validator.Validate
	l        *applogger.Logger
}

func NewKafkaSimulationHandler(topic string, uc *SimulationUseCase, metrics domrepo.Metrics, l *applogger.Logger) *KafkaSimulationHandler {
	if l == nil {
		l = applogger.Nop()
	}
	return &KafkaSimulationHandler{topic: topic, uc: uc, metrics: metrics, validate: validator.New(), l: l}
}

func (h *KafkaSimulationHandler) Topic() string { return h.topic }

// Handle decodes a models.SimulationRequest. Malformed or invalid requests
// are logged and dropped; only transient failures are returned for retry.
func (h *KafkaSimulationHandler) Handle(ctx context.Context, b []byte) error {
	var req models.SimulationRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.drop("consumer_unmarshal", err)
		return nil
	}
	if err := defaults.Set(&req); err != nil {
		return fmt.Errorf("request defaults: %w", err)
	}
	if err := h.validate.StructCtx(ctx, &req); err != nil {
		h.drop("consumer_invalid", err)
		return nil
	}

	res, err := h.uc.Simulate(ctx, ParamsFromRequest(&req))
	if err != nil {
		if errors.Is(err, forecast.ErrInvalidParams) || errors.Is(err, forecast.ErrEmptyPortfolio) ||
			errors.Is(err, forecast.ErrInsufficientHistory) {
			h.drop("consumer_rejected", err)
			return nil
		}
		return err
	}
	h.l.Debug("kafka simulation done",
		applogger.String("request_id", req.RequestID),
		applogger.String("id", res.ID),
	)
	return nil
}

func (h *KafkaSimulationHandler) drop(kind string, err error) {
	h.metrics.RecordError(kind)
	h.l.Warn("simulation request dropped", applogger.String("kind", kind), applogger.Error(err))
}

var _ pkgkafka.MessageHandler = (*KafkaSimulationHandler)(nil)
