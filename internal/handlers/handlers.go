// Package handlers holds the Gin handlers for every endpoint in the
// external interface: session creation, single and batch recommend,
// single and batch feedback, guard/cache administration, and the
// observability surfaces.
package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/temcen/linucb-fashion/internal/config"
	"github.com/temcen/linucb-fashion/internal/metrics"
	"github.com/temcen/linucb-fashion/internal/services"
	"github.com/temcen/linucb-fashion/internal/validation"
)

type Handlers struct {
	Session        *SessionHandler
	Recommendation *RecommendationHandler
	Feedback       *FeedbackHandler
	Admin          *AdminHandler
	Health         *HealthHandler
	Debug          *DebugHandler
}

func New(cfg *config.Config, svc *services.Services, collector *metrics.Collector, logger *logrus.Logger) (*Handlers, error) {
	schemas, err := validation.NewSchemaValidator()
	if err != nil {
		return nil, err
	}

	return &Handlers{
		Session:        NewSessionHandler(svc, logger),
		Recommendation: NewRecommendationHandler(svc, schemas, collector, logger),
		Feedback:       NewFeedbackHandler(svc, schemas, collector, logger),
		Admin:          NewAdminHandler(svc, collector, logger),
		Health:         NewHealthHandler(cfg, svc, logger),
		Debug:          NewDebugHandler(svc, logger),
	}, nil
}
