package logging

import "go.uber.org/zap"

// New builds the service logger: human-readable in dev, JSON elsewhere.
func New(env, service string) *zap.Logger {
	var log *zap.Logger
	var err error
	if env == "dev" {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		log = zap.NewNop()
	}
	return log.With(zap.String("service", service))
}
