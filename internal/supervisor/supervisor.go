package supervisor

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bryanchriswhite/webdesk/internal/logger"
	"github.com/thejerf/suture/v4"
)

// New returns a supervisor that logs its events through zerolog
func New(name string) *suture.Supervisor {
	return suture.New(name, suture.Spec{
		EventHook: EventHook(),
	})
}

// EventHook logs supervisor events under the "supervisor" component
func EventHook() suture.EventHook {
	log := logger.WithComponent("supervisor")
	return func(ei suture.Event) {
		switch e := ei.(type) {
		case suture.EventStopTimeout:
			log.Info().
				Str("supervisor", e.SupervisorName).
				Str("service", e.ServiceName).
				Msg("Service failed to terminate in a timely manner")
		case suture.EventServicePanic:
			log.Warn().
				Str("supervisor", e.SupervisorName).
				Str("service", e.ServiceName).
				Str("panic", e.PanicMsg).
				Msg("Caught a service panic")
			log.Debug().Msg(e.Stacktrace)
		case suture.EventServiceTerminate:
			log.Error().
				Interface("error", e.Err).
				Str("supervisor", e.SupervisorName).
				Str("service", e.ServiceName).
				Bool("restarting", e.Restarting).
				Msg("Service failed")
		case suture.EventBackoff:
			log.Debug().Str("supervisor", e.SupervisorName).Msg("Too many service failures, entering backoff")
		case suture.EventResume:
			log.Debug().Str("supervisor", e.SupervisorName).Msg("Exiting backoff state")
		default:
			b, _ := json.Marshal(e)
			log.Warn().Int("type", int(e.Type())).RawJSON("event", b).Msg("Unknown supervisor event type")
		}
	}
}

// Service forces the use of the String method
type Service interface {
	String() string
	suture.Service
}

// Add registers service with super, sanitizing the errors it returns
func Add(super *suture.Supervisor, service Service) suture.ServiceToken {
	return super.Add(sanitizeService{Service: service})
}

type sanitizeService struct {
	Service
}

func (s sanitizeService) Serve(ctx context.Context) error {
	return SanitizeError(ctx, s.Service.Serve(ctx))
}

// SanitizeError keeps suture from treating an error as a context error unless
// the service's own context is actually done. Suture stops restarting a
// service once it returns a context error.
func SanitizeError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !(errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return err
	}

	var errs []error
	if errors.Is(err, suture.ErrDoNotRestart) {
		errs = append(errs, suture.ErrDoNotRestart)
	}
	if errors.Is(err, suture.ErrTerminateSupervisorTree) {
		errs = append(errs, suture.ErrTerminateSupervisorTree)
	}
	errs = append(errs, errors.New(err.Error()))

	return errors.Join(errs...)
}
