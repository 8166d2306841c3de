package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// Service is the in-process pub/sub bus. The pipeline publishes progress
// and warning events; the job registry and the event logger subscribe.
type Service struct {
	mu          sync.RWMutex
	subscribers map[interfaces.EventType][]interfaces.EventHandler
	logger      arbor.ILogger
}

// NewService creates a new event service
func NewService(logger arbor.ILogger) interfaces.EventService {
	return &Service{
		subscribers: make(map[interfaces.EventType][]interfaces.EventHandler),
		logger:      logger,
	}
}

// Subscribe registers a handler for an event type
func (s *Service) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscribers[eventType] = append(s.subscribers[eventType], handler)

	s.logger.Debug().
		Str("event_type", string(eventType)).
		Int("subscriber_count", len(s.subscribers[eventType])).
		Msg("Event handler subscribed")

	return nil
}

// Publish fans an event out to subscribers without waiting for them.
// Handler errors are logged and dropped; fire-and-forget events must not
// stall or fail the publisher.
func (s *Service) Publish(ctx context.Context, event interfaces.Event) error {
	for _, handler := range s.handlersFor(event.Type) {
		h := handler
		go func() {
			if err := h(ctx, event); err != nil {
				s.logHandlerError(event.Type, err)
			}
		}()
	}
	return nil
}

// PublishSync delivers an event to every subscriber and waits for all of
// them before returning. Progress updates go through here so a job's stage
// transitions are applied in the order the pipeline emitted them.
func (s *Service) PublishSync(ctx context.Context, event interfaces.Event) error {
	handlers := s.handlersFor(event.Type)
	if len(handlers) == 0 {
		return nil
	}

	var (
		wg     sync.WaitGroup
		errsMu sync.Mutex
		failed int
	)

	for _, handler := range handlers {
		h := handler
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := h(ctx, event); err != nil {
				s.logHandlerError(event.Type, err)
				errsMu.Lock()
				failed++
				errsMu.Unlock()
			}
		}()
	}
	wg.Wait()

	if failed > 0 {
		return fmt.Errorf("event handlers failed: %d errors", failed)
	}
	return nil
}

// Close drops all subscriptions.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscribers = make(map[interfaces.EventType][]interfaces.EventHandler)
	s.logger.Info().Msg("Event service closed")

	return nil
}

func (s *Service) handlersFor(eventType interfaces.EventType) []interfaces.EventHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subscribers[eventType]
}

func (s *Service) logHandlerError(eventType interfaces.EventType, err error) {
	s.logger.Error().
		Err(err).
		Str("event_type", string(eventType)).
		Msg("Event handler failed")
}
