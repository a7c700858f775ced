package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/worthlabs/worthhub/internal/domain"
)

// GetTopic retrieves a topic, checking the cache first and falling back to
// the store on a miss.
func (s *TopicService) GetTopic(ctx context.Context, topicID uint64) (domain.Topic, error) {
	if s.cache != nil {
		if t, err := s.cache.Get(ctx, topicID); err == nil {
			return t, nil
		}
	}

	var topic domain.Topic
	err := s.uow.Do(ctx, func(st domain.Stores) error {
		t, err := st.Topics.Get(ctx, topicID)
		if err != nil {
			return err
		}
		topic = t
		return nil
	})
	if err != nil {
		return domain.Topic{}, fmt.Errorf("topic_service: get topic %d: %w", topicID, err)
	}

	if s.cache != nil {
		if cacheErr := s.cache.Set(ctx, topic); cacheErr != nil {
			s.logger.WarnContext(ctx, "cache set failed",
				slog.Uint64("topic_id", topicID),
				slog.String("error", cacheErr.Error()),
			)
		}
	}
	return topic, nil
}

// ListTopics returns topics with pagination and optional status filtering.
func (s *TopicService) ListTopics(ctx context.Context, opts domain.ListOpts) ([]domain.Topic, error) {
	var topics []domain.Topic
	err := s.uow.Do(ctx, func(st domain.Stores) error {
		ts, err := st.Topics.List(ctx, opts)
		if err != nil {
			return err
		}
		topics = ts
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("topic_service: list topics: %w", err)
	}
	return topics, nil
}

// CountTopics returns the total number of topics.
func (s *TopicService) CountTopics(ctx context.Context) (int64, error) {
	var count int64
	err := s.uow.Do(ctx, func(st domain.Stores) error {
		n, err := st.Topics.Count(ctx)
		if err != nil {
			return err
		}
		count = n
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("topic_service: count topics: %w", err)
	}
	return count, nil
}

// GetCommitment retrieves one participant's commitment for a topic.
func (s *TopicService) GetCommitment(ctx context.Context, topicID uint64, participant domain.Identity) (domain.Commitment, error) {
	var c domain.Commitment
	err := s.uow.Do(ctx, func(st domain.Stores) error {
		got, err := st.Commitments.Get(ctx, topicID, participant)
		if err != nil {
			return err
		}
		c = got
		return nil
	})
	if err != nil {
		return domain.Commitment{}, fmt.Errorf("topic_service: get commitment: %w", err)
	}
	return c, nil
}

// ListCommitments returns every commitment for a topic in submit order.
func (s *TopicService) ListCommitments(ctx context.Context, topicID uint64) ([]domain.Commitment, error) {
	var cs []domain.Commitment
	err := s.uow.Do(ctx, func(st domain.Stores) error {
		got, err := st.Commitments.ListByTopic(ctx, topicID)
		if err != nil {
			return err
		}
		cs = got
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("topic_service: list commitments: %w", err)
	}
	return cs, nil
}

// GetSettlement returns the settlement record of a settled topic.
func (s *TopicService) GetSettlement(ctx context.Context, topicID uint64) (domain.Settlement, error) {
	var rec domain.Settlement
	err := s.uow.Do(ctx, func(st domain.Stores) error {
		got, err := st.Settlements.Get(ctx, topicID)
		if err != nil {
			return err
		}
		rec = got
		return nil
	})
	if err != nil {
		return domain.Settlement{}, fmt.Errorf("topic_service: get settlement: %w", err)
	}
	return rec, nil
}

// GetEscrow returns the escrow account paired with a topic.
func (s *TopicService) GetEscrow(ctx context.Context, topicID uint64) (domain.Escrow, error) {
	var e domain.Escrow
	err := s.uow.Do(ctx, func(st domain.Stores) error {
		got, err := st.Escrows.Get(ctx, topicID)
		if err != nil {
			return err
		}
		e = got
		return nil
	})
	if err != nil {
		return domain.Escrow{}, fmt.Errorf("topic_service: get escrow: %w", err)
	}
	return e, nil
}

// ListAudit returns recent audit entries, newest first.
func (s *TopicService) ListAudit(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	var entries []domain.AuditEntry
	err := s.uow.Do(ctx, func(st domain.Stores) error {
		got, err := st.Audit.List(ctx, opts)
		if err != nil {
			return err
		}
		entries = got
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("topic_service: list audit: %w", err)
	}
	return entries, nil
}

// publish sends a lifecycle event on the signal bus. Publish failures are
// logged, not propagated: the instruction has already committed.
func (s *TopicService) publish(ctx context.Context, ev domain.Event) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.WarnContext(ctx, "marshal event failed", slog.String("error", err.Error()))
		return
	}
	if err := s.bus.Publish(ctx, domain.TopicEventsChannel, payload); err != nil {
		s.logger.WarnContext(ctx, "publish event failed",
			slog.String("event", ev.Type),
			slog.String("error", err.Error()),
		)
	}
	if err := s.bus.StreamAppend(ctx, domain.TopicEventsStream, payload); err != nil {
		s.logger.WarnContext(ctx, "journal event failed",
			slog.String("event", ev.Type),
			slog.String("error", err.Error()),
		)
	}
}

// RecentEvents reads lifecycle events from the durable journal starting
// after lastID ("0" for the beginning).
func (s *TopicService) RecentEvents(ctx context.Context, lastID string, count int) ([]domain.StreamMessage, error) {
	if s.bus == nil {
		return nil, nil
	}
	msgs, err := s.bus.StreamRead(ctx, domain.TopicEventsStream, lastID, count)
	if err != nil {
		return nil, fmt.Errorf("topic_service: recent events: %w", err)
	}
	return msgs, nil
}

func (s *TopicService) invalidate(ctx context.Context, topicID uint64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, topicID); err != nil {
		s.logger.WarnContext(ctx, "cache invalidate failed",
			slog.Uint64("topic_id", topicID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *TopicService) notify(ctx context.Context, event, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event, title, message); err != nil {
		s.logger.WarnContext(ctx, "notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func (s *TopicService) archive(ctx context.Context, topicID uint64) {
	if s.archiver == nil {
		return
	}
	key, err := s.archiver.ArchiveTopic(ctx, topicID)
	if err != nil {
		s.logger.WarnContext(ctx, "archive failed",
			slog.Uint64("topic_id", topicID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.InfoContext(ctx, "topic archived",
		slog.Uint64("topic_id", topicID),
		slog.String("key", key),
	)
}
