package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/worthlabs/worthhub/internal/domain"
)

// TopicArchiveImpl implements domain.Archiver by snapshotting a settled
// topic (topic record, every commitment, settlement outcome) as a single
// JSON object in blob storage. The snapshot is the long-term record; the
// primary store keeps serving reads, so nothing is deleted here.
type TopicArchiveImpl struct {
	writer domain.BlobWriter
	reader domain.BlobReader
	uow    domain.UnitOfWork
}

// NewTopicArchiver creates a TopicArchiveImpl. The reader is optional; when
// present, an existing snapshot is never overwritten.
func NewTopicArchiver(writer domain.BlobWriter, reader domain.BlobReader, uow domain.UnitOfWork) *TopicArchiveImpl {
	return &TopicArchiveImpl{
		writer: writer,
		reader: reader,
		uow:    uow,
	}
}

// topicSnapshot is the JSON document written for one settled topic.
type topicSnapshot struct {
	Topic       domain.Topic        `json:"topic"`
	Commitments []domain.Commitment `json:"commitments"`
	Settlement  domain.Settlement   `json:"settlement"`
	ArchivedAt  time.Time           `json:"archived_at"`
}

// ArchiveTopic uploads the settlement snapshot for a topic and returns the
// object key. Settlement is terminal, so the snapshot is written once; a
// repeat call for an already archived topic returns the existing key.
func (a *TopicArchiveImpl) ArchiveTopic(ctx context.Context, topicID uint64) (string, error) {
	path := archivePath(topicID)

	if a.reader != nil {
		exists, err := a.reader.Exists(ctx, path)
		if err != nil {
			return "", fmt.Errorf("s3blob: archive topic %d: %w", topicID, err)
		}
		if exists {
			return path, nil
		}
	}

	var snap topicSnapshot
	err := a.uow.Do(ctx, func(st domain.Stores) error {
		topic, err := st.Topics.Get(ctx, topicID)
		if err != nil {
			return err
		}
		commitments, err := st.Commitments.ListByTopic(ctx, topicID)
		if err != nil {
			return err
		}
		settlement, err := st.Settlements.Get(ctx, topicID)
		if err != nil {
			return err
		}
		snap = topicSnapshot{
			Topic:       topic,
			Commitments: commitments,
			Settlement:  settlement,
			ArchivedAt:  time.Now().UTC(),
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("s3blob: archive topic %d: load snapshot: %w", topicID, err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snap); err != nil {
		return "", fmt.Errorf("s3blob: archive topic %d: marshal: %w", topicID, err)
	}

	if err := a.writer.Put(ctx, path, &buf, "application/json"); err != nil {
		return "", fmt.Errorf("s3blob: archive topic %d: upload: %w", topicID, err)
	}

	return path, nil
}

// archivePath builds the object key for a topic snapshot:
//
//	archive/topics/42.json
func archivePath(topicID uint64) string {
	return fmt.Sprintf("archive/topics/%d.json", topicID)
}

// Compile-time interface check.
var _ domain.Archiver = (*TopicArchiveImpl)(nil)
