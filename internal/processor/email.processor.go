package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nimasrn/crowdfund/internal/idempotency"
	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/internal/queue"
	"github.com/nimasrn/crowdfund/pkg/logger"
	"github.com/nimasrn/crowdfund/pkg/prom"
)

type Sender interface {
	Send(ctx context.Context, job *model.EmailJob) error
}

type EmailProcessor struct {
	sender      Sender
	idempotency *idempotency.Service
}

func NewEmailProcessor(sender Sender, idem *idempotency.Service) *EmailProcessor {
	return &EmailProcessor{
		sender:      sender,
		idempotency: idem,
	}
}

func (p *EmailProcessor) GetType() string {
	return "email"
}

// Process delivers one email job. A nil return acks the stream entry.
func (p *EmailProcessor) Process(ctx context.Context, msg *queue.Message) error {
	var job model.EmailJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		// malformed jobs never succeed, drop them
		logger.Error("failed to unmarshal email job", "stream_id", msg.ID, "error", err)
		prom.EmailSent("invalid")
		return nil
	}
	if job.ID == "" {
		job.ID = msg.ID
	}

	lock, err := p.idempotency.Acquire(ctx, job.ID)
	if err != nil {
		switch {
		case errors.Is(err, idempotency.ErrAlreadyProcessed):
			logger.Info("email already sent, skipping", "job_id", job.ID)
			return nil
		case errors.Is(err, idempotency.ErrMaxRetriesExceeded):
			logger.Error("email dropped after max retries", "job_id", job.ID, "template", job.TemplateKey)
			prom.EmailSent("dropped")
			return nil
		case errors.Is(err, idempotency.ErrLockAcquireFailed):
			return fmt.Errorf("email %s is locked by another worker", job.ID)
		default:
			return err
		}
	}
	defer func() {
		if lock.Held() {
			_ = p.idempotency.Release(ctx, lock)
		}
	}()

	if err := p.sender.Send(ctx, &job); err != nil {
		p.idempotency.MarkFailure(ctx, lock, err)
		prom.EmailSent("failed")
		return err
	}

	if err := p.idempotency.MarkSuccess(ctx, lock); err != nil {
		logger.Error("failed to mark email as sent", "job_id", job.ID, "error", err)
	}
	prom.EmailSent("sent")
	return nil
}
