package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"github.com/yourusername/pawsitive-placements/internal/newsletter"
)

const (
	TypeNewsletterLink = "newsletter:link"
	queueNewsletter    = "newsletter"
	linkMaxRetry       = 3
)

// AccountLinker は購読をアカウントに紐付けます。
type AccountLinker interface {
	LinkAccount(ctx context.Context, email string, userID int64, name string) (int64, error)
}

// Manager はジョブの投入と状態管理を担います。
type Manager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	store  *Store
	linker AccountLinker
	logger *log.Entry
}

// NewManager は Manager を初期化します。
func NewManager(redisURL string, store *Store, linker AccountLinker) (*Manager, error) {
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if linker == nil {
		return nil, errors.New("linker is nil")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	logger := log.WithField("component", "jobs")
	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				queueNewsletter: 1,
			},
			Logger: logger,
		},
	)

	mux := asynq.NewServeMux()
	manager := &Manager{
		client: asynq.NewClient(opt),
		server: server,
		mux:    mux,
		store:  store,
		linker: linker,
		logger: logger,
	}
	mux.HandleFunc(TypeNewsletterLink, manager.handleLinkTask)
	return manager, nil
}

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			m.logger.WithError(err).Error("asynq server stopped")
		}
	}()
}

// Shutdown はサーバーとクライアントを閉じます。
func (m *Manager) Shutdown() error {
	m.server.Shutdown()
	return m.client.Close()
}

// LinkSubscriptions は紐付けジョブを投入します。
// 登録リクエストを待たせないよう、実際の更新はワーカーで行います。
func (m *Manager) LinkSubscriptions(ctx context.Context, email string, userID int64, name string) error {
	_, err := m.Enqueue(ctx, &LinkPayload{
		Email:  email,
		UserID: userID,
		Name:   name,
	})
	return err
}

// Enqueue はジョブをキューに投入し、ジョブIDを返します。
func (m *Manager) Enqueue(ctx context.Context, payload *LinkPayload) (string, error) {
	if payload == nil {
		return "", fmt.Errorf("payload is nil")
	}
	if payload.JobID == "" {
		payload.JobID = uuid.NewString()
	}

	if err := m.store.Upsert(ctx, &Record{
		JobID:  payload.JobID,
		Type:   TypeNewsletterLink,
		Status: StatusQueued,
	}); err != nil {
		return "", err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	task := asynq.NewTask(TypeNewsletterLink, body)
	if _, err := m.client.EnqueueContext(ctx, task,
		asynq.Queue(queueNewsletter),
		asynq.TaskID(payload.JobID),
		asynq.MaxRetry(linkMaxRetry),
	); err != nil {
		_ = m.store.MarkFailed(ctx, payload.JobID, &ErrorInfo{
			Code:    "ENQUEUE_FAILED",
			Message: err.Error(),
		})
		return "", err
	}
	return payload.JobID, nil
}

// GetRecord はジョブ情報を取得します。
func (m *Manager) GetRecord(ctx context.Context, jobID string) (*Record, error) {
	return m.store.Get(ctx, jobID)
}

func (m *Manager) handleLinkTask(ctx context.Context, task *asynq.Task) error {
	var payload LinkPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.JobID == "" {
		return fmt.Errorf("missing jobId in payload: %w", asynq.SkipRetry)
	}
	entry := m.logger.WithFields(log.Fields{"jobId": payload.JobID, "userId": payload.UserID})

	if err := m.store.MarkRunning(ctx, payload.JobID); err != nil {
		// 状態の記録に失敗しても紐付け自体は行う
		entry.WithError(err).Warn("failed to mark job running")
	}

	linked, err := m.linker.LinkAccount(ctx, payload.Email, payload.UserID, payload.Name)
	if err != nil {
		code := "INTERNAL_ERROR"
		if errors.Is(err, newsletter.ErrInvalidEmail) {
			code = "INVALID_EMAIL"
			err = fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		if markErr := m.store.MarkFailed(ctx, payload.JobID, &ErrorInfo{
			Code:    code,
			Message: err.Error(),
		}); markErr != nil {
			entry.WithError(markErr).Warn("failed to mark job failed")
		}
		return err
	}

	entry.WithField("linked", linked).Info("newsletter subscriptions linked")
	return m.store.MarkDone(ctx, payload.JobID, map[string]int64{"linked": linked})
}
