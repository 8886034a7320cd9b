package upload

import (
	"context"
	"fmt"
	"sync"

	"github.com/mzheleznov/profilehub/internal/client/api"
	"github.com/mzheleznov/profilehub/internal/client/session"
	"github.com/mzheleznov/profilehub/internal/common"
	"github.com/mzheleznov/profilehub/internal/logging"
)

// SessionHook is the slice of the session manager the pipeline needs: who is
// logged in now, and applying a confirmed image reference afterwards.
type SessionHook interface {
	Current() (session.Session, session.State)
	ApplyAvatar(userID, ref string) bool
}

// JobState tracks a job through its lifecycle.
type JobState int

const (
	JobPending JobState = iota
	JobTransferring
	JobSucceeded
	JobFailed
)

func (s JobState) String() string {
	switch s {
	case JobPending:
		return "pending"
	case JobTransferring:
		return "transferring"
	case JobSucceeded:
		return "succeeded"
	case JobFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Progress is a point-in-time transfer measurement. Total is the payload
// size in bytes.
type Progress struct {
	Transferred int64
	Total       int64
}

// Job is a single upload in flight. Progress events are delivered
// best-effort on a buffered channel that closes when the job finishes.
type Job struct {
	progress chan Progress
	done     chan struct{}
	cancel   context.CancelFunc

	mu       sync.Mutex
	state    JobState
	err      error
	imageRef string
}

// Progress returns the job's progress stream. The channel closes when the
// job reaches a terminal state.
func (j *Job) Progress() <-chan Progress {
	return j.progress
}

// State returns the job's current state and, once terminal, its error.
func (j *Job) State() (JobState, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state, j.err
}

// ImageRef returns the confirmed download reference after success.
func (j *Job) ImageRef() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.imageRef
}

// Cancel aborts the job. In-flight transfer work stops at the next
// context check; an already-finished job is unaffected.
func (j *Job) Cancel() {
	j.cancel()
}

// Wait blocks until the job finishes or ctx is done, then returns the job's
// terminal error.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-j.done:
	}
	_, err := j.State()
	return err
}

func (j *Job) setState(s JobState) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

func (j *Job) finish(imageRef string, err error) {
	j.mu.Lock()
	if err != nil {
		j.state = JobFailed
		j.err = err
	} else {
		j.state = JobSucceeded
		j.imageRef = imageRef
	}
	j.mu.Unlock()
	close(j.progress)
	close(j.done)
}

func (j *Job) report(p Progress) {
	select {
	case j.progress <- p:
	default:
	}
}

// Pipeline runs profile-image uploads. Jobs for the same user are
// serialized so that overlapping uploads resolve to a well-defined
// last-writer-wins outcome on the profile record.
type Pipeline struct {
	provider api.Provider
	uploader api.Uploader
	hook     SessionHook
	logger   logging.Logger

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

// NewPipeline constructs an upload pipeline.
func NewPipeline(provider api.Provider, uploader api.Uploader, hook SessionHook, logger logging.Logger) *Pipeline {
	return &Pipeline{
		provider: provider,
		uploader: uploader,
		hook:     hook,
		logger:   logger.With("module", "upload"),
		users:    make(map[string]*sync.Mutex),
	}
}

// Start begins an upload from src for the currently authenticated user and
// returns immediately with a Job handle. It fails synchronously with
// common.ErrAuth when no user is logged in.
func (p *Pipeline) Start(ctx context.Context, src PayloadSource) (*Job, error) {
	current, state := p.hook.Current()
	if state != session.StateAuthenticated {
		return nil, fmt.Errorf("upload: %w: not logged in", common.ErrAuth)
	}

	jobCtx, cancel := context.WithCancel(ctx)
	job := &Job{
		progress: make(chan Progress, 16),
		done:     make(chan struct{}),
		cancel:   cancel,
	}

	go p.run(jobCtx, job, src, current)
	return job, nil
}

func (p *Pipeline) run(ctx context.Context, job *Job, src PayloadSource, current session.Session) {
	defer job.cancel()

	// One at a time per user. A later Start that wins the race to confirm
	// last is the one whose image sticks.
	lock := p.userLock(current.UserID)
	lock.Lock()
	defer lock.Unlock()

	ref, err := p.execute(ctx, job, src, current)
	if err != nil {
		p.logger.Warn(ctx, "upload failed", "user_id", current.UserID, "error", err)
		job.finish("", err)
		return
	}

	if !p.hook.ApplyAvatar(current.UserID, ref) {
		p.logger.Warn(ctx, "upload finished for a stale session", "user_id", current.UserID)
	}
	job.finish(ref, nil)
}

func (p *Pipeline) execute(ctx context.Context, job *Job, src PayloadSource, current session.Session) (string, error) {
	data, err := src.Binary(ctx)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty payload", common.ErrTransfer)
	}

	contentType, ext := DetectMIME(data)

	key, uploadURL, err := p.provider.NewUploadURL(ctx, current.AccessToken, ext, contentType)
	if err != nil {
		return "", fmt.Errorf("request upload url: %w", err)
	}

	job.setState(JobTransferring)
	job.report(Progress{Transferred: 0, Total: int64(len(data))})

	err = p.uploader.Put(ctx, uploadURL, contentType, data, func(transferred, total int64) {
		job.report(Progress{Transferred: transferred, Total: total})
	})
	if err != nil {
		return "", err
	}

	profile, err := p.provider.ConfirmAvatar(ctx, current.AccessToken, key)
	if err != nil {
		return "", fmt.Errorf("confirm avatar: %w", err)
	}
	return profile.AvatarURL, nil
}

func (p *Pipeline) userLock(userID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.users[userID]
	if !ok {
		lock = &sync.Mutex{}
		p.users[userID] = lock
	}
	return lock
}
