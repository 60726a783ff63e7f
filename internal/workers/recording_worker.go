package workers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	mongorepo "github.com/voxprep/voxprep/internal/repositories/mongo"
	"github.com/voxprep/voxprep/internal/storage"
)

const recordingStream = "recordings:stream"

// RecordingQueue is the producer side: the post-call dispatcher enqueues one
// archive job per finished call that carried a recording URL.
type RecordingQueue struct {
	Redis *redis.Client
}

func (q *RecordingQueue) Enqueue(ctx context.Context, interviewID, userID, recordingURL string) error {
	return q.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: recordingStream,
		Values: map[string]any{
			"interview_id":  interviewID,
			"user_id":       userID,
			"recording_url": recordingURL,
			"ts_unix":       strconv.FormatInt(time.Now().UTC().Unix(), 10),
		},
	}).Err()
}

// RecordingWorkerPool drains the recordings stream: fetch the engine's
// recording over HTTP, upload it to object storage, stamp the stored path on
// the interview document. Jobs are best-effort; failures are logged and acked
// so a bad URL cannot wedge the stream.
type RecordingWorkerPool struct {
	Redis      *redis.Client
	Interviews mongorepo.InterviewRepository
	Uploader   storage.Uploader
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *RecordingWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Interviews == nil || p.Uploader == nil {
		return errors.New("RecordingWorkerPool missing dependency: Redis/Interviews/Uploader must be set")
	}
	if p.Stream == "" {
		p.Stream = recordingStream
	}
	if p.Group == "" {
		p.Group = "recording-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *RecordingWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    5,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *RecordingWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	getStr := func(k string) string {
		v, ok := msg.Values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	interviewID := getStr("interview_id")
	url := getStr("recording_url")
	if interviewID == "" || url == "" {
		return
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":     msg.ID,
		"interview_id": interviewID,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.WithError(err).Warn("invalid recording url")
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.WithError(err).Warn("recording fetch failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.WithField("status", resp.StatusCode).Warn("recording fetch returned non-200")
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/wav"
	}

	const maxBytes = 100 << 20
	objectName := "recordings/" + interviewID + ".wav"

	storedPath, err := p.Uploader.Upload(ctx, objectName, contentType, io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		log.WithError(err).Error("recording upload failed")
		return
	}

	if err := p.Interviews.SetRecording(ctx, interviewID, storedPath); err != nil {
		log.WithError(err).Error("failed to stamp recording path")
		return
	}

	log.Info("recording archived")
}
