package config

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// pubsubState owns the lazily created client and one publisher per topic.
type pubsubState struct {
	mu     sync.Mutex
	client *pubsub.Client
	topics map[string]*pubsub.Topic
}

var pubsubs = &pubsubState{topics: map[string]*pubsub.Topic{}}

// pubsubProjectID falls back through PUBSUB_PROJECT_ID, GOOGLE_CLOUD_PROJECT and GCP_PROJECT.
func pubsubProjectID() string {
	for _, key := range []string{"PUBSUB_PROJECT_ID", "GOOGLE_CLOUD_PROJECT", "GCP_PROJECT"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func newPubSubClient(ctx context.Context, projectID string) (*pubsub.Client, error) {
	if credJSON := os.Getenv("PUBSUB_CREDENTIALS_JSON"); credJSON != "" {
		return pubsub.NewClient(ctx, projectID, option.WithCredentialsJSON([]byte(credJSON)))
	}
	return pubsub.NewClient(ctx, projectID)
}

// topic returns the cached publisher for name, creating the client on first
// use with up to three attempts. Uses Application Default Credentials unless
// PUBSUB_CREDENTIALS_JSON is set.
func (s *pubsubState) topic(ctx context.Context, name string) (*pubsub.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.topics[name]; ok {
		return t, nil
	}
	if s.client == nil {
		projectID := pubsubProjectID()
		if projectID == "" {
			return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
		}
		for attempt := 1; ; attempt++ {
			c, err := newPubSubClient(ctx, projectID)
			if err == nil {
				s.client = c
				log.Printf("pubsub client ready (project_id=%s attempt=%d)", projectID, attempt)
				break
			}
			if attempt >= 3 {
				return nil, err
			}
			wait := retryDelay(attempt)
			log.Printf("failed to init pubsub client (project_id=%s attempt=%d): %v; retrying in %s", projectID, attempt, err, wait)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	t := s.client.Topic(name)
	s.topics[name] = t
	return t, nil
}

// PublishJSON marshals obj and publishes it to topicName, returning the server-assigned message ID.
func PublishJSON(ctx context.Context, topicName string, attrs map[string]string, obj interface{}) (string, error) {
	if topicName == "" {
		return "", errors.New("topic is required")
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	t, err := pubsubs.topic(ctx, topicName)
	if err != nil {
		return "", err
	}
	return t.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
}

// ClosePubSub flushes pending publishes and closes the client. Safe to call when unused.
func ClosePubSub() error {
	s := pubsubs
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, t := range s.topics {
		t.Stop()
		delete(s.topics, name)
	}
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
