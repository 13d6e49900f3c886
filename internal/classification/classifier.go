// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package classification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cobaltcore-dev/flavor-matcher/internal/flavor"
	"github.com/cobaltcore-dev/flavor-matcher/internal/machine"
	"github.com/google/uuid"
)

// Returned when no flavor is eligible for a machine.
var ErrUnclassifiable = errors.New("machine is unclassifiable")

// Outcome of classifying one machine.
type Decision struct {
	ID string `json:"id"`
	// Where the hardware facts came from, e.g. an ironic node uuid.
	Source  string          `json:"source"`
	Machine machine.Machine `json:"machine"`
	// Names of all eligible flavors in catalog order.
	Eligible []string `json:"eligible"`
	// The chosen flavor, empty if the machine is unclassifiable.
	Flavor     string `json:"flavor,omitempty"`
	Classified bool   `json:"classified"`
	// Number of flavors in the catalog at the time of the decision.
	FlavorCount int       `json:"flavor_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// Persists decisions, e.g. into the history table.
type Recorder interface {
	Record(ctx context.Context, decision Decision) error
}

// Publishes decisions, e.g. over mqtt.
type Publisher interface {
	Publish(topic string, obj any) error
}

type Classifier struct {
	matcher   *flavor.Matcher
	monitor   Monitor
	recorder  Recorder
	publisher Publisher
	topic     string
	now       func() time.Time
}

type Option func(*Classifier)

// Store every decision with the given recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Classifier) { c.recorder = r }
}

// Publish every decision below the given topic.
func WithPublisher(p Publisher, topic string) Option {
	return func(c *Classifier) {
		c.publisher = p
		c.topic = topic
	}
}

func NewClassifier(matcher *flavor.Matcher, monitor Monitor, opts ...Option) *Classifier {
	c := &Classifier{matcher: matcher, monitor: monitor, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get the matcher used by this classifier.
func (c *Classifier) Matcher() *flavor.Matcher {
	return c.matcher
}

// Classify the machine into a flavor.
//
// The decision is returned in any case. If no flavor is eligible, the
// returned error wraps ErrUnclassifiable. Failures to record or publish the
// decision are logged but do not fail the classification.
func (c *Classifier) Classify(ctx context.Context, source string, m machine.Machine) (Decision, error) {
	start := c.now()
	result := c.matcher.Classify(m)
	decision := Decision{
		ID:          uuid.NewString(),
		Source:      source,
		Machine:     m,
		Eligible:    make([]string, 0, len(result.Eligible)),
		Classified:  result.Classified,
		FlavorCount: result.FlavorCount,
		Timestamp:   start.UTC(),
	}
	for _, s := range result.Eligible {
		decision.Eligible = append(decision.Eligible, s.Name)
	}
	if result.Classified {
		decision.Flavor = result.Best.Name
	}
	c.monitor.observe(decision, c.now().Sub(start))

	log := slog.With("decision", decision.ID, "source", source)
	if decision.Classified {
		log.Info("classified machine", "machine", m, "flavor", decision.Flavor, "eligible", len(decision.Eligible))
	} else {
		log.Warn("machine is unclassifiable", "machine", m, "flavors", decision.FlavorCount)
		for _, s := range c.matcher.Catalog().Flavors() {
			log.Debug("flavor rejected", "flavor", s.Name, "reasons", flavor.Explain(m, s))
		}
	}

	if c.recorder != nil {
		if err := c.recorder.Record(ctx, decision); err != nil {
			log.Error("failed to record decision", "err", err)
			c.monitor.sideEffectErrors.WithLabelValues("record").Inc()
		}
	}
	if c.publisher != nil {
		if err := c.publisher.Publish(c.topic+"/"+source, decision); err != nil {
			log.Error("failed to publish decision", "err", err)
			c.monitor.sideEffectErrors.WithLabelValues("publish").Inc()
		}
	}

	if !decision.Classified {
		return decision, fmt.Errorf("%w: %s matches none of %d flavors", ErrUnclassifiable, m, decision.FlavorCount)
	}
	return decision, nil
}
