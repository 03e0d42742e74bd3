package broker

import (
	"context"
	"fmt"

	"drone-builds/src/contracts"
)

// DeployGroup is the consumer group of the deploys subcommand.
const DeployGroup = "drone-builds-deployer"

// DeployPublisher publishes deploy instructions to one topic.
type DeployPublisher struct {
	broker Broker
	topic  string
}

// NewDeployPublisher creates a publisher writing to topic.
func NewDeployPublisher(b Broker, topic string) *DeployPublisher {
	if topic == "" {
		topic = contracts.TopicDeploys
	}
	return &DeployPublisher{broker: b, topic: topic}
}

// Publish sends d keyed by its repository.
func (p *DeployPublisher) Publish(ctx context.Context, d contracts.DeployInstruction) error {
	value, err := d.Marshal()
	if err != nil {
		return fmt.Errorf("encoding deploy instruction: %w", err)
	}
	if err := p.broker.Publish(ctx, p.topic, d.Key(), value); err != nil {
		return fmt.Errorf("publishing deploy for %s: %w", d.Repo, err)
	}
	return nil
}

// ConsumeDeploys calls handle for every instruction on topic until ctx is
// cancelled or the subscription ends. Undecodable messages are passed to
// onError and skipped; an error from handle stops consumption.
func ConsumeDeploys(ctx context.Context, b Broker, topic, groupID string, handle func(contracts.DeployInstruction) error, onError func(Message, error)) error {
	msgs, err := b.Subscribe(ctx, topic, groupID)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			d, err := contracts.UnmarshalDeployInstruction(msg.Value)
			if err != nil {
				if onError != nil {
					onError(msg, err)
				}
				continue
			}
			if err := handle(d); err != nil {
				return err
			}
		}
	}
}
