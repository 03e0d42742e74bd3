// Package contracts defines the messages exchanged over the broker.
package contracts

import (
	"encoding/json"
	"fmt"
)

// Topic names.
const (
	// TopicDeploys carries DeployInstruction messages.
	// Key: {repo}
	TopicDeploys = "drone_deploys"
)

// DeployInstruction asks for a build to be promoted to an environment.
// Published to: drone_deploys
type DeployInstruction struct {
	Platform    string `json:"platform"`
	Repo        string `json:"repo"`
	Build       int    `json:"build"`
	Environment string `json:"environment"`
	Commit      string `json:"commit"`
}

// Command returns the drone CLI invocation that performs the promotion.
func (d DeployInstruction) Command() string {
	return fmt.Sprintf("drone deploy %s %d %s", d.Repo, d.Build, d.Environment)
}

// Key is the partition key for the instruction.
func (d DeployInstruction) Key() string {
	return d.Repo
}

// Marshal encodes the instruction for publishing.
func (d DeployInstruction) Marshal() ([]byte, error) {
	return json.Marshal(d)
}

// UnmarshalDeployInstruction decodes a published instruction.
func UnmarshalDeployInstruction(data []byte) (DeployInstruction, error) {
	var d DeployInstruction
	if err := json.Unmarshal(data, &d); err != nil {
		return DeployInstruction{}, fmt.Errorf("decoding deploy instruction: %w", err)
	}
	return d, nil
}
