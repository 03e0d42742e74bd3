package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"drone-builds/src/broker"
	"drone-builds/src/config"
	"drone-builds/src/contracts"
)

func (a *app) deploysCmd() *cobra.Command {
	var group string

	cmd := &cobra.Command{
		Use:   "deploys",
		Short: "Print deploy instructions published by the deploy action",
		Long: `Consumes the deploy topic (DEPLOY_TOPIC, default drone_deploys) on the
brokers in REDPANDA_BROKERS and prints one drone deploy command per
instruction until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.ResolveAmbient(a.lookup)
			if err != nil {
				return err
			}
			if len(cfg.RedpandaBrokers) == 0 {
				return errors.New("REDPANDA_BROKERS is not set")
			}

			log := a.logger(cfg.LogLevel)
			b, err := broker.NewRedpandaBroker(cfg.RedpandaBrokers, log)
			if err != nil {
				return err
			}
			defer b.Close()

			log.Info("Consuming %s as %s", cfg.DeployTopic, group)
			return broker.ConsumeDeploys(cmd.Context(), b, cfg.DeployTopic, group,
				func(d contracts.DeployInstruction) error {
					_, err := fmt.Fprintln(a.stdout, d.Command())
					return err
				},
				func(msg broker.Message, err error) {
					log.Error("skipping message at offset %d: %v", msg.Offset, err)
				})
		},
	}

	cmd.Flags().StringVar(&group, "group", broker.DeployGroup, "consumer group")
	return cmd
}
