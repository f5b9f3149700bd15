// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-summarizer/internal/devserver"
)

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run an in-memory fake of the research API",
	Long: `Devserver serves the research API from memory so the client can be
exercised without the real backend. Searches finish after a few status reads;
queries containing "fail" end failed. Point the client at it with
--api-url http://<addr>/api.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		gin.SetMode(gin.ReleaseMode)
		srv := devserver.New(cfg.Devserver, devserver.WithLogger(logger))
		fmt.Fprintf(cmd.OutOrStdout(), "Serving fake API on http://%s/api\n", cfg.Devserver.Addr)
		return srv.Run(cmd.Context())
	},
}

func init() {
	devserverCmd.Flags().String("addr", devserver.DefaultAddr, "listen address")
	devserverCmd.Flags().Int("polls-until-complete", devserver.DefaultPollsUntilComplete, "status reads before a search completes")
	viper.BindPFlag("devserver.addr", devserverCmd.Flags().Lookup("addr"))
	viper.BindPFlag("devserver.polls_until_complete", devserverCmd.Flags().Lookup("polls-until-complete"))

	rootCmd.AddCommand(devserverCmd)
}
