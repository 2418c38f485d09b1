package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/scribelabs/scribe/pkg/config"
	"github.com/scribelabs/scribe/pkg/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "scribe",
	Short: "Terminal client for an assistants-style agent backend",
	Long: `scribe drives conversational runs against an assistants backend:
it streams the agent's answer, shows its execution plan (thoughts, tool
calls, sources), and resolves client-side tools when the server asks for
them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCfg := &AppConfig{
			Config:       config.Get(),
			DirectPrompt: viper.GetString("prompt"),
			AssistantID:  viper.GetString("assistant.id"),
		}
		return RunApplication(appCfg)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.scribe/settings.yaml)")
	rootCmd.Flags().StringP("prompt", "p", "", "send a single prompt and exit")
	rootCmd.Flags().StringP("assistant", "a", "", "assistant id to run against")

	_ = viper.BindPFlag("prompt", rootCmd.Flags().Lookup("prompt"))
	_ = viper.BindPFlag("assistant.id", rootCmd.Flags().Lookup("assistant"))
}

func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
}
