package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "convoflow",
	Short: "Multi-channel conversational flow engine",
	Long:  "convoflow runs declarative conversation flows over WhatsApp, Telegram and webchat.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
}
