package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	clientID     string
	clientSecret string
	discoveryURL string
	redirectURL  string
	port         int
	scope        string
)

var rootCmd = &cobra.Command{
	Use:   "mcdemo",
	Short: "Mobile Connect demo relying party",
	Long:  `mcdemo runs a small relying-party web server that drives the Mobile Connect discovery, authentication and identity flow end to end.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&clientID, "client-id", os.Getenv("MC_CLIENT_ID"), "Discovery service client id (or set MC_CLIENT_ID)")
	rootCmd.PersistentFlags().StringVar(&clientSecret, "client-secret", os.Getenv("MC_CLIENT_SECRET"), "Discovery service client secret (or set MC_CLIENT_SECRET)")
	rootCmd.PersistentFlags().StringVar(&discoveryURL, "discovery-url", os.Getenv("MC_DISCOVERY_URL"), "Discovery service endpoint (or set MC_DISCOVERY_URL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
