package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lifeboat/client"
	"lifeboat/config"
)

var predictFlags struct {
	pclass int
	sex    string
	age    float64
	fare   float64
	url    string
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Ask a running server whether a passenger survives",
	RunE:  runPredict,
}

func init() {
	f := predictCmd.Flags()
	f.IntVar(&predictFlags.pclass, "pclass", 0, "Passenger class: 1, 2 or 3 (required)")
	f.StringVar(&predictFlags.sex, "sex", "", "male or female (required)")
	f.Float64Var(&predictFlags.age, "age", 0, "Age in years (required)")
	f.Float64Var(&predictFlags.fare, "fare", 0, "Ticket fare (required)")
	f.StringVar(&predictFlags.url, "url", "", "Prediction endpoint; defaults to client.api_url from config or API_URL")

	for _, name := range []string{"pclass", "sex", "age", "fare"} {
		_ = predictCmd.MarkFlagRequired(name)
	}
}

func runPredict(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	url := predictFlags.url
	if url == "" {
		url = cfg.Client.APIURL
	}

	c := client.New(url, cfg.Client.Timeout)
	label, err := c.Predict(cmd.Context(), client.PredictRequest{
		Pclass: predictFlags.pclass,
		Sex:    predictFlags.sex,
		Age:    predictFlags.age,
		Fare:   predictFlags.fare,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), client.Render(label))
	return nil
}
