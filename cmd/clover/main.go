package main

import (
	"os"

	"github.com/spf13/cobra"

	playcmder "github.com/megaman333/Clover-Edition/cmd/clover/play"
	servecmder "github.com/megaman333/Clover-Edition/cmd/clover/serve"
)

func main() {
	root := &cobra.Command{
		Use:   "clover",
		Short: "AI-driven interactive fiction in your console",
		Long: `Clover is an interactive fiction engine driven by a generative
language model: it turns the model's next-token distribution into a
story, suggests actions, and resolves them with a d20.`,
		SilenceUsage: true,
	}

	root.AddCommand(playcmder.NewPlayCmd())
	root.AddCommand(servecmder.NewServeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
