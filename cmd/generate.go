package main

import (
	"fmt"

	"github.com/cwbudde/lnstsp/internal/instance"
	"github.com/spf13/cobra"
)

var (
	genCities  int
	genSize    float64
	genSeed    int64
	genTimeout float64
	genOut     string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a random Euclidean instance",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().IntVar(&genCities, "cities", 100, "Number of cities")
	generateCmd.Flags().Float64Var(&genSize, "size", 1000, "Side length of the square cities are placed in")
	generateCmd.Flags().Int64Var(&genSeed, "seed", 1, "Random seed")
	generateCmd.Flags().Float64Var(&genTimeout, "timeout", 0, "Time limit in seconds stored with the instance (0 = none)")
	generateCmd.Flags().StringVar(&genOut, "out", "instance.json", "Output path")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	inst, err := instance.Generate(genCities, genSize, genSeed)
	if err != nil {
		return err
	}
	inst.Timeout = genTimeout

	if err := inst.Save(genOut); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d cities)\n", genOut, inst.CityCount())
	return nil
}
