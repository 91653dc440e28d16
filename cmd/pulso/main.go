package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{Use: "pulso"}

	root.AddCommand(serveCMD(), fetchCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
