/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/notargets/meshio/formats"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <input>",
	Short: "Print a summary of a mesh file",
	Long: `
Reads the input mesh and prints its point count, cell blocks, and attached
data,

meshio info mesh.msh`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
		)
		inputFile := args[0]
		var inputFormat string
		if inputFormat, err = cmd.Flags().GetString("input-format"); err != nil {
			panic(err)
		}
		RunInfo(inputFile, inputFormat)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().StringP("input-format", "i", "", "input format name, overriding the input extension")
}

func RunInfo(inputFile, inputFormat string) {
	m, err := formats.Read(inputFile, inputFormat)
	if err != nil {
		fmt.Printf("error reading %s: %s\n", inputFile, err.Error())
		os.Exit(1)
	}
	fmt.Printf("%s\n", inputFile)
	fmt.Printf("%d points\n", len(m.Points))
	for _, b := range m.Cells {
		fmt.Printf("%6d %s cells\n", len(b.Nodes), b.Type)
	}
	printDataKeys := func(label string, keys []string) {
		if len(keys) == 0 {
			return
		}
		sort.Strings(keys)
		fmt.Printf("%s:\n", label)
		for _, k := range keys {
			fmt.Printf("  %s\n", k)
		}
	}
	pd := make([]string, 0, len(m.PointData))
	for k := range m.PointData {
		pd = append(pd, k)
	}
	cd := make([]string, 0, len(m.CellData))
	for k := range m.CellData {
		cd = append(cd, k)
	}
	printDataKeys("point data", pd)
	printDataKeys("cell data", cd)
}
