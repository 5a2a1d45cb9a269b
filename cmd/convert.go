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

	"github.com/ghodss/yaml"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/notargets/meshio/formats"
)

type ConvertModel struct {
	InputFile      string
	OutputFile     string
	InputFormat    string
	OutputFormat   string
	ParametersFile string
	Profile        bool
}

type ConvertParameters struct {
	OutputFormat   string `yaml:"OutputFormat"`
	GmshVersion    string `yaml:"GmshVersion"`
	ASCII          bool   `yaml:"ASCII"`
	XdmfDataFormat string `yaml:"XdmfDataFormat"`
}

func (cp *ConvertParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, cp)
}

func (cp *ConvertParameters) Print() {
	fmt.Printf("[%s]\t\t= Output Format\n", cp.OutputFormat)
	fmt.Printf("[%s]\t\t= Gmsh Version\n", cp.GmshVersion)
	fmt.Printf("[%v]\t\t= ASCII\n", cp.ASCII)
	fmt.Printf("[%s]\t\t= XDMF Data Format\n", cp.XdmfDataFormat)
}

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert <input> <output>",
	Short: "Convert a mesh file between formats, chosen by extension",
	Long: `
Reads the input mesh and writes it to the output path, picking each codec
from the file extension unless overridden,

meshio convert mesh.msh mesh.xdmf`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
		)
		cm := &ConvertModel{InputFile: args[0], OutputFile: args[1]}
		if cm.InputFormat, err = cmd.Flags().GetString("input-format"); err != nil {
			panic(err)
		}
		if cm.OutputFormat, err = cmd.Flags().GetString("output-format"); err != nil {
			panic(err)
		}
		if cm.ParametersFile, err = cmd.Flags().GetString("parameters"); err != nil {
			panic(err)
		}
		cm.Profile, _ = cmd.Flags().GetBool("profile")
		cp := processConvertInput(cm)
		if gv, _ := cmd.Flags().GetString("gmsh-version"); gv != "" {
			cp.GmshVersion = gv
		}
		if ascii, _ := cmd.Flags().GetBool("ascii"); ascii {
			cp.ASCII = true
		}
		if df, _ := cmd.Flags().GetString("xdmf-data-format"); df != "" {
			cp.XdmfDataFormat = df
		}
		RunConvert(cm, cp)
	},
}

func processConvertInput(cm *ConvertModel) (cp *ConvertParameters) {
	var (
		err error
	)
	cp = &ConvertParameters{}
	if len(cm.ParametersFile) != 0 {
		var data []byte
		if data, err = os.ReadFile(cm.ParametersFile); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			exampleFile := `
########################################
OutputFormat: gmsh
GmshVersion: "4.1"
ASCII: true
XdmfDataFormat: HDF
########################################
`
			fmt.Printf("Example File:%s\n", exampleFile)
			os.Exit(1)
		}
		if err = cp.Parse(data); err != nil {
			panic(err)
		}
		cp.Print()
	}
	if len(cp.OutputFormat) == 0 {
		cp.OutputFormat = cm.OutputFormat
	}
	return
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringP("input-format", "i", "", "input format name, overriding the input extension")
	convertCmd.Flags().StringP("output-format", "o", "", "output format name, overriding the output extension")
	convertCmd.Flags().StringP("gmsh-version", "g", "", "Gmsh file format version to write: 2, 4, 4.0 or 4.1")
	convertCmd.Flags().BoolP("ascii", "a", false, "write text output where the codec defaults to binary")
	convertCmd.Flags().StringP("xdmf-data-format", "d", "", "XDMF heavy data placement: XML, Binary or HDF")
	convertCmd.Flags().StringP("parameters", "I", "", "YAML file for conversion parameters like:\n\t- GmshVersion\n\t- XdmfDataFormat")
	convertCmd.Flags().Bool("profile", false, "write a CPU profile of the conversion")
}

func RunConvert(cm *ConvertModel, cp *ConvertParameters) {
	if cm.Profile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}
	m, err := formats.Read(cm.InputFile, cm.InputFormat)
	if err != nil {
		fmt.Printf("error reading %s: %s\n", cm.InputFile, err.Error())
		os.Exit(1)
	}
	opts := &formats.Options{
		GmshVersion:    cp.GmshVersion,
		ASCII:          cp.ASCII,
		XdmfDataFormat: cp.XdmfDataFormat,
	}
	if err = formats.Write(cm.OutputFile, cp.OutputFormat, m, opts); err != nil {
		fmt.Printf("error writing %s: %s\n", cm.OutputFile, err.Error())
		os.Exit(1)
	}
	fmt.Printf("wrote %s: %d points, %d cells\n", cm.OutputFile, len(m.Points), m.NumCells())
}
