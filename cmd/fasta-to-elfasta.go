// elSAGE: a read-context evidence engine for variant calling.
// Copyright (c) 2020 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elprep/blob/master/LICENSE.txt>.

package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/exascience/elsage/fasta"
)

// fastaToElfastaCmd converts a .fasta file into the memory-mappable
// .elfasta format.
var fastaToElfastaCmd = &cobra.Command{
	Use:   "fasta-to-elfasta input.fasta output.elfasta",
	Short: "Convert a .fasta file to an .elfasta file",
	Long: `Convert a .fasta file to an .elfasta file. The .elfasta format stores the
reference in uppercase with ambiguity codes mapped to N, and is memory-mapped
by 'elsage evidence'. An accompanying .fai file is used when present.`,
	Example: "  elsage fasta-to-elfasta hg38.fasta hg38.elfasta",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, output := args[0], args[1]
		if err := errors.Join(checkExist("", input), checkCreate("", output)); err != nil {
			return err
		}
		ref, err := parseFasta(input)
		if err != nil {
			return err
		}
		return fasta.ToElfasta(ref, output)
	},
}

func init() {
	rootCmd.AddCommand(fastaToElfastaCmd)
}
