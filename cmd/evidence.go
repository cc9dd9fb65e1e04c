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
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/exascience/elsage/bamsource"
	"github.com/exascience/elsage/config"
	"github.com/exascience/elsage/evidence"
	"github.com/exascience/elsage/fasta"
	"github.com/exascience/elsage/intervals"
	"github.com/exascience/elsage/variant"
	"github.com/exascience/elsage/vcf"
)

type evidenceOptions struct {
	bam, bamIndex, reference, candidates, targetRegions string
	configFile, output, sample                          string
	logPath, profile                                    string
	timed                                               bool
}

var evidenceFlags evidenceOptions

// evidenceCmd collects the read evidence of one sample for a set of
// candidate variants.
var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Collect read evidence for candidate variants",
	Long: `Collect the read evidence of one sample for a set of candidate variants.
Candidates are read from a VCF file, and may be restricted to the regions of a
BED file. Reads are taken from a coordinate-sorted, indexed BAM file, or from a
coordinate-sorted SAM text file, which is loaded into memory. The
reference may be a .fasta file or an .elfasta file created with
'elsage fasta-to-elfasta'.`,
	Example: "  elsage evidence --bam tumor.bam --reference hg38.elfasta --candidates candidates.vcf --output tumor.tsv",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := evidenceFlags
		if err := checkEvidenceOptions(&opts); err != nil {
			return fmt.Errorf("invalid command line parameters for %v:\n%w", cmd.CommandPath(), err)
		}
		if err := setLogOutput(opts.logPath); err != nil {
			return err
		}
		return timedRun(opts.timed, opts.profile, "Collecting evidence.", func() error {
			return runEvidence(&opts)
		})
	},
}

func init() {
	flags := evidenceCmd.Flags()
	flags.StringVar(&evidenceFlags.bam, "bam", "", "coordinate-sorted BAM or SAM file")
	flags.StringVar(&evidenceFlags.bamIndex, "bam-index", "", "BAM index file (default: <bam>.bai)")
	flags.StringVar(&evidenceFlags.reference, "reference", "", "reference .fasta or .elfasta file")
	flags.StringVar(&evidenceFlags.candidates, "candidates", "", "VCF file with candidate variants")
	flags.StringVar(&evidenceFlags.targetRegions, "target-regions", "", "BED file restricting the candidates")
	flags.StringVar(&evidenceFlags.configFile, "config", "", "YAML configuration file")
	flags.StringVar(&evidenceFlags.output, "output", "", "output TSV file")
	flags.StringVar(&evidenceFlags.sample, "sample", "", "sample name written to the output (default: BAM file name)")
	flags.StringVar(&evidenceFlags.logPath, "log-path", "", "directory for the log files (default: $HOME)")
	flags.StringVar(&evidenceFlags.profile, "profile", "", "write a CPU profile to this file")
	flags.BoolVar(&evidenceFlags.timed, "timed", false, "log the elapsed time")
	for _, name := range []string{"bam", "reference", "candidates", "output"} {
		if err := evidenceCmd.MarkFlagRequired(name); err != nil {
			log.Panic(err)
		}
	}
	rootCmd.AddCommand(evidenceCmd)
}

// checkEvidenceOptions fills in defaults and reports every file
// parameter that cannot be used.
func checkEvidenceOptions(opts *evidenceOptions) error {
	samInput := isSamFile(opts.bam)
	if opts.bamIndex == "" && !samInput {
		opts.bamIndex = opts.bam + ".bai"
	}
	if opts.sample == "" {
		opts.sample = strings.TrimSuffix(filepath.Base(opts.bam), filepath.Ext(opts.bam))
	}
	errs := []error{
		checkExist("--bam", opts.bam),
		checkExist("--reference", opts.reference),
		checkExist("--candidates", opts.candidates),
		checkCreate("--output", opts.output),
	}
	if !samInput {
		errs = append(errs, checkExist("--bam-index", opts.bamIndex))
	}
	if opts.targetRegions != "" {
		errs = append(errs, checkExist("--target-regions", opts.targetRegions))
	}
	if opts.configFile != "" {
		errs = append(errs, checkExist("--config", opts.configFile))
	}
	return errors.Join(errs...)
}

// parseFasta parses a .fasta file, using its .fai index when present.
func parseFasta(filename string) (fasta.Fasta, error) {
	var fai map[string]fasta.FaiReference
	if _, err := os.Stat(filename + ".fai"); err == nil {
		if fai, err = fasta.ParseFai(filename + ".fai"); err != nil {
			return nil, err
		}
	}
	return fasta.ParseFasta(filename, fai)
}

// openReference maps an .elfasta file, or parses a .fasta file into
// memory.
func openReference(filename string) (ref variant.Reference, closeRef func() error, err error) {
	if strings.HasSuffix(filename, ".elfasta") {
		mapped, err := fasta.OpenElfasta(filename)
		if err != nil {
			return nil, nil, err
		}
		return mapped, mapped.Close, nil
	}
	parsed, err := parseFasta(filename)
	if err != nil {
		return nil, nil, err
	}
	return parsed, func() error { return nil }, nil
}

func isSamFile(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".sam")
}

// readSourceOpener returns a function that opens a read source per
// worker. SAM text files are loaded once and shared.
func readSourceOpener(filename, indexFile string) (func() (evidence.ReadSource, error), error) {
	if isSamFile(filename) {
		source, err := bamsource.LoadSam(filename)
		if err != nil {
			return nil, err
		}
		log.Printf("Loaded alignments from %v.", filename)
		return func() (evidence.ReadSource, error) { return source, nil }, nil
	}
	return func() (evidence.ReadSource, error) {
		return bamsource.Open(filename, indexFile)
	}, nil
}

// filterTargets keeps the variants that overlap a target region.
func filterTargets(variants []*variant.Variant, targets map[string][]intervals.Interval) []*variant.Variant {
	var result []*variant.Variant
	for _, v := range variants {
		if intervals.Overlap(targets[v.Chrom], v.Pos, v.End()) {
			result = append(result, v)
		}
	}
	return result
}

func runEvidence(opts *evidenceOptions) error {
	runID := uuid.New()
	log.SetPrefix(fmt.Sprintf("[%v] ", runID))

	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}

	variants, err := vcf.ReadCandidatesFile(opts.candidates)
	if err != nil {
		return err
	}
	log.Printf("Read %v candidates from %v.", len(variants), opts.candidates)
	if opts.targetRegions != "" {
		targets, err := intervals.FromBedFile(opts.targetRegions)
		if err != nil {
			return err
		}
		variants = filterTargets(variants, targets)
		log.Printf("Kept %v candidates in the regions of %v.", len(variants), opts.targetRegions)
	}

	ref, closeRef, err := openReference(opts.reference)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRef(); err != nil {
			log.Printf("Closing %v: %v", opts.reference, err)
		}
	}()

	candidates, err := evidence.NewCandidates(variants, ref, cfg)
	if err != nil {
		return err
	}
	partitions := evidence.PlanPartitions(candidates, cfg.PartitionPadding, cfg.MaxPartitionCandidates)
	log.Printf("Planned %v partitions.", len(partitions))

	var ids evidence.PhaseSetIDs
	openSource, err := readSourceOpener(opts.bam, opts.bamIndex)
	if err != nil {
		return err
	}
	results, err := evidence.RunPartitions(partitions, openSource, cfg, ref, evidence.IdentityRecalibration{}, &ids)
	if err != nil {
		return err
	}

	if err := writeResultsFile(opts.output, runID, opts.sample, results); err != nil {
		return err
	}
	log.Printf("Wrote evidence to %v.", opts.output)
	return nil
}

func writeResultsFile(filename string, runID uuid.UUID, sample string, results []*evidence.PartitionResult) (err error) {
	out, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(out)
	if err = writeResults(w, runID, sample, results); err != nil {
		return err
	}
	return w.Flush()
}
