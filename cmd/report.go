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
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/exascience/elsage/evidence"
	"github.com/exascience/elsage/utils"
)

var resultColumns = []string{
	"SAMPLE", "CHROM", "POS", "REF", "ALT", "TIER",
	"FULL", "PARTIAL", "CORE", "REALIGNED", "ALT_SUPPORT", "REF_SUPPORT", "TOTAL",
	"FULL_QUAL", "PARTIAL_QUAL", "CORE_QUAL", "REALIGNED_QUAL", "ALT_QUAL", "REF_QUAL", "TOTAL_QUAL",
	"TUMOR_QUAL",
	"RAW_DEPTH", "RAW_ALT_SUPPORT", "RAW_REF_SUPPORT", "RAW_ALT_BASE_QUAL", "RAW_REF_BASE_QUAL",
	"FORWARD_SUPPORT", "REVERSE_SUPPORT", "STRAND_BIAS",
	"JITTER_SHORTENED", "JITTER_LENGTHENED", "JITTER_PENALTY",
	"IMPROPER_PAIRS", "LOCAL_PHASE_SETS",
}

func writeResultHeader(w *bufio.Writer, runID uuid.UUID) error {
	if _, err := w.WriteString("##" + utils.ProgramName + "=" + utils.ProgramVersion + "\n"); err != nil {
		return err
	}
	if _, err := w.WriteString("##run=" + runID.String() + "\n"); err != nil {
		return err
	}
	_, err := w.WriteString("#" + strings.Join(resultColumns, "\t") + "\n")
	return err
}

func appendCounter(buf []byte, sample string, c *evidence.Counter) []byte {
	v := c.Variant()
	buf = append(buf, sample...)
	buf = append(buf, '\t')
	buf = append(buf, v.Chrom...)
	buf = append(buf, '\t')
	buf = strconv.AppendInt(buf, int64(v.Pos), 10)
	buf = append(buf, '\t')
	buf = append(buf, v.Ref...)
	buf = append(buf, '\t')
	buf = append(buf, v.Alt...)
	buf = append(buf, '\t')
	buf = append(buf, v.Tier.String()...)
	for _, n := range [...]int{
		c.Full, c.Partial, c.Core, c.Realigned, c.Alt, c.Ref, c.Total,
		c.FullQuality, c.PartialQuality, c.CoreQuality, c.RealignedQuality, c.AltQuality, c.RefQuality, c.TotalQuality,
		c.TumorQuality(),
		c.RawDepth, c.RawAltSupport, c.RawRefSupport, c.RawAltBaseQuality, c.RawRefBaseQuality,
		c.ForwardSupport, c.ReverseSupport,
	} {
		buf = append(buf, '\t')
		buf = strconv.AppendInt(buf, int64(n), 10)
	}
	buf = append(buf, '\t')
	buf = strconv.AppendFloat(buf, c.StrandBias(), 'f', 3, 64)
	buf = append(buf, '\t')
	buf = strconv.AppendInt(buf, int64(c.Jitter.Shortened), 10)
	buf = append(buf, '\t')
	buf = strconv.AppendInt(buf, int64(c.Jitter.Lengthened), 10)
	buf = append(buf, '\t')
	buf = strconv.AppendFloat(buf, c.Jitter.Penalty, 'f', 2, 64)
	buf = append(buf, '\t')
	buf = strconv.AppendInt(buf, int64(c.ImproperPairs), 10)
	buf = append(buf, '\t')
	if len(c.LocalPhaseSets) == 0 {
		buf = append(buf, '.')
	} else {
		for i, lps := range c.LocalPhaseSets {
			if i > 0 {
				buf = append(buf, ';')
			}
			buf = append(buf, lps.String()...)
		}
	}
	return append(buf, '\n')
}

// writeResults writes one row per counter, in partition order.
func writeResults(w *bufio.Writer, runID uuid.UUID, sample string, results []*evidence.PartitionResult) error {
	if err := writeResultHeader(w, runID); err != nil {
		return err
	}
	var buf []byte
	for _, result := range results {
		for _, c := range result.Counters {
			buf = appendCounter(buf[:0], sample, c)
			if _, err := w.Write(buf); err != nil {
				return err
			}
		}
	}
	return nil
}
